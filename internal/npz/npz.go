// Package npz reads and writes the .npz numeric payload archives used
// for modality data: a zip archive of NumPy .npy members named data,
// timevector, and sampling_rate, matching what numpy.savez produces.
package npz

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/giuthas/patkit/internal/models"
)

// Member names inside the archive.
const (
	dataMember  = "data.npy"
	timeMember  = "timevector.npy"
	rateMember  = "sampling_rate.npy"
	shapeMember = "shape.npy" // only present for payloads with more than two axes
)

// mat.Dense covers payloads up to two axes; anything deeper is stored
// flattened with an explicit shape member.
const maxDenseNDim = 2

// Write serialises a modality payload into w as an npz archive.
func Write(w io.Writer, md *models.ModalityData) error {
	if err := md.Validate(); err != nil {
		return fmt.Errorf("npz: %w", err)
	}

	zw := zip.NewWriter(w)

	if err := writeData(zw, md); err != nil {
		return err
	}
	if err := writeMember(zw, timeMember, md.Timevector); err != nil {
		return err
	}
	if err := writeMember(zw, rateMember, []float64{md.SamplingRate}); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("npz: close archive: %w", err)
	}
	return nil
}

func writeData(zw *zip.Writer, md *models.ModalityData) error {
	switch {
	case len(md.Shape) == 2:
		fw, err := zw.Create(dataMember)
		if err != nil {
			return fmt.Errorf("npz: create %s: %w", dataMember, err)
		}
		m := mat.NewDense(md.Shape[0], md.Shape[1], md.Data)
		if err := npyio.Write(fw, m); err != nil {
			return fmt.Errorf("npz: write %s: %w", dataMember, err)
		}
		return nil

	case len(md.Shape) > maxDenseNDim:
		// Flattened data plus an explicit shape member.
		if err := writeMember(zw, dataMember, md.Data); err != nil {
			return err
		}
		shape := make([]int64, len(md.Shape))
		for i, dim := range md.Shape {
			shape[i] = int64(dim)
		}
		fw, err := zw.Create(shapeMember)
		if err != nil {
			return fmt.Errorf("npz: create %s: %w", shapeMember, err)
		}
		if err := npyio.Write(fw, shape); err != nil {
			return fmt.Errorf("npz: write %s: %w", shapeMember, err)
		}
		return nil

	default:
		return writeMember(zw, dataMember, md.Data)
	}
}

func writeMember(zw *zip.Writer, name string, values []float64) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("npz: create %s: %w", name, err)
	}
	if err := npyio.Write(fw, values); err != nil {
		return fmt.Errorf("npz: write %s: %w", name, err)
	}
	return nil
}

// WriteFile writes the payload to a file via an in-memory buffer.
// Callers that need atomicity write the returned bytes through the
// storage provider instead.
func WriteFile(path string, md *models.ModalityData) error {
	data, err := Marshal(md)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("npz: write file %s: %w", path, err)
	}
	return nil
}

// Marshal returns the payload serialised as npz archive bytes.
func Marshal(md *models.ModalityData) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, md); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses npz archive bytes into a modality payload.
func Unmarshal(data []byte) (*models.ModalityData, error) {
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read parses an npz archive into a modality payload.
func Read(r io.ReaderAt, size int64) (*models.ModalityData, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("npz: open archive: %w", err)
	}

	md := &models.ModalityData{}
	var explicitShape []int

	for _, f := range zr.File {
		switch f.Name {
		case dataMember:
			values, shape, err := readMember(f)
			if err != nil {
				return nil, err
			}
			md.Data = values
			if len(shape) > 1 {
				md.Shape = shape
			}
		case timeMember:
			values, _, err := readMember(f)
			if err != nil {
				return nil, err
			}
			md.Timevector = values
		case rateMember:
			values, _, err := readMember(f)
			if err != nil {
				return nil, err
			}
			if len(values) == 0 {
				return nil, fmt.Errorf("npz: empty %s member", rateMember)
			}
			md.SamplingRate = values[0]
		case shapeMember:
			values, _, err := readMember(f)
			if err != nil {
				return nil, err
			}
			explicitShape = make([]int, len(values))
			for i, v := range values {
				explicitShape[i] = int(v)
			}
		}
	}

	if explicitShape != nil {
		md.Shape = explicitShape
	}
	if md.Data == nil {
		return nil, fmt.Errorf("npz: archive has no %s member", dataMember)
	}
	if err := md.Validate(); err != nil {
		return nil, fmt.Errorf("npz: %w", err)
	}
	return md, nil
}

// ReadFile parses an npz file from disk.
func ReadFile(path string) (*models.ModalityData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("npz: open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("npz: stat %s: %w", path, err)
	}
	return Read(f, info.Size())
}

// readMember decodes one .npy member into float64 values plus its
// header shape. Integer members (the shape listing) are widened.
func readMember(f *zip.File) ([]float64, []int, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("npz: open member %s: %w", f.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("npz: read member %s: %w", f.Name, err)
	}

	nr, err := npyio.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("npz: parse member %s: %w", f.Name, err)
	}
	shape := nr.Header.Descr.Shape

	var values []float64
	if err := nr.Read(&values); err != nil {
		// Retry as int64 for members written with integer dtype.
		nr2, err2 := npyio.NewReader(bytes.NewReader(raw))
		if err2 != nil {
			return nil, nil, fmt.Errorf("npz: parse member %s: %w", f.Name, err2)
		}
		var ints []int64
		if err2 := nr2.Read(&ints); err2 != nil {
			return nil, nil, fmt.Errorf("npz: decode member %s: %w", f.Name, err)
		}
		values = make([]float64, len(ints))
		for i, v := range ints {
			values[i] = float64(v)
		}
	}
	return values, shape, nil
}
