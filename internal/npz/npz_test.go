package npz

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/giuthas/patkit/internal/models"
)

func roundTrip(t *testing.T, md *models.ModalityData) *models.ModalityData {
	t.Helper()
	raw, err := Marshal(md)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return got
}

func sameFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-12 {
			return false
		}
	}
	return true
}

func TestRoundTrip1D(t *testing.T) {
	md := &models.ModalityData{
		Data:         []float64{0.5, -1.25, 3.75, 2},
		Timevector:   []float64{0, 0.01, 0.02, 0.03},
		SamplingRate: 100,
	}
	got := roundTrip(t, md)
	if !sameFloats(got.Data, md.Data) {
		t.Errorf("data = %v", got.Data)
	}
	if !sameFloats(got.Timevector, md.Timevector) {
		t.Errorf("timevector = %v", got.Timevector)
	}
	if got.SamplingRate != md.SamplingRate {
		t.Errorf("sampling rate = %g", got.SamplingRate)
	}
	if got.Shape != nil {
		t.Errorf("1-D payload should have nil shape, got %v", got.Shape)
	}
}

func TestRoundTrip2D(t *testing.T) {
	md := &models.ModalityData{
		Data:         []float64{1, 2, 3, 4, 5, 6},
		Shape:        []int{2, 3},
		Timevector:   []float64{0, 0.5},
		SamplingRate: 2,
	}
	got := roundTrip(t, md)
	if len(got.Shape) != 2 || got.Shape[0] != 2 || got.Shape[1] != 3 {
		t.Fatalf("shape = %v, want [2 3]", got.Shape)
	}
	if !sameFloats(got.Data, md.Data) {
		t.Errorf("data = %v", got.Data)
	}
}

func TestRoundTrip3D(t *testing.T) {
	// Raw ultrasound style payload: [frames, scanlines, pixels].
	md := &models.ModalityData{
		Data:         make([]float64, 2*3*4),
		Shape:        []int{2, 3, 4},
		Timevector:   []float64{0, 0.02},
		SamplingRate: 50,
	}
	for i := range md.Data {
		md.Data[i] = float64(i)
	}
	got := roundTrip(t, md)
	if len(got.Shape) != 3 || got.Shape[2] != 4 {
		t.Fatalf("shape = %v, want [2 3 4]", got.Shape)
	}
	if !sameFloats(got.Data, md.Data) {
		t.Errorf("3-D data did not round-trip")
	}
}

func TestInvalidPayloadRejected(t *testing.T) {
	md := &models.ModalityData{
		Data:         []float64{1, 2},
		Timevector:   []float64{0},
		SamplingRate: 1,
	}
	if _, err := Marshal(md); err == nil {
		t.Error("mismatched timevector should fail to marshal")
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec1.PD_on_RawUltrasound.npz")
	md := &models.ModalityData{
		Data:         []float64{9, 8, 7},
		Timevector:   []float64{0, 1, 2},
		SamplingRate: 1,
	}
	if err := WriteFile(path, md); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !sameFloats(got.Data, md.Data) {
		t.Errorf("data = %v", got.Data)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte("not a zip archive")); err == nil {
		t.Error("garbage input should fail")
	}
}
