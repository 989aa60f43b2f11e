package models

import (
	"fmt"
	"math"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Well-known modality kinds. Derived kinds carry their parent in the
// modality name, e.g. "PD on RawUltrasound".
const (
	KindRawUltrasound = "RawUltrasound"
	KindMonoAudio     = "MonoAudio"
	KindSplines       = "Splines"
	KindPD            = "PD"
)

// ModalityData is the numeric payload of a modality: the data array,
// its timevector, and the sampling rate.
//
// Data is stored flattened with Shape giving the array dimensions; the
// first axis is always time. A nil Shape means a plain 1-D series.
type ModalityData struct {
	Data         []float64
	Shape        []int
	Timevector   []float64
	SamplingRate float64
}

// Frames returns the length of the time axis.
func (md *ModalityData) Frames() int {
	if len(md.Shape) > 0 {
		return md.Shape[0]
	}
	return len(md.Data)
}

// Validate checks the payload invariants: sampling rate is positive,
// the shape accounts for every element, and the timevector covers the
// time axis exactly.
func (md *ModalityData) Validate() error {
	if md.SamplingRate <= 0 {
		return fmt.Errorf("models: sampling rate must be positive, got %g", md.SamplingRate)
	}
	if len(md.Shape) > 0 {
		n := 1
		for _, dim := range md.Shape {
			if dim <= 0 {
				return fmt.Errorf("models: invalid shape dimension %d", dim)
			}
			n *= dim
		}
		if n != len(md.Data) {
			return fmt.Errorf("models: shape %v does not match %d data points", md.Shape, len(md.Data))
		}
	}
	if md.Frames() != len(md.Timevector) {
		return fmt.Errorf("models: %d frames but %d timevector entries",
			md.Frames(), len(md.Timevector))
	}
	return nil
}

// TimeOffset returns the first timestamp, or 0 for an empty payload.
func (md *ModalityData) TimeOffset() float64 {
	if len(md.Timevector) == 0 {
		return 0
	}
	return md.Timevector[0]
}

// TimePrecision estimates the timevector precision as the maximum
// absolute deviation from the average timestep.
func (md *ModalityData) TimePrecision() float64 {
	if len(md.Timevector) < 2 {
		return 0
	}
	steps := len(md.Timevector) - 1
	average := (md.Timevector[steps] - md.Timevector[0]) / float64(steps)
	var precision float64
	for i := 0; i < steps; i++ {
		deviation := math.Abs(md.Timevector[i+1] - md.Timevector[i] - average)
		if deviation > precision {
			precision = deviation
		}
	}
	return precision
}

// ModalityMetaData is the metadata of a modality. ParentName is set
// for derived modalities and names the modality the data was computed
// from. Parameters carries kind-specific processing parameters that
// are needed to reconstruct the modality.
type ModalityMetaData struct {
	ParentName string         `yaml:"parent_name,omitempty"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
}

// Modality is one named stream of recorded or derived data within a
// recording, owning its payload, metadata, and annotations.
type Modality struct {
	Kind     string
	Meta     ModalityMetaData
	Data     *ModalityData
	Excluded bool

	// DataPath and MetaPath are the source files of an imported
	// modality, relative to the session directory. Derived modalities
	// have neither until they are saved.
	DataPath string
	MetaPath string

	Annotations map[string]*Annotation

	recording *Recording
}

// NewModality creates a modality of the given kind.
func NewModality(kind string, meta ModalityMetaData, data *ModalityData) *Modality {
	return &Modality{
		Kind:        kind,
		Meta:        meta,
		Data:        data,
		Annotations: make(map[string]*Annotation),
	}
}

// Name returns the modality's identity within its recording: the kind
// alone for recorded modalities, "<kind> on <parent>" for derived ones.
func (m *Modality) Name() string {
	if m.Meta.ParentName != "" {
		return m.Kind + " on " + m.Meta.ParentName
	}
	return m.Kind
}

// FileStem returns the name with whitespace replaced by underscores,
// as used in save file names.
func (m *Modality) FileStem() string {
	return strings.ReplaceAll(m.Name(), " ", "_")
}

// IsDerived reports whether this modality was computed from another.
func (m *Modality) IsDerived() bool {
	return m.Meta.ParentName != ""
}

// Recording returns the owning recording, or nil if unattached.
func (m *Modality) Recording() *Recording {
	return m.recording
}

// Validate checks the modality's own invariants and its payload, if
// loaded.
func (m *Modality) Validate() error {
	if err := validation.ValidateStruct(m,
		validation.Field(&m.Kind, validation.Required),
	); err != nil {
		return err
	}
	if m.Data != nil {
		return m.Data.Validate()
	}
	return nil
}

// AddAnnotation attaches an annotation under the given name, replacing
// any previous one. The annotation is sorted as a side effect to keep
// the times-ascending invariant.
func (m *Modality) AddAnnotation(name string, a *Annotation) error {
	if err := a.Sort(); err != nil {
		return err
	}
	if m.Annotations == nil {
		m.Annotations = make(map[string]*Annotation)
	}
	m.Annotations[name] = a
	return nil
}
