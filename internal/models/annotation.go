package models

import (
	"fmt"
	"sort"
)

// Annotation holds time-keyed properties attached to a modality: a
// vector of timestamps and one property mapping per timestamp.
// Times are kept sorted ascending.
type Annotation struct {
	Times      []float64        `yaml:"times"`
	Properties []map[string]any `yaml:"properties"`
}

// Validate checks that times and properties line up and that times are
// sorted ascending.
func (a *Annotation) Validate() error {
	if len(a.Times) != len(a.Properties) {
		return fmt.Errorf("models: annotation has %d times but %d property sets",
			len(a.Times), len(a.Properties))
	}
	if !sort.Float64sAreSorted(a.Times) {
		return fmt.Errorf("models: annotation times are not sorted ascending")
	}
	return nil
}

// Sort orders the annotation by time, keeping each property mapping
// aligned with its timestamp.
func (a *Annotation) Sort() error {
	if len(a.Times) != len(a.Properties) {
		return fmt.Errorf("models: annotation has %d times but %d property sets",
			len(a.Times), len(a.Properties))
	}
	order := make([]int, len(a.Times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return a.Times[order[i]] < a.Times[order[j]]
	})
	times := make([]float64, len(a.Times))
	props := make([]map[string]any, len(a.Properties))
	for i, from := range order {
		times[i] = a.Times[from]
		props[i] = a.Properties[from]
	}
	a.Times = times
	a.Properties = props
	return nil
}

// Append adds one timestamped property set, keeping the sort order.
func (a *Annotation) Append(t float64, properties map[string]any) {
	a.Times = append(a.Times, t)
	a.Properties = append(a.Properties, properties)
	if len(a.Times) > 1 && a.Times[len(a.Times)-2] > t {
		_ = a.Sort()
	}
}
