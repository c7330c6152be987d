package telemetry

import (
	"sort"

	"github.com/obsidianstack/regionmetrics/pkg/types"
)

// Dataset is a read-only collection of samples indexed by region.
type Dataset struct {
	samples  []types.Sample
	byRegion map[string][]types.Sample
}

// New builds a Dataset from samples. The slice is copied; later changes by
// the caller do not affect the Dataset.
func New(samples []types.Sample) *Dataset {
	ds := &Dataset{
		samples:  append([]types.Sample(nil), samples...),
		byRegion: make(map[string][]types.Sample),
	}
	for _, s := range ds.samples {
		ds.byRegion[s.Region] = append(ds.byRegion[s.Region], s)
	}
	return ds
}

// Region returns a copy of the samples whose region matches name exactly.
// It returns nil when the region has no samples.
func (d *Dataset) Region(name string) []types.Sample {
	if d == nil {
		return nil
	}
	rows, ok := d.byRegion[name]
	if !ok {
		return nil
	}
	return append([]types.Sample(nil), rows...)
}

// Regions returns the distinct region names, sorted.
func (d *Dataset) Regions() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.byRegion))
	for name := range d.byRegion {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the total number of samples.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.samples)
}
