package feature

import (
	"slices"
	"sort"
)

// Set represents a mapping to each feature column keyed by the string representation
// of the feature.
type Set struct {
	m      int
	set    map[string][]float64
	labels []Feature
}

func NewSet() *Set {
	return &Set{
		set: make(map[string][]float64),
	}
}

// Len returns the number of observations per feature
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.m
}

// Set stores a copy of the data for the feature, replacing any previous data. Data
// shorter than the set is padded with zeros and longer data pads every other feature.
func (s *Set) Set(f Feature, data []float64) *Set {
	if s.set == nil {
		s.set = make(map[string][]float64)
	}

	if len(data) > s.m {
		for label, vals := range s.set {
			padded := make([]float64, len(data))
			copy(padded, vals)
			s.set[label] = padded
		}
		s.m = len(data)
	}

	vals := make([]float64, s.m)
	copy(vals, data)

	name := f.String()
	if _, exists := s.set[name]; !exists {
		s.labels = append(s.labels, f)
	}
	s.set[name] = vals
	return s
}

// Get returns the data stored for the feature
func (s *Set) Get(f Feature) ([]float64, bool) {
	return s.GetByName(f.String())
}

// GetByName returns the data stored for the column name
func (s *Set) GetByName(name string) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	vals, exists := s.set[name]
	return vals, exists
}

// Labels returns the features sorted by their string representation
func (s *Set) Labels() *Labels {
	if s == nil {
		return nil
	}

	labels := slices.Clone(s.labels)
	sort.Slice(
		labels,
		func(i, j int) bool {
			return labels[i].String() < labels[j].String()
		},
	)
	return NewLabels(labels)
}
