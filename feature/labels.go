package feature

// Labels tracks a slice of features and their index locations that match up
// with the ordering of the columns in a frame row.
type Labels struct {
	idx    map[string]int
	labels []Feature
}

func NewLabels(labels []Feature) *Labels {
	idx := make(map[string]int)
	for i := 0; i < len(labels); i++ {
		idx[labels[i].String()] = i
	}
	fl := &Labels{
		labels: labels,
		idx:    idx,
	}
	return fl
}

func (f *Labels) Len() int {
	if f == nil {
		return 0
	}
	return len(f.labels)
}

func (f *Labels) Labels() []Feature {
	if f == nil {
		return nil
	}
	labels := make([]Feature, len(f.labels))
	copy(labels, f.labels)
	return labels
}

// Strings returns the column names in order
func (f *Labels) Strings() []string {
	if f == nil {
		return nil
	}
	names := make([]string, len(f.labels))
	for i, label := range f.labels {
		names[i] = label.String()
	}
	return names
}

func (f *Labels) Index(label Feature) (int, bool) {
	return f.IndexOf(label.String())
}

// IndexOf looks up the position of a column by name
func (f *Labels) IndexOf(name string) (int, bool) {
	if f == nil {
		return -1, false
	}
	if idx, exists := f.idx[name]; exists {
		return idx, exists
	}
	return -1, false
}
