package feature

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSet(t *testing.T) {
	testData := map[string]struct {
		init     *Set
		f        Feature
		data     []float64
		expected *Set
	}{
		"initial set": {
			init: NewSet(),
			f:    NewRaw("blargh"),
			data: []float64{1, 2, 3, 4},
			expected: &Set{
				m: 4,
				set: map[string][]float64{
					"blargh": {1, 2, 3, 4},
				},
				labels: []Feature{NewRaw("blargh")},
			},
		},
		"set with more data": {
			init: &Set{
				m: 4,
				set: map[string][]float64{
					"blargh": {1, 2, 3, 4},
				},
				labels: []Feature{NewRaw("blargh")},
			},
			f:    NewRaw("more"),
			data: []float64{1, 2, 3, 4, 5, 6},
			expected: &Set{
				m: 6,
				set: map[string][]float64{
					"blargh": {1, 2, 3, 4, 0, 0},
					"more":   {1, 2, 3, 4, 5, 6},
				},
				labels: []Feature{
					NewRaw("blargh"),
					NewRaw("more"),
				},
			},
		},
		"set with less data": {
			init: &Set{
				m: 4,
				set: map[string][]float64{
					"blargh": {1, 2, 3, 4},
				},
				labels: []Feature{NewRaw("blargh")},
			},
			f:    NewLag("tanker", "tanker_litres", 1),
			data: []float64{1, 2},
			expected: &Set{
				m: 4,
				set: map[string][]float64{
					"blargh":       {1, 2, 3, 4},
					"tanker_lag_1": {1, 2, 0, 0},
				},
				labels: []Feature{
					NewRaw("blargh"),
					NewLag("tanker", "tanker_litres", 1),
				},
			},
		},
		"replace existing data": {
			init: &Set{
				m: 4,
				set: map[string][]float64{
					"blargh": {1, 2, 3, 4},
				},
				labels: []Feature{NewRaw("blargh")},
			},
			f:    NewRaw("blargh"),
			data: []float64{4, 3, 2, 1},
			expected: &Set{
				m: 4,
				set: map[string][]float64{
					"blargh": {4, 3, 2, 1},
				},
				labels: []Feature{NewRaw("blargh")},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s := td.init.Set(td.f, td.data)
			assert.Equal(t, td.expected, s)
		})
	}
}

func TestSetLabels(t *testing.T) {
	s := NewSet().
		Set(NewRaw("tanker_litres"), []float64{1}).
		Set(NewCalendar(LabelWeekend), []float64{0}).
		Set(NewLag("tanker", "tanker_litres", 7), []float64{1})

	labels := s.Labels()
	assert.Equal(t, []string{"is_weekend", "tanker_lag_7", "tanker_litres"}, labels.Strings())

	idx, exists := labels.Index(NewLag("tanker", "tanker_litres", 7))
	assert.True(t, exists)
	assert.Equal(t, 1, idx)

	idx, exists = labels.IndexOf("missing")
	assert.False(t, exists)
	assert.Equal(t, -1, idx)

	var nilSet *Set
	assert.Nil(t, nilSet.Labels())
	assert.Equal(t, 0, nilSet.Len())
}

func TestFeatureGet(t *testing.T) {
	lag := NewLag("tanker", "tanker_litres", 14)

	testData := map[string]struct {
		feat      Feature
		label     string
		expVal    string
		expExists bool
	}{
		"unknown":          {lag, "unknown", "", false},
		"capitalized":      {lag, "LAG", "14", true},
		"lag source":       {lag, "source", "tanker_litres", true},
		"raw name":         {NewRaw("bwssb_litres"), "name", "bwssb_litres", true},
		"calendar name":    {NewCalendar(LabelWeekend), "Name", LabelWeekend, true},
		"calendar unknown": {NewCalendar(LabelWeekend), "lag", "", false},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			val, exists := td.feat.Get(td.label)
			assert.Equal(t, td.expExists, exists, "exists")
			assert.Equal(t, td.expVal, val, "value")
		})
	}
}

func TestLagDecode(t *testing.T) {
	lag := NewLag("tanker", "tanker_litres", 3)
	assert.Equal(t, map[string]string{"name": "tanker", "source": "tanker_litres", "lag": "3"}, lag.Decode())

	out, err := json.Marshal(lag)
	require.Nil(t, err)

	var res Lag
	require.Nil(t, json.Unmarshal(out, &res))
	assert.Equal(t, *lag, res)
	assert.Equal(t, FeatureTypeLag, res.Type())
}
