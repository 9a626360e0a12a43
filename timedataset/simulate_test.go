package timedataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDays(t *testing.T) {
	nowFunc := func() time.Time {
		return time.Date(1970, 1, 8, 13, 30, 0, 0, time.UTC)
	}

	numPnts := 7
	res := GenerateDays(numPnts, nowFunc)
	assert.Len(t, res, numPnts)

	assert.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), res[0])
	assert.Equal(t, time.Date(1970, 1, 7, 0, 0, 0, 0, time.UTC), res[numPnts-1])
}

func TestSeries(t *testing.T) {
	numPnts := 7
	s := Series(GenerateConstY(numPnts, 1))

	res := s.Add(GenerateConstY(numPnts, 2))
	require.Equal(t, Series([]float64{3, 3, 3, 3, 3, 3, 3}), res)

	nowFunc := func() time.Time {
		return time.Date(1970, 1, 8, 0, 0, 0, 0, time.UTC)
	}

	// 1970-01-01 is a thursday
	tSeries := GenerateDays(numPnts, nowFunc)
	s.MaskWithWeekend(tSeries)
	assert.Equal(t, Series([]float64{0, 0, 3, 3, 0, 0, 0}), s)
}

func TestGenerateWeeklyY(t *testing.T) {
	nowFunc := func() time.Time {
		return time.Date(1970, 1, 15, 0, 0, 0, 0, time.UTC)
	}
	tSeries := GenerateDays(14, nowFunc)
	y := GenerateWeeklyY(tSeries, 2.0, 0)
	require.Len(t, y, 14)
	for i := 0; i < 7; i++ {
		assert.InDelta(t, y[i], y[i+7], 1e-9)
	}
	assert.InDelta(t, 0.0, y[0], 1e-9)
}

func TestGenerateHistory(t *testing.T) {
	nowFunc := func() time.Time {
		return time.Date(1970, 1, 4, 0, 0, 0, 0, time.UTC)
	}
	tSeries := GenerateDays(3, nowFunc)
	h, err := GenerateHistory(tSeries, Series{1, 2, 3}, 4, 5, 0.9)
	require.Nil(t, err)

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, DefaultColumns, h.Columns())

	tanker, ok := h.Values(ColTankerLitres)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, tanker)

	supply, ok := h.Values(ColBWSSBSupplyIndex)
	require.True(t, ok)
	assert.Equal(t, []float64{0.9, 0.9, 0.9}, supply)
}
