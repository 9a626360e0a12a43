package stats

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-watercast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitHistory(t *testing.T) *timedataset.History {
	nowFunc := func() time.Time {
		return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	}
	days := timedataset.GenerateDays(100, nowFunc)
	tanker := timedataset.GenerateConstY(len(days), 3000)
	for i := len(tanker) - 7; i < len(tanker); i++ {
		tanker[i] = 15000
	}
	tanker[10] = math.NaN()
	h, err := timedataset.GenerateHistory(days, tanker, 2000, 5000, 1)
	require.Nil(t, err)
	return h
}

func TestSourceSplits(t *testing.T) {
	splits, err := SourceSplits(splitHistory(t), DefaultSplitDays)
	require.Nil(t, err)
	require.Len(t, splits, 3)

	week := splits[0]
	assert.Equal(t, 7, week.Days)
	assert.Equal(t, 7, week.Records)
	assert.InDelta(t, 9.09, week.BorewellPercent, 1e-9)
	assert.InDelta(t, 22.73, week.BWSSBPercent, 1e-9)
	assert.InDelta(t, 68.18, week.TankerPercent, 1e-9)
	assert.Equal(t, 154000.0, week.TotalLitres)
	assert.True(t, week.TankerDependent())

	month := splits[1]
	assert.Equal(t, 30, month.Records)
	assert.InDelta(t, 45.31, month.TankerPercent, 1e-9)
	assert.InDelta(t, 39.06, month.BWSSBPercent, 1e-9)
	assert.Equal(t, 384000.0, month.TotalLitres)

	quarter := splits[2]
	assert.Equal(t, 90, quarter.Records)
	// the nan tanker day falls in the window and is skipped
	assert.Equal(t, 90*7000.0+83*3000+7*15000-3000, quarter.TotalLitres)
}

func TestSourceSplitsEdgeCases(t *testing.T) {
	days := timedataset.GenerateDays(10, time.Now)
	h, err := timedataset.GenerateHistory(days, timedataset.GenerateConstY(10, 0), 0, 0, 1)
	require.Nil(t, err)

	splits, err := SourceSplits(h, []int{7})
	require.Nil(t, err)
	assert.Equal(t, SourceSplit{Days: 7, Records: 7}, splits[0])
	assert.False(t, splits[0].TankerDependent())

	splits, err = SourceSplits(h, []int{30})
	require.Nil(t, err)
	assert.Equal(t, 10, splits[0].Records)

	h, err = timedataset.NewHistory(
		[]string{timedataset.ColTankerLitres},
		[]timedataset.Record{{Date: days[0], TankerLitres: 1}},
	)
	require.Nil(t, err)
	_, err = SourceSplits(h, DefaultSplitDays)
	var schemaErr *timedataset.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, timedataset.ColBorewellLitres, schemaErr.Column)
}

func TestTablePrintSplits(t *testing.T) {
	h := splitHistory(t)
	splits, err := SourceSplits(h, DefaultSplitDays)
	require.Nil(t, err)

	var buf bytes.Buffer
	require.Nil(t, TablePrintSplits(&buf, "", "  ", splits, h.LastDate()))
	out := buf.String()
	assert.Contains(t, out, "Source Split (as of 2024-03-31):")
	assert.Contains(t, out, "68.18")
	assert.Contains(t, out, "tanker dependent")
}
