package timedataset

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	testData := map[string]struct {
		val      string
		expected time.Time
		err      error
	}{
		"date only":       {"2024-01-05", day(5), nil},
		"padded":          {" 2024-01-05 ", day(5), nil},
		"rfc3339":         {"2024-01-05T10:00:00Z", day(5), nil},
		"rfc3339 offset":  {"2024-01-05T23:30:00+05:30", day(5), nil},
		"date time":       {"2024-01-05 08:15:00", day(5), nil},
		"slashes":         {"2024/01/05", day(5), nil},
		"day first":       {"05-01-2024", time.Time{}, ErrMalformedDate},
		"empty":           {"", time.Time{}, ErrMalformedDate},
		"not a date":      {"yesterday", time.Time{}, ErrMalformedDate},
		"impossible date": {"2024-02-30", time.Time{}, ErrMalformedDate},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := ParseDate(td.val)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestFromTable(t *testing.T) {
	header := []string{"Date", "tanker_litres", "borewell_litres", "bwssb_litres", "bwssb_supply_index", "rainfall_mm"}
	rows := [][]string{
		{"2024-01-02", "200", "50", "30", "0.9", "1.5"},
		{"2024-01-01", "100", "40", "20", "1.1", "n/a"},
	}

	h, err := FromTable(header, rows)
	require.Nil(t, err)

	assert.Equal(t, []string{ColTankerLitres, ColBorewellLitres, ColBWSSBLitres, ColBWSSBSupplyIndex, "rainfall_mm"}, h.Columns())
	assert.Equal(t, TimeSlice{day(1), day(2)}, h.Dates())

	tanker, ok := h.Values(ColTankerLitres)
	require.True(t, ok)
	assert.Equal(t, []float64{100, 200}, tanker)

	rain, ok := h.Values("rainfall_mm")
	require.True(t, ok)
	assert.True(t, math.IsNaN(rain[0]))
	assert.Equal(t, 1.5, rain[1])
}

func TestFromTableErrors(t *testing.T) {
	testData := map[string]struct {
		header []string
		rows   [][]string
		column string
		err    error
	}{
		"no rows": {
			header: []string{"date", "tanker_litres"},
			err:    ErrNoHistory,
		},
		"no date column": {
			header: []string{"day", "tanker_litres"},
			rows:   [][]string{{"2024-01-01", "1"}},
			column: ColDate,
			err:    ErrMissingColumn,
		},
		"no target column": {
			header: []string{"date", "borewell_litres"},
			rows:   [][]string{{"2024-01-01", "1"}},
			column: ColTankerLitres,
			err:    ErrMissingColumn,
		},
		"malformed date": {
			header: []string{"date", "tanker_litres"},
			rows:   [][]string{{"2024-01-01", "1"}, {"01/02/2024", "2"}},
			column: ColDate,
			err:    ErrMalformedDate,
		},
		"short row": {
			header: []string{"date", "tanker_litres"},
			rows:   [][]string{{"2024-01-01"}},
			column: ColDate,
			err:    ErrRowLenMismatch,
		},
		"duplicate date": {
			header: []string{"date", "tanker_litres"},
			rows:   [][]string{{"2024-01-01", "1"}, {"2024-01-01T12:00:00Z", "2"}},
			column: ColDate,
			err:    ErrNonMonotonic,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := FromTable(td.header, td.rows)
			require.ErrorIs(t, err, td.err)
			if td.column == "" {
				return
			}
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, td.column, schemaErr.Column)
		})
	}
}

func TestReadCSV(t *testing.T) {
	input := `date,tanker_litres,borewell_litres,bwssb_litres,bwssb_supply_index
2024-01-01,12000,5000,3000,1.0
2024-01-02,,5000,3000,0.8
2024-01-03,13000,inf,3000,0.9
`
	h, err := ReadCSV(strings.NewReader(input))
	require.Nil(t, err)
	assert.Equal(t, 3, h.Len())

	tanker, _ := h.Values(ColTankerLitres)
	assert.Equal(t, 12000.0, tanker[0])
	assert.True(t, math.IsNaN(tanker[1]))

	borewell, _ := h.Values(ColBorewellLitres)
	assert.True(t, math.IsInf(borewell[2], 1))

	_, err = ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHistory)
}
