package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		known bool
	}{
		{"2023-01-01", "2023-01-01", true},
		{" 2023-01-01 ", "2023-01-01", true},
		{"2022-11-20T16:00:00+00:00", "2022-11-20", true},
		{"1872-11-30 00:00:00", "1872-11-30", true},
		{"2023-02-30", UnknownDate, false},
		{"30/11/1872", UnknownDate, false},
		{"2023-01-01x", UnknownDate, false},
		{"", UnknownDate, false},
		{"NaT", UnknownDate, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d := ParseDate(tt.in)
			assert.Equal(t, tt.want, d.String())
			assert.Equal(t, tt.known, d.Known())
		})
	}
}

func TestDate_Comparable(t *testing.T) {
	seen := map[Date]int{ParseDate("2023-01-01"): 1}
	assert.Equal(t, 1, seen[ParseDate("2023-01-01T10:00:00Z")])
	assert.Equal(t, Date{}, ParseDate("garbage"))
}

func TestParseTriState(t *testing.T) {
	v, ok := ParseTriState("TRUE")
	assert.True(t, ok)
	assert.Equal(t, True, v)

	v, ok = ParseTriState("False")
	assert.True(t, ok)
	assert.Equal(t, False, v)

	v, ok = ParseTriState("nan")
	assert.False(t, ok)
	assert.Equal(t, Unknown, v)
	assert.Equal(t, "unknown", v.String())
}

func TestExtractInt(t *testing.T) {
	n, ok := ExtractInt(float64(3))
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = ExtractInt("2.0")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = ExtractInt(json.Number("7"))
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = ExtractInt(2.5)
	assert.False(t, ok)
	_, ok = ExtractInt(nil)
	assert.False(t, ok)
	_, ok = ExtractInt("nan")
	assert.False(t, ok)
	_, ok = ExtractInt(1e20)
	assert.False(t, ok)
	_, ok = ExtractInt("-1e20")
	assert.False(t, ok)
}

func TestExtractScore(t *testing.T) {
	assert.Nil(t, ExtractScore(nil))
	assert.Nil(t, ExtractScore(float64(-1)))
	assert.Equal(t, 0, *ExtractScore("0"))
}
