package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexFloat_ToleratesUpstreamShapes(t *testing.T) {
	var m GammaMarket
	// 同一字段混用字符串和数字是上游常态
	err := json.Unmarshal([]byte(`{"volumeNum":"123.5","oneDayPriceChange":0.05}`), &m)
	require.NoError(t, err)
	assert.InDelta(t, 123.5, m.VolumeNum.Float64(), 1e-9)
	assert.InDelta(t, 0.05, m.OneDayPriceChange.Float64(), 1e-9)

	// null与垃圾值兜底为0，不报错
	err = json.Unmarshal([]byte(`{"volumeNum":null,"oneDayPriceChange":"n/a"}`), &m)
	require.NoError(t, err)
	assert.Zero(t, m.VolumeNum.Float64())
	assert.Zero(t, m.OneDayPriceChange.Float64())
}

func TestParsePriceArray(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []float64
	}{
		{"pseudo json string", `"[\"0.6\",\"0.4\"]"`, []float64{0.6, 0.4}},
		{"plain array of strings", `["0.6","0.4"]`, []float64{0.6, 0.4}},
		{"plain array of numbers", `[0.6, 0.4]`, []float64{0.6, 0.4}},
		{"null", `null`, []float64{}},
		{"empty", ``, []float64{}},
		{"garbage string", `"not-json"`, []float64{}},
		{"bad element degrades to zero", `["0.6","oops"]`, []float64{0.6, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParsePriceArray(json.RawMessage(tc.raw))
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				assert.InDelta(t, tc.want[i], got[i], 1e-9, "index %d", i)
			}
		})
	}
}

func TestParseStringArray(t *testing.T) {
	assert.Equal(t, []string{"Yes", "No"}, ParseStringArray(`["Yes","No"]`))
	assert.Empty(t, ParseStringArray(""))
	assert.Empty(t, ParseStringArray("null"))
	assert.Empty(t, ParseStringArray("not json"))
}
