package service

import (
	"testing"

	"FairOdds/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestTTLMinutes_Table(t *testing.T) {
	cases := []struct {
		name      string
		hours     float64
		eventType model.EventType
		want      int
	}{
		{"politics 50h", 50, model.EventTypePolitics, 135},       // 90 × 1.5
		{"crypto sub-hour floor", 0.5, model.EventTypeCrypto, 10}, // 10 × 0.5 = 5 → 下限10
		{"crypto 100h", 100, model.EventTypeCrypto, 60},           // 120 × 0.5
		{"sports 2h", 2, model.EventTypeSports, 14},               // 20 × 0.7
		{"politics far out ceiling", 2000, model.EventTypePolitics, 360}, // 240 × 1.5 = 360
		{"pop 10h", 10, model.EventTypePop, 60},
		{"other beyond steps", 800, model.EventTypeOther, 240},
		{"other zero hours", 0, model.EventTypeOther, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TTLMinutes(tc.hours, tc.eventType))
		})
	}
}

func TestTTLMinutes_AlwaysWithinBounds(t *testing.T) {
	hours := []float64{0, 0.1, 0.99, 1, 2.9, 3, 5, 6, 23, 24, 71, 72, 100, 167, 168, 500, 719, 720, 10000}
	types := []model.EventType{
		model.EventTypeSports, model.EventTypePolitics, model.EventTypeCrypto,
		model.EventTypePop, model.EventTypeOther, model.EventType("unknown"),
	}
	for _, et := range types {
		for _, h := range hours {
			ttl := TTLMinutes(h, et)
			assert.GreaterOrEqual(t, ttl, 10, "type=%s h=%v", et, h)
			assert.LessOrEqual(t, ttl, 360, "type=%s h=%v", et, h)
		}
	}
}

func TestTTLMinutes_MonotoneInHours(t *testing.T) {
	hours := []float64{0, 0.5, 1, 2, 3, 5, 6, 12, 24, 48, 72, 120, 168, 400, 720, 2000}
	types := []model.EventType{
		model.EventTypeSports, model.EventTypePolitics, model.EventTypeCrypto,
		model.EventTypePop, model.EventTypeOther,
	}
	for _, et := range types {
		prev := 0
		for _, h := range hours {
			ttl := TTLMinutes(h, et)
			assert.GreaterOrEqual(t, ttl, prev, "type=%s h=%v", et, h)
			prev = ttl
		}
	}
}
