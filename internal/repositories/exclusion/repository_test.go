package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePair(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int64
		wantLow  int64
		wantHigh int64
	}{
		{name: "already ordered", a: 2, b: 5, wantLow: 2, wantHigh: 5},
		{name: "reversed", a: 5, b: 2, wantLow: 2, wantHigh: 5},
		{name: "equal ids", a: 7, b: 7, wantLow: 7, wantHigh: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high := NormalizePair(tt.a, tt.b)
			assert.Equal(t, tt.wantLow, low)
			assert.Equal(t, tt.wantHigh, high)
		})
	}
}
