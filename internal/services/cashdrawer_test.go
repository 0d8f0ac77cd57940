package services

import (
	"math"
	"testing"
)

func TestDrawerVariance(t *testing.T) {
	tests := []struct {
		name         string
		expected     float64
		counted      float64
		threshold    float64
		wantVariance float64
		wantFlagged  bool
	}{
		{"exact count", 120.500, 120.500, 1.000, 0, false},
		{"short within threshold", 120.500, 119.750, 1.000, -0.750, false},
		{"short beyond threshold", 120.500, 119.000, 1.000, -1.500, true},
		{"over beyond threshold", 120.500, 122.250, 1.000, 1.750, true},
		{"exactly at threshold", 120.500, 119.500, 1.000, -1.000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variance, flagged := drawerVariance(tt.expected, tt.counted, tt.threshold)
			if math.Abs(variance-tt.wantVariance) > 1e-9 {
				t.Errorf("variance = %.3f, want %.3f", variance, tt.wantVariance)
			}
			if flagged != tt.wantFlagged {
				t.Errorf("flagged = %v, want %v", flagged, tt.wantFlagged)
			}
		})
	}
}
