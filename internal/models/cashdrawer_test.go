package models

import (
	"math"
	"testing"
)

func TestDenominationBreakdownTotal(t *testing.T) {
	tests := []struct {
		name      string
		breakdown DenominationBreakdown
		want      float64
	}{
		{"empty drawer", DenominationBreakdown{}, 0},
		{"notes only", DenominationBreakdown{Notes50: 2, Notes10: 1, Notes1: 3}, 113},
		{"coins only", DenominationBreakdown{Coins100: 4, Coins50: 2, Coins25: 2, Coins10: 3, Coins5: 1}, 0.585},
		{
			name: "full drawer",
			breakdown: DenominationBreakdown{
				Notes20:   5,
				Notes5:    3,
				NotesHalf: 2,
				Coins100:  7,
				Coins25:   1,
			},
			want: 116.725,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.breakdown.Total(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Total() = %.3f, want %.3f", got, tt.want)
			}
		})
	}
}
