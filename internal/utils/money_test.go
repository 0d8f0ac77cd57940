package utils

import "testing"

func TestRound3(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"already exact", 4.250, 4.25},
		{"rounds down", 1.23449, 1.234},
		{"rounds up", 1.23451, 1.235},
		{"negative rounds toward zero", -2.71849, -2.718},
		{"negative rounds away", -2.71851, -2.719},
		{"float drift", 6.600000000000001, 6.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Round3(tt.in); got != tt.want {
				t.Errorf("Round3(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
