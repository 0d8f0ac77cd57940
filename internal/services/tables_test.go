package services

import (
	"testing"

	"github.com/example/oryxpos/internal/models"
)

func TestMergedCapacity(t *testing.T) {
	tests := []struct {
		name        string
		primary     int
		secondaries []int
		want        int
	}{
		{"two secondaries", 4, []int{2, 4}, 10},
		{"one secondary", 2, []int{2}, 4},
		{"no secondaries", 6, nil, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := models.RestaurantTable{Capacity: tt.primary}
			secondaries := make([]models.RestaurantTable, 0, len(tt.secondaries))
			for _, cap := range tt.secondaries {
				secondaries = append(secondaries, models.RestaurantTable{Capacity: cap})
			}
			if got := mergedCapacity(primary, secondaries); got != tt.want {
				t.Errorf("mergedCapacity = %d, want %d", got, tt.want)
			}
		})
	}
}
