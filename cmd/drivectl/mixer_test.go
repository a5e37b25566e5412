package main

import "testing"

func TestMixArcade(t *testing.T) {
	tests := []struct {
		name        string
		x, y        float64
		left, right int
	}{
		{"centre", 0, 0, 0, 0},
		{"full forward", 0, 1, 255, 255},
		{"full reverse", 0, -1, -255, -255},
		{"spin right", 1, 0, 255, -255},
		{"spin left", -1, 0, -255, 255},
		{"forward right arc", 0.5, 0.5, 255, 0},
		{"half forward", 0, 0.5, 127, 127},
		{"outside the circle", 3, 0, 255, -255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := mixArcade(tt.x, tt.y)
			if left != tt.left || right != tt.right {
				t.Errorf("mixArcade(%v, %v) = (%d, %d), want (%d, %d)", tt.x, tt.y, left, right, tt.left, tt.right)
			}
		})
	}
}
