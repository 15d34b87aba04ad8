package ui

import "testing"

func TestSnapSensitivity(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.3, 0.3},
		{0.34, 0.3},
		{0.36, 0.4},
		{0.01, 0.1},
		{5, 2},
		{1.96, 2},
		{0.7000001, 0.7},
	}
	for _, tt := range tests {
		if got := SnapSensitivity(tt.in); got != tt.want {
			t.Errorf("SnapSensitivity(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
