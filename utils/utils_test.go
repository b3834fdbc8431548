// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{"zero", 0, 0},
		{"max positive", 1, math.MaxInt16},
		{"max negative", -1, math.MinInt16},
		{"half positive", 0.5, 16383},
		{"half negative", -0.5, -16384},
		{"clip high", 2.5, math.MaxInt16},
		{"clip low", -7, math.MinInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Float32ToInt16(tt.input); got != tt.want {
				t.Errorf("Float32ToInt16(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestIntToFloat32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		v        int
		bitDepth int
		want     float32
	}{
		{"8 bit silence", 128, 8, 0},
		{"8 bit min", 0, 8, -1},
		{"16 bit min", math.MinInt16, 16, -1},
		{"16 bit half", 16384, 16, 0.5},
		{"24 bit min", -8388608, 24, -1},
		{"32 bit min", math.MinInt32, 32, -1},
		{"unknown depth", 100, 12, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IntToFloat32(tt.v, tt.bitDepth); got != tt.want {
				t.Errorf("IntToFloat32(%d, %d) = %v, want %v", tt.v, tt.bitDepth, got, tt.want)
			}
		})
	}
}

func TestCubicInterpolate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		y0, y1, y2, y3 float32
		x              float32
		want           float32
	}{
		{"at y1", 0, 1, 2, 3, 0, 1},
		{"at y2", 0, 1, 2, 3, 1, 2},
		{"linear midpoint", 0, 1, 2, 3, 0.5, 1.5},
		{"constant", 0.3, 0.3, 0.3, 0.3, 0.7, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CubicInterpolate(tt.y0, tt.y1, tt.y2, tt.y3, tt.x)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("CubicInterpolate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLerpAndClamp(t *testing.T) {
	t.Parallel()

	if got := Lerp(2, 4, 0.25); got != 2.5 {
		t.Errorf("Lerp(2, 4, 0.25) = %v, want 2.5", got)
	}
	if got := Clamp(1.2, 0.9, 1.1); got != 1.1 {
		t.Errorf("Clamp(1.2, 0.9, 1.1) = %v, want 1.1", got)
	}
	if got := Clamp(-3, 0, 10); got != 0 {
		t.Errorf("Clamp(-3, 0, 10) = %v, want 0", got)
	}
}

func BenchmarkCubicInterpolate(b *testing.B) {
	for b.Loop() {
		CubicInterpolate(0.1, 0.5, 0.9, 0.3, 0.5)
	}
}
