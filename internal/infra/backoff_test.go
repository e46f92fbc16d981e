package infra

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{10, 60 * time.Second},
		{100, 60 * time.Second},
	}

	for _, tt := range tests {
		if got := CalculateBackoff(tt.retryCount); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %s, want %s", tt.retryCount, got, tt.want)
		}
	}
}

func TestJitteredBackoff_WithinCeiling(t *testing.T) {
	for retry := 0; retry < 8; retry++ {
		ceiling := CalculateBackoff(retry)
		for i := 0; i < 50; i++ {
			d := JitteredBackoff(retry)
			if d <= 0 || d > ceiling {
				t.Fatalf("JitteredBackoff(%d) = %s, want in (0, %s]", retry, d, ceiling)
			}
		}
	}
}
