package series

import (
	"testing"
)

func TestResampleLength(t *testing.T) {
	src := make([]int, 1000)
	for i := range src {
		src[i] = i
	}

	tests := []struct {
		n    int
		want int
	}{
		{300, 300},
		{1, 1},
		{999, 999},
		{1000, 1000},
		{5000, 1000}, // passthrough
		{0, 0},
	}

	for _, tt := range tests {
		got := Resample(src, tt.n)
		if len(got) != tt.want {
			t.Errorf("Resample(1000, %d): expected len %d, got %d", tt.n, tt.want, len(got))
		}
	}
}

func TestResampleCenters(t *testing.T) {
	src := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := Resample(src, 5)
	want := []int{1, 3, 5, 7, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestResampleIdempotent(t *testing.T) {
	src := make([]float64, 2048)
	for i := range src {
		src[i] = float64(i) * 0.5
	}
	once := Resample(src, 6)
	twice := Resample(once, 6)
	if len(once) != len(twice) {
		t.Fatalf("length changed: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("index %d: %v != %v", i, once[i], twice[i])
		}
	}
}

func TestFrameCount(t *testing.T) {
	if got := FrameCount(30, 10); got != 300 {
		t.Errorf("expected 300, got %d", got)
	}
	if got := FrameCount(24, 2.52); got != 60 {
		t.Errorf("expected 60, got %d", got)
	}
}
