package shared

import "testing"

func TestSegmentCount(t *testing.T) {
	tests := []struct {
		size uint64
		want uint64
	}{
		{0, 0},
		{1, 1},
		{1024, 1},
		{2048, 2},
		{2049, 3},
		{1 << 30, 1 << 20},
	}
	for _, tt := range tests {
		if got := SegmentCount(tt.size); got != tt.want {
			t.Errorf("SegmentCount(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestSegmentLen(t *testing.T) {
	tests := []struct {
		size, index uint64
		want        int
	}{
		{2048, 0, 1024},
		{2048, 1, 1024},
		{2048, 2, 0},
		{1500, 1, 476},
		{10, 0, 10},
	}
	for _, tt := range tests {
		if got := SegmentLen(tt.size, tt.index); got != tt.want {
			t.Errorf("SegmentLen(%d, %d) = %d, want %d", tt.size, tt.index, got, tt.want)
		}
	}
}
