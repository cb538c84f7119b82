package prewarm

import "testing"

func TestSizeV1Clamps(t *testing.T) {
	cases := []struct {
		name      string
		requested uint32
		current   uint32
		min       uint32
		max       int32
		want      uint32
	}{
		{"below min", 2, 0, 5, -1, 5},
		{"above max", 100, 0, 5, 10, 10},
		{"already satisfied", 5, 10, 5, -1, 0},
		{"shortfall", 10, 4, 0, -1, 6},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := sizeV1(c.requested, c.current, c.min, c.max); got != c.want {
				t.Fatalf("sizeV1(%d,%d,%d,%d) = %d, want %d", c.requested, c.current, c.min, c.max, got, c.want)
			}
		})
	}
}

func TestSizeV2FallsBackBelowMin(t *testing.T) {
	// hit+miss+current < min: fall back to v1 with requestedSize=hit+miss.
	got := sizeV2(1, 1, 1, 10, -1, 0.5)
	want := sizeV1(2, 1, 10, -1)
	if got != want {
		t.Fatalf("sizeV2 fallback = %d, want %d", got, want)
	}
}

func TestSizeV2AtMaxDoesNothing(t *testing.T) {
	got := sizeV2(5, 5, 10, 2, 10, 1.0)
	if got != 0 {
		t.Fatalf("sizeV2 at max = %d, want 0", got)
	}
}

func TestSizeV2AddsMissTimesRate(t *testing.T) {
	got := sizeV2(10, 4, 2, 1, -1, 0.5)
	if got != 2 {
		t.Fatalf("sizeV2 = %d, want 2", got)
	}
}

func TestSizeV2ClampsToMax(t *testing.T) {
	got := sizeV2(0, 100, 8, 1, 10, 1.0)
	if got != 2 {
		t.Fatalf("sizeV2 clamp = %d, want 2", got)
	}
}
