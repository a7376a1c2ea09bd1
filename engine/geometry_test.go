package engine

import "testing"

func cards() []Rect {
	return []Rect{
		{Top: 0, Height: 10},
		{Top: 10, Height: 10},
		{Top: 20, Height: 10},
	}
}

func TestResolveGapIndexBoundaries(t *testing.T) {
	cases := []struct {
		name     string
		pointerY float64
		want     int
	}{
		{"above first midpoint", 5, 0},
		{"between first and second midpoints", 12, 1},
		{"on second midpoint", 15, 1},
		{"past every midpoint appends", 35, 3},
		{"between second and third midpoints", 22, 2},
		{"above the whole list", -4, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveGapIndex(cards(), tc.pointerY); got != tc.want {
				t.Fatalf("y=%v: expected gap %d, got %d", tc.pointerY, tc.want, got)
			}
		})
	}
}

func TestResolveGapIndexEmptyContainer(t *testing.T) {
	if got := ResolveGapIndex(nil, 40); got != 0 {
		t.Fatalf("empty container must resolve to 0, got %d", got)
	}
}

func TestResolveGapIndexIsPure(t *testing.T) {
	rects := cards()
	before := rects[1]
	_ = ResolveGapIndex(rects, 15)
	if rects[1] != before {
		t.Fatalf("resolver mutated its input: %+v", rects[1])
	}
}
