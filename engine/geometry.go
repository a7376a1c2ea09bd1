package engine

// Rect is the bounding box of a rendered task card, in the hosting view's
// coordinate space. Y grows downward.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MidY returns the vertical midpoint of the rect.
func (r Rect) MidY() float64 { return r.Top + r.Height/2 }

// ResolveGapIndex maps a pointer's vertical coordinate to an insertion gap
// index given the container's rendered cards in display order. The first card
// whose midpoint sits at or below the pointer marks the gap; a pointer below
// every midpoint appends at the end. An unmounted or empty container resolves
// to 0. Linear on purpose: the rects change on every scroll and resize, so
// there is nothing worth caching past the current frame.
func ResolveGapIndex(rects []Rect, pointerY float64) int {
	for i, r := range rects {
		if r.MidY() >= pointerY {
			return i
		}
	}
	return len(rects)
}
