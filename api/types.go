package api

import (
	"github.com/caffeinepub/momentum-sub000/engine"
)

const dragBodyMaxSize = 256 * 1024 // 256 KiB: geometry payloads for long lists

type dragStartRequest struct {
	ItemID string  `json:"itemId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Touch  bool    `json:"touch"`
}

type dragMoveRequest struct {
	Container string        `json:"container"`
	Rects     []engine.Rect `json:"rects"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
}

type moveRequest struct {
	ItemID    string `json:"itemId"`
	Container string `json:"container"`
	InsertAt  int    `json:"insertAt"`
}

type hoverResponse struct {
	Phase     string `json:"phase"`
	Container string `json:"container,omitempty"`
	GapIndex  int    `json:"gapIndex"`
	Hovering  bool   `json:"hovering"`
}
