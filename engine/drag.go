package engine

import (
	"context"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Phase names the states of the drag gesture machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePressStarted
	PhaseDragging
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePressStarted:
		return "press-started"
	case PhaseDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Mover is the drop target of a finished gesture. The coordinator implements
// it; tests substitute a stub.
type Mover interface {
	Move(ctx context.Context, itemID, containerID string, insertAt int) error
}

// Timer is the stoppable handle returned by the session's timer factory.
type Timer interface {
	Stop() bool
}

// DragConfig tunes gesture detection. Zero values select the defaults.
type DragConfig struct {
	// LongPress is how long a touch press must hold still before the
	// session enters reorder mode.
	LongPress time.Duration
	// MoveThreshold is the pixel distance that cancels a pending long
	// press, or (after dragging began) is simply part of the drag.
	MoveThreshold float64
	// AfterFunc schedules the long-press callback. Tests inject a
	// synchronous fake; nil uses time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) Timer
}

const (
	defaultLongPress     = 500 * time.Millisecond
	defaultMoveThreshold = 6.0
)

type dragState struct {
	itemID           string
	originContainer  string
	originOrder      int64
	pressX, pressY   float64
	hoveredContainer string
	hoveredGap       int
	hoverValid       bool
}

// Session is the per-gesture state machine. At most one gesture is active at
// a time; a press that arrives while another gesture owns the session is
// rejected.
type Session struct {
	cfg    DragConfig
	mover  Mover
	boards *BoardStore
	logger *log.Logger

	mu    sync.Mutex
	phase Phase
	state dragState
	timer Timer
	// pressSeq invalidates a long-press timer that fires after its press
	// was already cancelled or resolved.
	pressSeq uint64
}

// NewSession creates a drag session bound to the given board store and mover.
func NewSession(boards *BoardStore, mover Mover, logger *log.Logger, cfg DragConfig) *Session {
	if cfg.LongPress <= 0 {
		cfg.LongPress = defaultLongPress
	}
	if cfg.MoveThreshold <= 0 {
		cfg.MoveThreshold = defaultMoveThreshold
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Session{cfg: cfg, mover: mover, boards: boards, logger: logger}
}

// Phase returns the current gesture phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Hover returns the currently hovered container and gap index, if any.
func (s *Session) Hover() (container string, gap int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.hoverValid {
		return "", 0, false
	}
	return s.state.hoveredContainer, s.state.hoveredGap, true
}

// Press begins a gesture on the given item. A touch press arms the long-press
// timer and waits in press-started; a pointer press enters dragging at once.
func (s *Session) Press(itemID string, x, y float64, touch bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseIdle {
		return ErrDragActive
	}
	task, ok := s.boards.Board().Get(itemID)
	if !ok {
		return ErrUnknownTask
	}

	s.state = dragState{
		itemID:          itemID,
		originContainer: task.Container,
		originOrder:     task.Order,
		pressX:          x,
		pressY:          y,
	}
	if !touch {
		s.phase = PhaseDragging
		return nil
	}

	s.phase = PhasePressStarted
	s.pressSeq++
	seq := s.pressSeq
	s.timer = s.cfg.AfterFunc(s.cfg.LongPress, func() { s.longPressFired(seq) })
	return nil
}

func (s *Session) longPressFired(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.pressSeq || s.phase != PhasePressStarted {
		return
	}
	s.phase = PhaseDragging
	s.logger.WithField("item", s.state.itemID).Debug("long press entered reorder mode")
}

// Move feeds a pointer move into the session. Before the long press fires,
// movement past the threshold cancels the pending press. While dragging it
// recomputes the hovered gap from the container's rendered card geometry; an
// empty containerID means the pointer left every container and clears the
// hover so no stale indicator survives.
func (s *Session) Move(containerID string, rects []Rect, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseIdle:
		return ErrNoDrag
	case PhasePressStarted:
		dx, dy := x-s.state.pressX, y-s.state.pressY
		if math.Hypot(dx, dy) > s.cfg.MoveThreshold {
			s.resetLocked()
		}
		return nil
	}

	if containerID == "" {
		s.state.hoveredContainer = ""
		s.state.hoverValid = false
		return nil
	}
	s.state.hoveredContainer = containerID
	s.state.hoveredGap = ResolveGapIndex(rects, y)
	s.state.hoverValid = true
	return nil
}

// Drop releases the gesture. With a valid hover target it hands the move to
// the coordinator; otherwise the gesture dissolves with no side effects. A
// release before the long press fired is a plain tap.
func (s *Session) Drop(ctx context.Context) error {
	s.mu.Lock()

	if s.phase == PhaseIdle {
		s.mu.Unlock()
		return ErrNoDrag
	}
	if s.phase != PhaseDragging || !s.state.hoverValid {
		s.resetLocked()
		s.mu.Unlock()
		return nil
	}

	st := s.state
	s.resetLocked()
	s.mu.Unlock()

	return s.mover.Move(ctx, st.itemID, st.hoveredContainer, st.hoveredGap)
}

// Cancel discards the gesture without invoking the coordinator.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
}

func (s *Session) resetLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pressSeq++
	s.phase = PhaseIdle
	s.state = dragState{}
}
