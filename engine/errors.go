package engine

import "errors"

var (
	// ErrDragActive indicates a press was rejected because another drag
	// gesture owns the session.
	ErrDragActive = errors.New("drag session already active")
	// ErrNoDrag indicates a move, drop or cancel arrived with no gesture in
	// progress.
	ErrNoDrag = errors.New("no drag session in progress")
	// ErrQueueSaturated indicates the move dispatcher's buffer is full and
	// the inline fallback also could not run.
	ErrQueueSaturated = errors.New("move queue is saturated")
	// ErrShuttingDown indicates the coordinator no longer accepts moves.
	ErrShuttingDown = errors.New("coordinator is shutting down")
	// ErrUnknownTask indicates a press referenced a task absent from the
	// local board.
	ErrUnknownTask = errors.New("unknown task")
)
