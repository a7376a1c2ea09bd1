package storage

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/caffeinepub/momentum-sub000/domain"
)

type lister interface {
	FetchAllTasks(ctx context.Context) ([]domain.Task, error)
}

// BoardRefresher fetches the authoritative read model and builds a fresh
// board from it. The coordinator invokes it after a confirmed move and
// installs the result itself, only while no further move is pending, picking
// up any server-side key normalization.
type BoardRefresher struct {
	source lister
	logger *log.Logger
}

// NewBoardRefresher wires a refresher onto the given source.
func NewBoardRefresher(source lister, logger *log.Logger) *BoardRefresher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &BoardRefresher{source: source, logger: logger}
}

// Refresh implements engine.Refresher. A failed refetch returns an error and
// the current board stays in place; the next refresh tries again.
func (r *BoardRefresher) Refresh(ctx context.Context) (*domain.Board, error) {
	tasks, err := r.source.FetchAllTasks(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("board refresh failed; keeping local state")
		return nil, err
	}
	r.logger.WithField("tasks", len(tasks)).Debug("board refreshed from read model")
	return domain.NewBoard(tasks), nil
}
