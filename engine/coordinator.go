package engine

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/caffeinepub/momentum-sub000/domain"
)

// TaskMove is one authoritative reorder instruction for the backend.
type TaskMove struct {
	ID        string
	Container string
	Order     int64
}

// Backend issues the authoritative move. A batch is atomic: either every
// instruction lands or none does. Any error is opaque to the engine.
type Backend interface {
	Apply(ctx context.Context, moves []TaskMove) error
}

// Notifier surfaces non-blocking user-visible failure notices. The engine
// never propagates backend errors upward as errors.
type Notifier interface {
	MoveFailed(itemID string, err error)
}

// Refresher fetches the authoritative read model after a confirmed move,
// e.g. to pick up server-side key normalization. It only fetches; the
// coordinator decides whether the result may be installed, so a refetch
// racing a new optimistic move can never overwrite it.
type Refresher interface {
	Refresh(ctx context.Context) (*domain.Board, error)
}

// CoordinatorConfig tunes the move dispatcher. Zero values select defaults.
type CoordinatorConfig struct {
	QueueSize      int
	BackendTimeout time.Duration
	HandoffTimeout time.Duration
}

const (
	defaultQueueSize      = 64
	defaultBackendTimeout = 30 * time.Second
	defaultHandoffTimeout = 15 * time.Millisecond
)

type moveJob struct {
	itemID   string
	moves    []TaskMove
	snapshot *domain.Board
	metrics  *moveMetrics
}

// Coordinator applies moves optimistically to the local board, issues the
// authoritative backend call, and reconciles or rolls back when it settles.
//
// Moves are serialized through one worker goroutine and a bounded queue, so a
// snapshot always captures exactly the state immediately preceding its own
// mutation: a later move's snapshot already contains the earlier move. When a
// backend call fails, the failed move's snapshot is restored verbatim and
// every still-queued move is discarded and reported, because each of them was
// computed against a board state that no longer exists.
type Coordinator struct {
	store      *BoardStore
	containers domain.ContainerProvider
	backend    Backend
	notifier   Notifier
	refresher  Refresher
	logger     *log.Logger
	cfg        CoordinatorConfig

	// mu serializes optimistic apply + enqueue against rollback + drain.
	mu     sync.Mutex
	jobs   chan moveJob
	closed bool
	wg     sync.WaitGroup
}

// NewCoordinator creates the coordinator and starts its dispatch worker.
func NewCoordinator(store *BoardStore, containers domain.ContainerProvider, backend Backend, notifier Notifier, refresher Refresher, logger *log.Logger, cfg CoordinatorConfig) *Coordinator {
	if store == nil {
		panic("engine: board store is required")
	}
	if backend == nil {
		panic("engine: backend is required")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = defaultBackendTimeout
	}
	if cfg.HandoffTimeout <= 0 {
		cfg.HandoffTimeout = defaultHandoffTimeout
	}

	c := &Coordinator{
		store:      store,
		containers: containers,
		backend:    backend,
		notifier:   notifier,
		refresher:  refresher,
		logger:     logger,
		cfg:        cfg,
		jobs:       make(chan moveJob, cfg.QueueSize),
	}
	c.wg.Add(1)
	go c.dispatch()
	return c
}

// Close stops accepting moves and waits for in-flight ones to settle.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.jobs)
	c.mu.Unlock()
	c.wg.Wait()
}

// Move reorders itemID into containerID at the given gap index. The local
// board is mutated before Move returns; the backend call settles
// asynchronously. A missing task or container is a benign race with a
// concurrent delete and is a silent no-op.
func (c *Coordinator) Move(ctx context.Context, itemID, containerID string, insertAt int) error {
	metrics, _ := newMoveMetrics(ctx, c.logger)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		metrics.SetOutcome("rejected")
		metrics.Log(ErrShuttingDown)
		return ErrShuttingDown
	}

	board := c.store.Board()
	task, ok := board.Get(itemID)
	if !ok {
		c.mu.Unlock()
		c.logger.WithField("item", itemID).Debug("move ignored: task no longer on board")
		metrics.SetOutcome("noop")
		metrics.Log(nil)
		return nil
	}
	container, ok := c.resolveContainer(containerID)
	if !ok {
		c.mu.Unlock()
		c.logger.WithFields(log.Fields{"item": itemID, "container": containerID}).Debug("move ignored: unknown container")
		metrics.SetOutcome("noop")
		metrics.Log(nil)
		return nil
	}
	metrics.SetMove(itemID, task.Container, containerID, insertAt)

	resolveStart := time.Now()
	siblings := board.SiblingKeys(containerID, itemID)
	if insertAt < 0 {
		insertAt = 0
	}
	if insertAt > len(siblings) {
		insertAt = len(siblings)
	}

	next := board.Clone()
	var moves []TaskMove
	if domain.NeedsRenumber(siblings, insertAt) {
		moves = renumberInto(next, container, task, insertAt)
		metrics.SetRenumbered(true)
	} else {
		moved := container.Apply(task)
		moved.Order = domain.ComputeOrderKey(siblings, insertAt)
		next.Put(moved)
		moves = []TaskMove{{ID: moved.ID, Container: moved.Container, Order: moved.Order}}
	}
	metrics.ObserveResolve(time.Since(resolveStart))

	applyStart := time.Now()
	c.store.Swap(next)
	metrics.ObserveApply(time.Since(applyStart))

	job := moveJob{itemID: itemID, moves: moves, snapshot: board, metrics: metrics}
	if !c.enqueueLocked(job) {
		// Undo the optimistic mutation; nothing was ever sent.
		c.store.Swap(board)
		c.mu.Unlock()
		metrics.SetOutcome("rejected")
		metrics.Log(ErrQueueSaturated)
		return ErrQueueSaturated
	}
	c.mu.Unlock()
	return nil
}

// enqueueLocked hands the job to the dispatcher, briefly blocking when the
// buffer is full. Called with c.mu held; the dispatcher only takes c.mu after
// a backend failure, so a full queue drains while we wait.
func (c *Coordinator) enqueueLocked(job moveJob) bool {
	select {
	case c.jobs <- job:
		return true
	default:
	}
	timer := time.NewTimer(c.cfg.HandoffTimeout)
	defer timer.Stop()
	select {
	case c.jobs <- job:
		return true
	case <-timer.C:
		return false
	}
}

func (c *Coordinator) resolveContainer(id string) (domain.Container, bool) {
	if c.containers == nil {
		// No metadata provider wired: every container id is accepted and
		// forces nothing.
		return domain.Container{ID: id}, true
	}
	return c.containers.Container(id)
}

// renumberInto respaces the destination container with fixed gaps, inserting
// task at the given gap index, and returns the full batch of authoritative
// moves. The batch includes siblings whose keys changed, not just the moved
// task; the backend applies it atomically.
func renumberInto(next *domain.Board, container domain.Container, task domain.Task, insertAt int) []TaskMove {
	siblings := next.ItemsIn(container.ID)
	ordered := make([]domain.Task, 0, len(siblings)+1)
	for _, t := range siblings {
		if t.ID == task.ID {
			continue
		}
		ordered = append(ordered, t)
	}
	if insertAt > len(ordered) {
		insertAt = len(ordered)
	}
	moved := container.Apply(task)
	ordered = append(ordered[:insertAt], append([]domain.Task{moved}, ordered[insertAt:]...)...)

	keys := domain.RenumberKeys(len(ordered))
	moves := make([]TaskMove, 0, len(ordered))
	for i := range ordered {
		ordered[i].Order = keys[i]
		next.Put(ordered[i])
		moves = append(moves, TaskMove{ID: ordered[i].ID, Container: ordered[i].Container, Order: ordered[i].Order})
	}
	return moves
}

func (c *Coordinator) dispatch() {
	defer c.wg.Done()
	for job := range c.jobs {
		c.execute(job)
	}
}

func (c *Coordinator) execute(job moveJob) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.BackendTimeout)
	backendStart := time.Now()
	err := c.backend.Apply(ctx, job.moves)
	cancel()
	job.metrics.ObserveBackend(time.Since(backendStart))

	if err == nil {
		job.metrics.SetOutcome("confirmed")
		job.metrics.Log(nil)
		c.maybeRefresh()
		return
	}

	rollbackStart := time.Now()
	c.mu.Lock()
	c.store.Swap(job.snapshot)
	dropped := c.drainLocked()
	c.mu.Unlock()
	job.metrics.ObserveRollback(time.Since(rollbackStart))

	c.logger.WithFields(log.Fields{"item": job.itemID, "dropped": len(dropped)}).WithError(err).Error("move rejected by backend; board rolled back")
	job.metrics.SetOutcome("rolled-back")
	job.metrics.Log(err)
	if c.notifier != nil {
		c.notifier.MoveFailed(job.itemID, err)
	}

	// Queued moves were computed against a board state the rollback just
	// erased; report each without sending anything.
	for _, d := range dropped {
		d.metrics.SetOutcome("cancelled")
		d.metrics.Log(err)
		if c.notifier != nil {
			c.notifier.MoveFailed(d.itemID, err)
		}
	}
}

func (c *Coordinator) drainLocked() []moveJob {
	var dropped []moveJob
	for {
		select {
		case job, ok := <-c.jobs:
			if !ok {
				return dropped
			}
			dropped = append(dropped, job)
		default:
			return dropped
		}
	}
}

func (c *Coordinator) maybeRefresh() {
	if c.refresher == nil {
		return
	}
	c.mu.Lock()
	pending := len(c.jobs)
	c.mu.Unlock()
	if pending > 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.BackendTimeout)
	board, err := c.refresher.Refresh(ctx)
	cancel()
	if err != nil || board == nil {
		return
	}

	// A move may have been applied while the fetch was in flight; its
	// optimistic mutation is newer than the fetched read model, so the
	// install is skipped and the next idle confirmation reconciles instead.
	// Move applies and enqueues under mu, and this goroutine is the only
	// worker, so an empty queue here means no move is pending.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.jobs) > 0 {
		c.logger.WithField("pending", len(c.jobs)).Debug("refresh discarded: moves applied during refetch")
		return
	}
	c.store.Swap(board)
}
