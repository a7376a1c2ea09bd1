package engine

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	moveSpanName   = "board.move"
	moveEventName  = "board.move.completed"
	tracerName     = "momentum/engine"
	moveLogMessage = "move.metrics"
)

// moveMetrics collects per-move stage timings. Everything lands in one otel
// span and one structured log entry when the move settles, so a single slow
// or failed reorder can be read off one line.
type moveMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	item       string
	from       string
	to         string
	insertAt   int
	renumbered bool

	resolveDuration  time.Duration
	applyDuration    time.Duration
	backendDuration  time.Duration
	rollbackDuration time.Duration

	outcome string
}

func newMoveMetrics(ctx context.Context, logger *log.Logger) (*moveMetrics, context.Context) {
	m := &moveMetrics{logger: logger, start: time.Now()}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, moveSpanName)
	m.span = span
	return m, spanCtx
}

func (m *moveMetrics) SetMove(item, from, to string, insertAt int) {
	m.item, m.from, m.to, m.insertAt = item, from, to, insertAt
}

func (m *moveMetrics) SetRenumbered(v bool) { m.renumbered = v }

func (m *moveMetrics) ObserveResolve(d time.Duration) {
	if d > 0 {
		m.resolveDuration = d
	}
}

func (m *moveMetrics) ObserveApply(d time.Duration) {
	if d > 0 {
		m.applyDuration = d
	}
}

func (m *moveMetrics) ObserveBackend(d time.Duration) {
	if d > 0 {
		m.backendDuration = d
	}
}

func (m *moveMetrics) ObserveRollback(d time.Duration) {
	if d > 0 {
		m.rollbackDuration = d
	}
}

func (m *moveMetrics) SetOutcome(outcome string) {
	if outcome != "" {
		m.outcome = outcome
	}
}

// Log finishes the span and emits the structured entry. It must be called
// exactly once per move.
func (m *moveMetrics) Log(err error) {
	if m == nil {
		return
	}

	fields := log.Fields{
		"item":     m.item,
		"from":     m.from,
		"to":       m.to,
		"insert":   m.insertAt,
		"outcome":  m.outcome,
		"total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.renumbered {
		fields["renumbered"] = true
	}
	if m.resolveDuration > 0 {
		fields["resolve_ms"] = durationToMillis(m.resolveDuration)
	}
	if m.applyDuration > 0 {
		fields["apply_ms"] = durationToMillis(m.applyDuration)
	}
	if m.backendDuration > 0 {
		fields["backend_ms"] = durationToMillis(m.backendDuration)
	}
	if m.rollbackDuration > 0 {
		fields["rollback_ms"] = durationToMillis(m.rollbackDuration)
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if m.span != nil {
		attrs := []attribute.KeyValue{
			attribute.String("momentum.move.item", m.item),
			attribute.String("momentum.move.from", m.from),
			attribute.String("momentum.move.to", m.to),
			attribute.Int("momentum.move.insert_at", m.insertAt),
			attribute.Bool("momentum.move.renumbered", m.renumbered),
			attribute.String("momentum.move.outcome", m.outcome),
			attribute.Float64("momentum.move.total_ms", durationToMillis(time.Since(m.start))),
		}
		m.span.SetAttributes(attrs...)
		m.span.AddEvent(moveEventName)
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	entry := m.logger.WithFields(fields)
	if err != nil {
		entry.Warn(moveLogMessage)
		return
	}
	entry.Info(moveLogMessage)
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
