package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.SnapshotStore
	logger *slog.Logger
}

// NewLoggingMiddleware logs every store operation at debug level and failures at warn.
// A missing snapshot is not a failure.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) log(ctx context.Context, op, id string, start time.Time, err error) {
	attrs := []any{"op", op, "duration", time.Since(start)}
	if id != "" {
		attrs = append(attrs, "id", id)
	}
	if err != nil && !domain.IsNotFound(err) {
		m.logger.WarnContext(ctx, "snapshot store operation failed", append(attrs, "error", err)...)
		return
	}
	m.logger.DebugContext(ctx, "snapshot store operation", attrs...)
}

func (m *loggingMiddleware) Save(ctx context.Context, id string, snap *domain.Snapshot) error {
	start := time.Now()
	err := m.next.Save(ctx, id, snap)
	m.log(ctx, "save", id, start, err)
	return err
}

func (m *loggingMiddleware) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	start := time.Now()
	snap, err := m.next.Load(ctx, id)
	m.log(ctx, "load", id, start, err)
	return snap, err
}

func (m *loggingMiddleware) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := m.next.Delete(ctx, id)
	m.log(ctx, "delete", id, start, err)
	return err
}

func (m *loggingMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.log(ctx, "list", "", start, err)
	return ids, err
}
