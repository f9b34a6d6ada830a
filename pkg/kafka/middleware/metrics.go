package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"clinicslots/pkg/kafka"
)

// PublishMetrics counts publish outcomes for one producer
type PublishMetrics struct {
	published     atomic.Int64
	failed        atomic.Int64
	durationTotal atomic.Int64 // Nanoseconds
}

// PublishSnapshot is a point-in-time copy of PublishMetrics
type PublishSnapshot struct {
	Published   int64
	Failed      int64
	AvgDuration time.Duration
}

func NewPublishMetrics() *PublishMetrics {
	return &PublishMetrics{}
}

// Snapshot returns the current counters
func (m *PublishMetrics) Snapshot() PublishSnapshot {
	published := m.published.Load()
	failed := m.failed.Load()
	snap := PublishSnapshot{Published: published, Failed: failed}
	if attempts := published + failed; attempts > 0 {
		snap.AvgDuration = time.Duration(m.durationTotal.Load() / attempts)
	}
	return snap
}

// Middleware tracks producer metrics
func (m *PublishMetrics) Middleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		m.durationTotal.Add(int64(time.Since(start)))
		if err != nil {
			m.failed.Add(1)
		} else {
			m.published.Add(1)
		}

		return err
	}
}
