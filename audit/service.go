// api/audit/service.go
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/lumenhr/aegis/api/logging"
)

type Service interface {
	RecordDecision(ctx context.Context, entry DecisionLog) error
	QueryDecisions(ctx context.Context, filter QueryFilter) ([]DecisionLog, error)
}

type service struct {
	queue          Enqueuer
	repo           Repository
	enqueueTimeout time.Duration
}

// NewService wires the asynchronous queue in front of the durable repository.
// A nil queue degrades to synchronous writes only.
func NewService(queue Enqueuer, repo Repository, enqueueTimeout time.Duration) Service {
	if enqueueTimeout <= 0 {
		enqueueTimeout = 250 * time.Millisecond
	}
	return &service{queue: queue, repo: repo, enqueueTimeout: enqueueTimeout}
}

// RecordDecision delivers one decision record: enqueue first, synchronous
// repository write when the queue is unavailable. The same record flows down
// both paths.
func (s *service) RecordDecision(ctx context.Context, entry DecisionLog) error {
	if s.queue != nil {
		enqueueCtx, cancel := context.WithTimeout(ctx, s.enqueueTimeout)
		err := s.queue.Enqueue(enqueueCtx, entry)
		cancel()
		if err == nil {
			return nil
		}
		logger.Warn("Decision enqueue failed, falling back to synchronous write",
			zap.String("decisionID", entry.ID), zap.Error(err))
	}
	return s.repo.IndexDecision(ctx, entry)
}

func (s *service) QueryDecisions(ctx context.Context, filter QueryFilter) ([]DecisionLog, error) {
	return s.repo.QueryDecisions(ctx, filter)
}
