package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/marcosilvestroni/summarize-commits/internal/ports"
)

// RefreshPublisher queues refresh requests; amqp.Client satisfies it.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, requestedBy string) error
}

// QueueRefresher hands refreshes to the worker instead of running them.
type QueueRefresher struct {
	publisher   RefreshPublisher
	requestedBy string
}

func NewQueueRefresher(publisher RefreshPublisher, requestedBy string) *QueueRefresher {
	return &QueueRefresher{publisher: publisher, requestedBy: requestedBy}
}

// Refresh implements ports.Refresher
func (q *QueueRefresher) Refresh(ctx context.Context) (ports.RunResult, error) {
	if err := q.publisher.PublishRefresh(ctx, q.requestedBy); err != nil {
		return ports.RunResult{}, fmt.Errorf("queue refresh: %w", err)
	}
	return ports.RunResult{Queued: true, FinishedAt: time.Now()}, nil
}
