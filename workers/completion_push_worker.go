package workers

import (
	"context"

	"learning-portal-system/models"
	"learning-portal-system/services"

	"go.uber.org/zap"
)

// CompletionPushWorker drains the progress store's completion events and
// mirrors each one to the backend. It is purely an observer: the progress
// store never waits on it, and a dead backend only produces warnings.
type CompletionPushWorker struct {
	sync   *services.SyncService
	events <-chan models.CompletionEvent
	log    *zap.SugaredLogger
}

func NewCompletionPushWorker(sync *services.SyncService, events <-chan models.CompletionEvent, log *zap.SugaredLogger) *CompletionPushWorker {
	return &CompletionPushWorker{
		sync:   sync,
		events: events,
		log:    log,
	}
}

// Start blocks until the context is canceled. Run it in its own goroutine.
func (w *CompletionPushWorker) Start(ctx context.Context) {
	w.log.Infow("completion push worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Infow("completion push worker stopping")
			return
		case ev, ok := <-w.events:
			if !ok {
				return
			}
			w.sync.PushCompletion(ctx, ev)
		}
	}
}
