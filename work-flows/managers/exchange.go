package managers

import (
	"context"

	"ringan/work-flows/models"
)

// Exchange is one in-flight chat request. The user message is already in the
// history; the reply (or a system error message) follows when Done closes.
type Exchange struct {
	RequestID   string
	UserMessage models.ChatMessage

	cancel context.CancelFunc
	done   chan struct{}
	reply  *models.ChatMessage
	err    error
}

func (e *Exchange) Done() <-chan struct{} {
	return e.done
}

// Cancel aborts the request. The exchange still completes with an error.
func (e *Exchange) Cancel() {
	e.cancel()
}

// Wait blocks until the exchange completes or ctx ends.
func (e *Exchange) Wait(ctx context.Context) (*models.ChatMessage, error) {
	select {
	case <-e.done:
		return e.reply, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
