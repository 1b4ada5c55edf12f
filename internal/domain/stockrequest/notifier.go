package stockrequest

import (
	"context"

	"github.com/google/uuid"
)

// NoticeAction identifies the kind of screen update a notice asks for.
type NoticeAction string

const (
	// NoticeHidden tells operator screens to drop the request from
	// their working lists. Sent when a request reaches a terminal
	// status or moves out of the screen's stage.
	NoticeHidden NoticeAction = "hidden"
	// NoticeUpdated tells operator screens to refetch the request.
	NoticeUpdated NoticeAction = "updated"
)

// Notice is a fire-and-forget presence message for operator screens.
// Delivery is best effort: screens reconcile on their next poll anyway.
type Notice struct {
	Action    NoticeAction `json:"action"`
	RequestID uuid.UUID    `json:"request_id"`
	Status    Status       `json:"status"`
	Timestamp int64        `json:"timestamp"`
}

// Notifier broadcasts notices to all connected instances.
type Notifier interface {
	Publish(ctx context.Context, n Notice) error
	Subscribe(ctx context.Context, fn func(Notice)) error
	Close() error
}

// NopNotifier discards all notices.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, Notice) error                 { return nil }
func (NopNotifier) Subscribe(ctx context.Context, _ func(Notice)) error   { <-ctx.Done(); return ctx.Err() }
func (NopNotifier) Close() error                                          { return nil }
