package lib

import (
	"context"
	"fmt"
	"log"

	"mazza/src/types"

	"github.com/google/uuid"
)

type NotificationMessage struct {
	UserID uuid.UUID
	Type   types.NotificationType
	Title  string
	Body   string
	Data   map[string]string
}

// Notifier delivers a message to a user. Delivery is best effort: failures are
// logged by the implementation and never reach the caller.
type Notifier interface {
	Send(ctx context.Context, msg NotificationMessage)
}

func UserTopic(userID uuid.UUID) string {
	return fmt.Sprintf("user_%s", userID.String())
}

type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg NotificationMessage) {
	log.Printf("[Notify] %s -> %s: %s\n", msg.Type, msg.UserID.String(), msg.Title)
}

// MultiNotifier fans a message out to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Send(ctx context.Context, msg NotificationMessage) {
	for _, n := range m {
		n.Send(ctx, msg)
	}
}

// AsyncNotifier hands messages to the wrapped notifier on a new goroutine so
// request handlers never wait on push providers.
type AsyncNotifier struct {
	Inner Notifier
}

func (a AsyncNotifier) Send(ctx context.Context, msg NotificationMessage) {
	go a.Inner.Send(context.WithoutCancel(ctx), msg)
}
