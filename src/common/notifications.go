package common

import (
	"context"
	"log"

	"mazza/src/db"
	"mazza/src/lib"
	"mazza/src/models"
	"mazza/src/types"
)

// InboxNotifier stores every message in the user's in-app inbox before
// handing it to the push providers.
type InboxNotifier struct {
	repo *db.Repository
	next lib.Notifier
}

func NewInboxNotifier(repo *db.Repository, next lib.Notifier) *InboxNotifier {
	if next == nil {
		next = lib.LogNotifier{}
	}
	return &InboxNotifier{repo: repo, next: next}
}

func (n *InboxNotifier) Send(ctx context.Context, msg lib.NotificationMessage) {
	var data *types.JSONB
	if len(msg.Data) > 0 {
		d := types.JSONB{}
		for k, v := range msg.Data {
			d[k] = v
		}
		data = &d
	}
	err := n.repo.CreateNotification(ctx, &models.Notification{
		UserID: msg.UserID,
		Type:   msg.Type,
		Title:  msg.Title,
		Body:   msg.Body,
		Data:   data,
	})
	if err != nil {
		log.Printf("[Notify] error saving %s for %s: %s\n", msg.Type, msg.UserID.String(), err.Error())
	}
	n.next.Send(ctx, msg)
}
