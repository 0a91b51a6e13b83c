package lib

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/pusher/pusher-http-go/v5"
)

func NewPusherClient(appID, key, secret, cluster string) *pusher.Client {
	return &pusher.Client{
		AppID:   appID,
		Key:     key,
		Secret:  secret,
		Cluster: cluster,
		Secure:  true,
	}
}

type eventTrigger interface {
	Trigger(channel string, eventName string, data interface{}) error
}

// PusherNotifier forwards notifications to the user's private realtime channel,
// which the seller dashboard and the buyer web app listen on.
type PusherNotifier struct {
	client eventTrigger
}

func NewPusherNotifier(client *pusher.Client) *PusherNotifier {
	return &PusherNotifier{client: client}
}

func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("private-user-%s", userID.String())
}

func (p *PusherNotifier) Send(_ context.Context, msg NotificationMessage) {
	payload := map[string]any{
		"title": msg.Title,
		"body":  msg.Body,
		"data":  msg.Data,
	}
	if err := p.client.Trigger(UserChannel(msg.UserID), string(msg.Type), payload); err != nil {
		log.Printf("[Pusher] error triggering %s for %s: %s\n", msg.Type, msg.UserID.String(), err.Error())
	}
}
