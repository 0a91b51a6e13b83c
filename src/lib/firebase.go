package lib

import (
	"context"
	"log"
	"path"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

func NewFirebaseMessaging(ctx context.Context, secretsDir string) (*messaging.Client, error) {
	opt := option.WithCredentialsFile(path.Join(secretsDir, "admin-sdk-credentials.json"))
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		log.Printf("error initializing app: %s\n", err.Error())
		return nil, err
	}
	msg, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("error initializing FCM: %s\n", err.Error())
		return nil, err
	}
	return msg, nil
}

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier pushes to the per-user topic the mobile apps subscribe to.
type FCMNotifier struct {
	client messageSender
}

func NewFCMNotifier(client *messaging.Client) *FCMNotifier {
	return &FCMNotifier{client: client}
}

func (f *FCMNotifier) Send(ctx context.Context, msg NotificationMessage) {
	data := map[string]string{"type": string(msg.Type)}
	for k, v := range msg.Data {
		data[k] = v
	}
	res, err := f.client.Send(ctx, &messaging.Message{
		Topic: UserTopic(msg.UserID),
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: data,
	})
	if err != nil {
		log.Printf("[FCM] error sending %s to %s: %s\n", msg.Type, msg.UserID.String(), err.Error())
		return
	}
	log.Printf("[FCM] sent %s: %s\n", msg.Type, res)
}
