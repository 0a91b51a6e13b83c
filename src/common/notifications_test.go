package common

import (
	"context"
	"testing"

	"mazza/src/lib"
	"mazza/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxNotifierPersistsThenForwards(t *testing.T) {
	repo := newTestRepo(t)
	next := &recordingNotifier{}
	n := NewInboxNotifier(repo, next)
	user := uuid.New()

	n.Send(context.Background(), lib.NotificationMessage{
		UserID: user,
		Type:   types.NOTIFICATION_ORDER_READY,
		Title:  "Order ready",
		Body:   "Order #00003 is packed and waiting for you.",
		Data:   map[string]string{"orderNumber": "#00003"},
	})

	inbox, err := repo.ListNotifications(context.Background(), user, 10)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, types.NOTIFICATION_ORDER_READY, inbox[0].Type)
	require.NotNil(t, inbox[0].Data)
	assert.Equal(t, "#00003", (*inbox[0].Data)["orderNumber"])
	assert.Nil(t, inbox[0].ReadAt)

	assert.Len(t, next.OfType(types.NOTIFICATION_ORDER_READY), 1)
}
