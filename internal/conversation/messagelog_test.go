// ABOUTME: Tests for the append-only MessageLog
// ABOUTME: Covers ordering, first-append creation, concurrent appends, and failure reporting

package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ragchat/internal/ids"
	"github.com/2389/ragchat/internal/store"
)

func TestMessageLog_AppendCreatesAndOrders(t *testing.T) {
	s := store.NewMockStore()
	log := NewMessageLog(s, ids.NewCounter(1), nil)
	ctx := context.Background()

	msgs, err := log.Get(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, log.Append(ctx, log.NewMessage(5, store.SenderUser, "Hello world", nil)))
	require.NoError(t, log.Append(ctx, log.NewMessage(5, store.SenderAssistant, "Hi", []store.Source{{Title: "doc"}})))

	msgs, err = log.Get(ctx, 5)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, store.SenderUser, msgs[0].Sender)
	assert.Equal(t, "Hello world", msgs[0].Content)
	assert.Equal(t, store.SenderAssistant, msgs[1].Sender)
	assert.Equal(t, "doc", msgs[1].Sources[0].Title)
	assert.Less(t, msgs[0].ID, msgs[1].ID)
}

func TestMessageLog_AppendAssignsMissingID(t *testing.T) {
	log := NewMessageLog(store.NewMockStore(), ids.NewCounter(50), nil)
	msg := &store.Message{ConversationID: 1, Sender: store.SenderUser, Content: "x"}

	require.NoError(t, log.Append(context.Background(), msg))
	assert.Equal(t, int64(50), msg.ID)
}

func TestMessageLog_AppendRejectsMissingConversation(t *testing.T) {
	log := NewMessageLog(store.NewMockStore(), ids.NewCounter(1), nil)
	err := log.Append(context.Background(), &store.Message{Sender: store.SenderUser, Content: "x"})
	assert.ErrorIs(t, err, ErrNoConversation)
}

func TestMessageLog_AppendStoresCopy(t *testing.T) {
	log := NewMessageLog(store.NewMockStore(), ids.NewCounter(1), nil)
	ctx := context.Background()

	msg := log.NewMessage(3, store.SenderUser, "original", nil)
	require.NoError(t, log.Append(ctx, msg))
	msg.Content = "mutated"

	msgs, err := log.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "original", msgs[0].Content)
}

func TestMessageLog_StoreFailureLeavesSequenceIntact(t *testing.T) {
	s := store.NewMockStore()
	log := NewMessageLog(s, ids.NewCounter(1), nil)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, log.NewMessage(3, store.SenderUser, "kept", nil)))

	boom := errors.New("disk full")
	s.SetFailures(nil, nil, nil, boom)
	assert.ErrorIs(t, log.Append(ctx, log.NewMessage(3, store.SenderAssistant, "lost", nil)), boom)
	s.SetFailures(nil, nil, nil, nil)

	msgs, err := log.Get(ctx, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "kept", msgs[0].Content)
}

func TestMessageLog_ConcurrentAppendsAreNotLost(t *testing.T) {
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	defer st.Close()

	log := NewMessageLog(st, ids.NewSequence(), nil)
	ctx := context.Background()

	const writers, perWriter = 8, 10
	var wg sync.WaitGroup
	for range writers {
		wg.Go(func() {
			for range perWriter {
				assert.NoError(t, log.Append(ctx, log.NewMessage(1, store.SenderUser, "m", nil)))
			}
		})
	}
	wg.Wait()

	msgs, err := log.Get(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, msgs, writers*perWriter)
}

func TestMessageLog_ToleratesDeletedConversation(t *testing.T) {
	s := store.NewMockStore()
	log := NewMessageLog(s, ids.NewCounter(1), nil)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, log.NewMessage(8, store.SenderUser, "a", nil)))
	require.NoError(t, s.DeleteMessages(ctx, 8))

	msgs, err := log.Get(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, log.Append(ctx, log.NewMessage(8, store.SenderAssistant, "b", nil)))
	msgs, err = log.Get(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
