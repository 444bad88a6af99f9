package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises behaviour every domain.RoomStore must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) domain.RoomStore) {
	t.Run("users", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		alice := &domain.User{ID: "a-1", Username: "Alice", IsOnline: true, JoinedAt: base, LastSeen: base}
		bob := &domain.User{ID: "b-1", Username: "Bob", IsOnline: true, JoinedAt: base.Add(time.Second), LastSeen: base}
		require.NoError(t, store.InsertUser(ctx, bob))
		require.NoError(t, store.InsertUser(ctx, alice))

		got, err := store.GetUser(ctx, "a-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Username)

		_, err = store.GetUser(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		online, err := store.OnlineUsers(ctx)
		require.NoError(t, err)
		require.Len(t, online, 2)
		assert.Equal(t, "a-1", online[0].ID)
		assert.Equal(t, "b-1", online[1].ID)

		left, err := store.SetUserOffline(ctx, "a-1")
		require.NoError(t, err)
		assert.False(t, left.IsOnline)
		assert.Equal(t, "Alice", left.Username)

		online, err = store.OnlineUsers(ctx)
		require.NoError(t, err)
		require.Len(t, online, 1)
		assert.Equal(t, "b-1", online[0].ID)

		_, err = store.SetUserOffline(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("video state", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		current, err := store.CurrentVideo(ctx)
		require.NoError(t, err)
		assert.Nil(t, current)

		id, title := "abc", "Title"
		require.NoError(t, store.SaveVideoState(ctx, domain.VideoState{CurrentVideoID: &id, CurrentVideoTitle: &title, CurrentPosition: 12.5, IsPlaying: true}))
		require.NoError(t, store.SaveVideoState(ctx, domain.VideoState{CurrentVideoID: &id, CurrentPosition: 20, IsPlaying: false}))

		current, err = store.CurrentVideo(ctx)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "abc", *current.CurrentVideoID)
		assert.Nil(t, current.CurrentVideoTitle)
		assert.Equal(t, 20.0, current.CurrentPosition)
		assert.False(t, current.IsPlaying)
	})

	t.Run("queue", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		var ids []int64
		for i := 0; i < 3; i++ {
			item := &domain.QueueItem{VideoID: fmt.Sprintf("v%d", i), VideoURL: "https://youtu.be/x", AddedBy: "a-1", AddedAt: time.Now()}
			require.NoError(t, store.Enqueue(ctx, item))
			assert.NotZero(t, item.ID)
			assert.Equal(t, i+1, item.Position)
			ids = append(ids, item.ID)
		}

		require.NoError(t, store.RemoveQueueItem(ctx, ids[0]))
		assert.ErrorIs(t, store.RemoveQueueItem(ctx, ids[0]), domain.ErrQueueItemNotFound)

		queue, err := store.Queue(ctx)
		require.NoError(t, err)
		require.Len(t, queue, 2)
		assert.Equal(t, "v1", queue[0].VideoID)
		assert.Equal(t, 1, queue[0].Position)
		assert.Equal(t, 2, queue[1].Position)

		require.NoError(t, store.ReorderQueue(ctx, []domain.QueuePosition{{ID: ids[1], Position: 2}, {ID: ids[2], Position: 1}}))
		assert.ErrorIs(t, store.ReorderQueue(ctx, []domain.QueuePosition{{ID: 999, Position: 0}}), domain.ErrQueueItemNotFound)

		queue, err = store.Queue(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v2", queue[0].VideoID)
		assert.Equal(t, "v1", queue[1].VideoID)

		now := time.Now()
		state, err := store.AdvanceQueue(ctx, func(q domain.QueueItem) domain.VideoState { return q.Video(now) })
		require.NoError(t, err)
		assert.Equal(t, "v2", *state.CurrentVideoID)
		assert.True(t, state.IsPlaying)
		assert.Zero(t, state.CurrentPosition)

		current, err := store.CurrentVideo(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v2", *current.CurrentVideoID)

		queue, err = store.Queue(ctx)
		require.NoError(t, err)
		require.Len(t, queue, 1)
		assert.Equal(t, "v1", queue[0].VideoID)

		_, err = store.AdvanceQueue(ctx, func(q domain.QueueItem) domain.VideoState { return q.Video(now) })
		require.NoError(t, err)
		_, err = store.AdvanceQueue(ctx, func(q domain.QueueItem) domain.VideoState { return q.Video(now) })
		assert.ErrorIs(t, err, domain.ErrQueueEmpty)
	})

	t.Run("messages", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		for i := 0; i < 5; i++ {
			msg := &domain.Message{UserID: "a-1", Username: "Alice", Content: fmt.Sprintf("m%d", i), MessageType: domain.MessageTypeText, CreatedAt: base.Add(time.Duration(i) * time.Second)}
			require.NoError(t, store.InsertMessage(ctx, msg))
			assert.NotZero(t, msg.ID)
		}

		recent, err := store.RecentMessages(ctx, 2, 0)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "m4", recent[0].Content)
		assert.Equal(t, "m3", recent[1].Content)

		page, err := store.RecentMessages(ctx, 10, 3)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "m1", page[0].Content)
		assert.Equal(t, "m0", page[1].Content)

		empty, err := store.RecentMessages(ctx, 10, 50)
		require.NoError(t, err)
		assert.Empty(t, empty)

		assert.ErrorIs(t, store.InsertMessage(ctx, &domain.Message{Content: "orphan"}), domain.ErrInvalidInput)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}
