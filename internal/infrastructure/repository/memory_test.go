package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) domain.RoomStore {
		return NewMemoryStore(100)
	})
}

func TestMemoryStore_EvictsOldestMessages(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.InsertMessage(ctx, &domain.Message{UserID: "u", Content: fmt.Sprintf("m%d", i)}))
	}

	msgs, err := store.RecentMessages(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m4", msgs[0].Content)
	assert.Equal(t, "m2", msgs[2].Content)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.InsertUser(ctx, &domain.User{ID: "u", Username: "Alice", IsOnline: true}))
	u, err := store.GetUser(ctx, "u")
	require.NoError(t, err)
	u.Username = "Mallory"

	u, err = store.GetUser(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Username)

	title := "t"
	require.NoError(t, store.Enqueue(ctx, &domain.QueueItem{VideoID: "v", VideoURL: "x", VideoTitle: &title}))
	queue, err := store.Queue(ctx)
	require.NoError(t, err)
	*queue[0].VideoTitle = "changed"

	queue, err = store.Queue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t", *queue[0].VideoTitle)
}

func TestMemoryStore_RejectsInvalidInput(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	assert.ErrorIs(t, store.InsertUser(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.InsertUser(ctx, &domain.User{}), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.Enqueue(ctx, nil), domain.ErrInvalidInput)

	_, err := store.RecentMessages(ctx, -1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
