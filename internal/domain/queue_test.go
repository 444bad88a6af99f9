package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueItem(t *testing.T) {
	now := time.Now()

	item, err := NewQueueItem("user-1", "dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ", strPtr("Song"), intPtr(213), nil, now)
	require.NoError(t, err)
	assert.Equal(t, "user-1", item.AddedBy)
	assert.Equal(t, "Song", *item.VideoTitle)
	assert.Zero(t, item.ID)

	_, err = NewQueueItem("user-1", "", "https://youtu.be/x", nil, nil, nil, now)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewQueueItem("user-1", "x", "", nil, nil, nil, now)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewQueueItem("user-1", strings.Repeat("x", 65), "https://youtu.be/x", nil, nil, nil, now)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewQueueItem("user-1", "x", "https://youtu.be/x", nil, intPtr(-1), nil, now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQueueItem_Video(t *testing.T) {
	now := time.Unix(1700000000, 0)
	item := QueueItem{ID: 3, VideoID: "abc", VideoURL: "https://youtu.be/abc", VideoTitle: strPtr("T"), Position: 2}

	state := item.Video(now)

	assert.Equal(t, "abc", *state.CurrentVideoID)
	assert.Equal(t, "https://youtu.be/abc", *state.CurrentVideoURL)
	assert.Equal(t, 0.0, state.CurrentPosition)
	assert.True(t, state.IsPlaying)
	assert.Equal(t, now, state.LastUpdated)
}

func TestValidatePositions(t *testing.T) {
	assert.NoError(t, ValidatePositions([]QueuePosition{{ID: 1, Position: 1}, {ID: 2, Position: 0}}))
	assert.ErrorIs(t, ValidatePositions(nil), ErrValidation)
	assert.ErrorIs(t, ValidatePositions([]QueuePosition{{ID: 1, Position: -1}}), ErrValidation)
	assert.ErrorIs(t, ValidatePositions([]QueuePosition{{ID: 1, Position: 0}, {ID: 1, Position: 1}}), ErrValidation)
}
