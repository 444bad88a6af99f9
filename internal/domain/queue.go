package domain

import (
	"errors"
	"time"
)

const maxVideoIDLength = 64

type QueueItem struct {
	ID             int64     `json:"id"`
	VideoID        string    `json:"video_id"`
	VideoURL       string    `json:"video_url"`
	VideoTitle     *string   `json:"video_title"`
	VideoDuration  *int      `json:"video_duration"`
	VideoThumbnail *string   `json:"video_thumbnail"`
	AddedBy        string    `json:"added_by"`
	Position       int       `json:"position"`
	AddedAt        time.Time `json:"added_at"`
}

func (q QueueItem) Clone() QueueItem {
	q.VideoTitle = cloneString(q.VideoTitle)
	q.VideoDuration = cloneInt(q.VideoDuration)
	q.VideoThumbnail = cloneString(q.VideoThumbnail)
	return q
}

// Video returns the playback state that starts this item from the beginning.
func (q QueueItem) Video(now time.Time) VideoState {
	return VideoState{
		CurrentVideoID:       cloneString(&q.VideoID),
		CurrentVideoURL:      cloneString(&q.VideoURL),
		CurrentVideoTitle:    cloneString(q.VideoTitle),
		CurrentVideoDuration: cloneInt(q.VideoDuration),
		CurrentPosition:      0,
		IsPlaying:            true,
		LastUpdated:          now,
	}
}

// QueuePosition moves one queue item to a new position.
type QueuePosition struct {
	ID       int64 `json:"id"`
	Position int   `json:"position"`
}

// NewQueueItem builds an item for the tail of the queue. Position and ID are
// assigned by the store.
func NewQueueItem(addedBy, videoID, videoURL string, title *string, duration *int, thumbnail *string, now time.Time) (*QueueItem, error) {
	switch {
	case videoID == "":
		return nil, newValidationError("video_id", errors.New("this field is required"))
	case len(videoID) > maxVideoIDLength:
		return nil, newValidationError("video_id", errors.New("is too long"))
	case videoURL == "":
		return nil, newValidationError("video_url", errors.New("this field is required"))
	case duration != nil && *duration < 0:
		return nil, newValidationError("video_duration", errors.New("must not be negative"))
	}

	return &QueueItem{
		VideoID:        videoID,
		VideoURL:       videoURL,
		VideoTitle:     cloneString(title),
		VideoDuration:  cloneInt(duration),
		VideoThumbnail: cloneString(thumbnail),
		AddedBy:        addedBy,
		AddedAt:        now,
	}, nil
}

func ValidatePositions(positions []QueuePosition) error {
	if len(positions) == 0 {
		return newValidationError("positions", errors.New("must not be empty"))
	}
	seen := make(map[int64]bool, len(positions))
	for _, p := range positions {
		if p.Position < 0 {
			return newValidationError("positions", errors.New("position must not be negative"))
		}
		if seen[p.ID] {
			return newValidationError("positions", errors.New("duplicate queue item"))
		}
		seen[p.ID] = true
	}
	return nil
}
