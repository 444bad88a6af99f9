package domain

import (
	"errors"
	"math"
	"time"
)

// VideoState is the single shared playback state of the room.
type VideoState struct {
	CurrentVideoID       *string   `json:"current_video_id"`
	CurrentVideoURL      *string   `json:"current_video_url"`
	CurrentVideoTitle    *string   `json:"current_video_title"`
	CurrentVideoDuration *int      `json:"current_video_duration"`
	CurrentPosition      float64   `json:"current_position"`
	IsPlaying            bool      `json:"is_playing"`
	LastUpdated          time.Time `json:"last_updated"`
}

func (v VideoState) Clone() VideoState {
	v.CurrentVideoID = cloneString(v.CurrentVideoID)
	v.CurrentVideoURL = cloneString(v.CurrentVideoURL)
	v.CurrentVideoTitle = cloneString(v.CurrentVideoTitle)
	v.CurrentVideoDuration = cloneInt(v.CurrentVideoDuration)
	return v
}

// VideoStateUpdate is the input of a playback change. Every field replaces the
// stored value, including nil references.
type VideoStateUpdate struct {
	VideoID         *string
	VideoURL        *string
	VideoTitle      *string
	VideoDuration   *int
	CurrentPosition float64
	IsPlaying       bool
}

func (u VideoStateUpdate) Validate() error {
	if math.IsNaN(u.CurrentPosition) || math.IsInf(u.CurrentPosition, 0) {
		return newValidationError("current_position", errors.New("must be a finite number"))
	}
	if u.CurrentPosition < 0 {
		return newValidationError("current_position", errors.New("must not be negative"))
	}
	if u.VideoDuration != nil && *u.VideoDuration < 0 {
		return newValidationError("video_duration", errors.New("must not be negative"))
	}
	if u.VideoID != nil && *u.VideoID == "" {
		return newValidationError("video_id", errors.New("must not be empty when present"))
	}
	return nil
}

func (u VideoStateUpdate) Apply(now time.Time) VideoState {
	return VideoState{
		CurrentVideoID:       cloneString(u.VideoID),
		CurrentVideoURL:      cloneString(u.VideoURL),
		CurrentVideoTitle:    cloneString(u.VideoTitle),
		CurrentVideoDuration: cloneInt(u.VideoDuration),
		CurrentPosition:      u.CurrentPosition,
		IsPlaying:            u.IsPlaying,
		LastUpdated:          now,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
