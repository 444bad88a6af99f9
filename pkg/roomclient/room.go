package roomclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hilthontt/watchparty/internal/domain"
)

type JoinResponse struct {
	UserID    string           `json:"user_id"`
	Username  string           `json:"username"`
	RoomState domain.RoomState `json:"room_state"`
}

type VideoUpdate struct {
	VideoID         *string `json:"video_id,omitempty"`
	VideoURL        *string `json:"video_url,omitempty"`
	VideoTitle      *string `json:"video_title,omitempty"`
	VideoDuration   *int    `json:"video_duration,omitempty"`
	CurrentPosition float64 `json:"current_position"`
	IsPlaying       bool    `json:"is_playing"`
}

type QueueRequest struct {
	VideoID        string  `json:"video_id"`
	VideoURL       string  `json:"video_url"`
	VideoTitle     *string `json:"video_title,omitempty"`
	VideoDuration  *int    `json:"video_duration,omitempty"`
	VideoThumbnail *string `json:"video_thumbnail,omitempty"`
}

// Join enters the room and keeps the returned identity for later calls.
func (c *Client) Join(ctx context.Context, username string) (*JoinResponse, error) {
	res := &JoinResponse{}
	if err := c.Post(ctx, "/api/join", map[string]string{"username": username}, res); err != nil {
		return nil, err
	}
	c.setToken(res.UserID)
	return res, nil
}

func (c *Client) Leave(ctx context.Context) error {
	if c.Token() == "" {
		return ErrNotJoined
	}
	return c.Post(ctx, "/api/leave", nil, nil)
}

func (c *Client) RoomState(ctx context.Context) (*domain.RoomState, error) {
	res := &domain.RoomState{}
	if err := c.Get(ctx, "/api/room", res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) UpdateVideoState(ctx context.Context, update VideoUpdate) error {
	return c.Put(ctx, "/api/video", update, nil)
}

func (c *Client) NextVideo(ctx context.Context) (*domain.VideoState, error) {
	res := &domain.VideoState{}
	if err := c.Post(ctx, "/api/video/next", nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) AddToQueue(ctx context.Context, req QueueRequest) (*domain.QueueItem, error) {
	res := &domain.QueueItem{}
	if err := c.Post(ctx, "/api/queue", req, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) RemoveFromQueue(ctx context.Context, itemID int64) error {
	return c.Delete(ctx, fmt.Sprintf("/api/queue/%d", itemID), nil)
}

func (c *Client) SendMessage(ctx context.Context, content string) (*domain.Message, error) {
	res := &domain.Message{}
	if err := c.Post(ctx, "/api/messages", map[string]string{"content": content}, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Poll waits for the next room event. A nil event with a nil error means the
// server wait elapsed with nothing to report.
func (c *Client) Poll(ctx context.Context) (*domain.Event, error) {
	ev := &domain.Event{}
	status, err := c.Execute(ctx, http.MethodGet, "/longpoll", nil, ev)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return ev, nil
}
