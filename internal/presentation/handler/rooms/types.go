package rooms

import "github.com/hilthontt/watchparty/internal/domain"

type joinRequest struct {
	Username string `json:"username"`
}

type joinResponse struct {
	UserID    string            `json:"user_id"`
	Username  string            `json:"username"`
	RoomState *domain.RoomState `json:"room_state"`
}

type updateVideoRequest struct {
	VideoID         *string  `json:"video_id" validate:"omitempty,max=64"`
	VideoURL        *string  `json:"video_url" validate:"omitempty,url"`
	VideoTitle      *string  `json:"video_title"`
	VideoDuration   *int     `json:"video_duration" validate:"omitempty,gte=0"`
	CurrentPosition *float64 `json:"current_position" validate:"required,gte=0"`
	IsPlaying       *bool    `json:"is_playing" validate:"required"`
}

func (r updateVideoRequest) toDomain() domain.VideoStateUpdate {
	return domain.VideoStateUpdate{
		VideoID:         r.VideoID,
		VideoURL:        r.VideoURL,
		VideoTitle:      r.VideoTitle,
		VideoDuration:   r.VideoDuration,
		CurrentPosition: *r.CurrentPosition,
		IsPlaying:       *r.IsPlaying,
	}
}

type addToQueueRequest struct {
	VideoID        string  `json:"video_id" validate:"required,max=64"`
	VideoURL       string  `json:"video_url" validate:"required,url"`
	VideoTitle     *string `json:"video_title" validate:"omitempty,max=200"`
	VideoDuration  *int    `json:"video_duration" validate:"omitempty,gte=0"`
	VideoThumbnail *string `json:"video_thumbnail" validate:"omitempty,url"`
}

type reorderQueueRequest struct {
	Positions []domain.QueuePosition `json:"positions" validate:"required,min=1,dive"`
}

type queueResponse struct {
	Queue []domain.QueueItem `json:"queue"`
}

type sendMessageRequest struct {
	Content     string             `json:"content"`
	MessageType domain.MessageType `json:"message_type"`
}

type messagesResponse struct {
	Messages []domain.Message `json:"messages"`
}
