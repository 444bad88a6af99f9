package repository

import (
	"time"

	"github.com/hilthontt/watchparty/internal/domain"
)

type userModel struct {
	ID       string    `gorm:"type:varchar(36);primaryKey"`
	Username string    `gorm:"type:varchar(80);not null"`
	IsOnline bool      `gorm:"index;not null"`
	JoinedAt time.Time `gorm:"not null"`
	LastSeen time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:       m.ID,
		Username: m.Username,
		IsOnline: m.IsOnline,
		JoinedAt: m.JoinedAt,
		LastSeen: m.LastSeen,
	}
}

func userToModel(u *domain.User) *userModel {
	return &userModel{
		ID:       u.ID,
		Username: u.Username,
		IsOnline: u.IsOnline,
		JoinedAt: u.JoinedAt,
		LastSeen: u.LastSeen,
	}
}

// roomStateModel holds the single shared playback row.
type roomStateModel struct {
	ID                   int `gorm:"primaryKey;autoIncrement:false"`
	CurrentVideoID       *string
	CurrentVideoURL      *string
	CurrentVideoTitle    *string
	CurrentVideoDuration *int
	CurrentPosition      float64 `gorm:"not null;default:0"`
	IsPlaying            bool    `gorm:"not null;default:false"`
	LastUpdated          time.Time
}

const roomStateRowID = 1

func (roomStateModel) TableName() string { return "room_state" }

func (m *roomStateModel) toDomain() *domain.VideoState {
	return &domain.VideoState{
		CurrentVideoID:       m.CurrentVideoID,
		CurrentVideoURL:      m.CurrentVideoURL,
		CurrentVideoTitle:    m.CurrentVideoTitle,
		CurrentVideoDuration: m.CurrentVideoDuration,
		CurrentPosition:      m.CurrentPosition,
		IsPlaying:            m.IsPlaying,
		LastUpdated:          m.LastUpdated,
	}
}

func videoStateToModel(v domain.VideoState) *roomStateModel {
	v = v.Clone()
	return &roomStateModel{
		ID:                   roomStateRowID,
		CurrentVideoID:       v.CurrentVideoID,
		CurrentVideoURL:      v.CurrentVideoURL,
		CurrentVideoTitle:    v.CurrentVideoTitle,
		CurrentVideoDuration: v.CurrentVideoDuration,
		CurrentPosition:      v.CurrentPosition,
		IsPlaying:            v.IsPlaying,
		LastUpdated:          v.LastUpdated,
	}
}

type queueItemModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	VideoID        string `gorm:"type:varchar(64);not null"`
	VideoURL       string `gorm:"type:text;not null"`
	VideoTitle     *string
	VideoDuration  *int
	VideoThumbnail *string
	AddedBy        string    `gorm:"type:varchar(36);not null"`
	Position       int       `gorm:"index;not null"`
	AddedAt        time.Time `gorm:"not null"`
}

func (queueItemModel) TableName() string { return "queue" }

func (m *queueItemModel) toDomain() domain.QueueItem {
	return domain.QueueItem{
		ID:             m.ID,
		VideoID:        m.VideoID,
		VideoURL:       m.VideoURL,
		VideoTitle:     m.VideoTitle,
		VideoDuration:  m.VideoDuration,
		VideoThumbnail: m.VideoThumbnail,
		AddedBy:        m.AddedBy,
		Position:       m.Position,
		AddedAt:        m.AddedAt,
	}
}

func queueItemToModel(q *domain.QueueItem) *queueItemModel {
	c := q.Clone()
	return &queueItemModel{
		ID:             c.ID,
		VideoID:        c.VideoID,
		VideoURL:       c.VideoURL,
		VideoTitle:     c.VideoTitle,
		VideoDuration:  c.VideoDuration,
		VideoThumbnail: c.VideoThumbnail,
		AddedBy:        c.AddedBy,
		Position:       c.Position,
		AddedAt:        c.AddedAt,
	}
}

type messageModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	UserID      string    `gorm:"type:varchar(36);index;not null"`
	Username    string    `gorm:"type:varchar(80);not null"`
	Content     string    `gorm:"type:text;not null"`
	MessageType string    `gorm:"type:varchar(20);not null;default:'text'"`
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (messageModel) TableName() string { return "messages" }

func (m *messageModel) toDomain() domain.Message {
	return domain.Message{
		ID:          m.ID,
		UserID:      m.UserID,
		Username:    m.Username,
		Content:     m.Content,
		MessageType: domain.MessageType(m.MessageType),
		CreatedAt:   m.CreatedAt,
	}
}

func messageToModel(msg *domain.Message) *messageModel {
	return &messageModel{
		ID:          msg.ID,
		UserID:      msg.UserID,
		Username:    msg.Username,
		Content:     msg.Content,
		MessageType: string(msg.MessageType),
		CreatedAt:   msg.CreatedAt,
	}
}

func allModels() []any {
	return []any{&userModel{}, &roomStateModel{}, &queueItemModel{}, &messageModel{}}
}
