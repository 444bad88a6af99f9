package domain

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type EventType string

const (
	EventVideoUpdate         EventType = "video_update"
	EventUserJoined          EventType = "user_joined"
	EventUserLeft            EventType = "user_left"
	EventQueueUpdated        EventType = "queue_updated"
	EventCurrentVideoChanged EventType = "current_video_changed"
	EventNewMessage          EventType = "new_message"
)

// Payload is the closed set of event bodies. Kinds this build does not know
// decode to UnknownPayload.
type Payload interface {
	Kind() EventType
	clone() Payload
}

// Event is an immutable fan-out message. Seq is stamped by the bus on publish.
type Event struct {
	Type      EventType
	Data      Payload
	Timestamp time.Time
	Seq       uint64
}

func NewEvent(data Payload, now time.Time) Event {
	return Event{
		Type:      data.Kind(),
		Data:      data,
		Timestamp: now,
	}
}

// Clone returns a deep copy that shares no mutable state with e.
func (e Event) Clone() Event {
	if e.Data != nil {
		e.Data = e.Data.clone()
	}
	return e
}

type wireEvent struct {
	EventType EventType       `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Seq       uint64          `json:"seq,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	data := []byte("null")
	if e.Data != nil {
		var err error
		if data, err = json.Marshal(e.Data); err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", e.Type, err)
		}
	}

	return json.Marshal(wireEvent{
		EventType: e.Type,
		Data:      data,
		Timestamp: e.Timestamp.Unix(),
		Seq:       e.Seq,
	})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	data, err := DecodePayload(w.EventType, w.Data)
	if err != nil {
		return err
	}

	*e = Event{
		Type:      w.EventType,
		Data:      data,
		Timestamp: time.Unix(w.Timestamp, 0).UTC(),
		Seq:       w.Seq,
	}
	return nil
}

// EncodeEvent is the wire encoding used by every delivery transport.
func EncodeEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// DecodePayload decodes raw into the variant registered for kind.
func DecodePayload(kind EventType, raw []byte) (Payload, error) {
	var p Payload
	switch kind {
	case EventVideoUpdate:
		p = &VideoUpdated{}
	case EventUserJoined:
		p = &UserJoined{}
	case EventUserLeft:
		p = &UserLeft{}
	case EventQueueUpdated:
		p = &QueueUpdated{}
	case EventCurrentVideoChanged:
		p = &CurrentVideoChanged{}
	case EventNewMessage:
		p = &MessagePosted{}
	default:
		cpy := make(json.RawMessage, len(raw))
		copy(cpy, raw)
		return UnknownPayload{Type: kind, Raw: cpy}, nil
	}

	if len(raw) == 0 {
		raw = []byte("null")
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}

	// Variants are handled by value everywhere else.
	switch v := p.(type) {
	case *VideoUpdated:
		return *v, nil
	case *UserJoined:
		return *v, nil
	case *UserLeft:
		return *v, nil
	case *QueueUpdated:
		return *v, nil
	case *CurrentVideoChanged:
		return *v, nil
	case *MessagePosted:
		return *v, nil
	}
	return p, nil
}

// VideoUpdated mirrors the input of a playback change.
type VideoUpdated struct {
	VideoID         *string `json:"video_id"`
	VideoURL        *string `json:"video_url"`
	VideoTitle      *string `json:"video_title"`
	VideoDuration   *int    `json:"video_duration"`
	CurrentPosition float64 `json:"current_position"`
	IsPlaying       bool    `json:"is_playing"`
	UpdatedBy       string  `json:"updated_by,omitempty"`
}

func (VideoUpdated) Kind() EventType { return EventVideoUpdate }

func (p VideoUpdated) clone() Payload {
	p.VideoID = cloneString(p.VideoID)
	p.VideoURL = cloneString(p.VideoURL)
	p.VideoTitle = cloneString(p.VideoTitle)
	p.VideoDuration = cloneInt(p.VideoDuration)
	return p
}

func NewVideoUpdated(u VideoStateUpdate, updatedBy string) VideoUpdated {
	return VideoUpdated{
		VideoID:         cloneString(u.VideoID),
		VideoURL:        cloneString(u.VideoURL),
		VideoTitle:      cloneString(u.VideoTitle),
		VideoDuration:   cloneInt(u.VideoDuration),
		CurrentPosition: u.CurrentPosition,
		IsPlaying:       u.IsPlaying,
		UpdatedBy:       updatedBy,
	}
}

type UserJoined struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (UserJoined) Kind() EventType   { return EventUserJoined }
func (p UserJoined) clone() Payload { return p }

type UserLeft struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (UserLeft) Kind() EventType   { return EventUserLeft }
func (p UserLeft) clone() Payload { return p }

type QueueAction string

const (
	QueueAdded     QueueAction = "added"
	QueueRemoved   QueueAction = "removed"
	QueueReordered QueueAction = "reordered"
)

type QueueUpdated struct {
	Action    QueueAction     `json:"action"`
	Item      *QueueItem      `json:"item,omitempty"`
	QueueID   *int64          `json:"queue_id,omitempty"`
	Positions []QueuePosition `json:"positions,omitempty"`
}

func (QueueUpdated) Kind() EventType { return EventQueueUpdated }

func (p QueueUpdated) clone() Payload {
	if p.Item != nil {
		item := p.Item.Clone()
		p.Item = &item
	}
	if p.QueueID != nil {
		id := *p.QueueID
		p.QueueID = &id
	}
	if p.Positions != nil {
		p.Positions = append([]QueuePosition(nil), p.Positions...)
	}
	return p
}

type CurrentVideoChanged struct {
	Video     VideoState `json:"video"`
	UpdatedBy string     `json:"updated_by"`
}

func (CurrentVideoChanged) Kind() EventType { return EventCurrentVideoChanged }

func (p CurrentVideoChanged) clone() Payload {
	p.Video = p.Video.Clone()
	return p
}

type MessagePosted struct {
	Message
}

func (MessagePosted) Kind() EventType   { return EventNewMessage }
func (p MessagePosted) clone() Payload { return p }

// UnknownPayload keeps the raw body of a kind this build cannot decode.
type UnknownPayload struct {
	Type EventType
	Raw  json.RawMessage
}

func (p UnknownPayload) Kind() EventType { return p.Type }

func (p UnknownPayload) clone() Payload {
	p.Raw = append(json.RawMessage(nil), p.Raw...)
	return p
}

func (p UnknownPayload) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte("null"), nil
	}
	return p.Raw, nil
}
