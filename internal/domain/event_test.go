package domain

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_WireShape(t *testing.T) {
	ts := time.Unix(1700000000, 0).UTC()
	ev := NewEvent(UserJoined{UserID: "u1", Username: "Alice"}, ts)
	ev.Seq = 7

	b, err := EncodeEvent(ev)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"event_type":"user_joined","data":{"user_id":"u1","username":"Alice"},"timestamp":1700000000,"seq":7}`,
		string(b))
}

func TestEvent_VideoUpdateWire(t *testing.T) {
	ev := NewEvent(NewVideoUpdated(VideoStateUpdate{VideoID: strPtr("abc"), CurrentPosition: 42.5, IsPlaying: true}, "u1"), time.Unix(10, 0))

	b, err := EncodeEvent(ev)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "video_update", raw["event_type"])

	data := raw["data"].(map[string]any)
	assert.Equal(t, "abc", data["video_id"])
	assert.Nil(t, data["video_url"])
	assert.Equal(t, 42.5, data["current_position"])
	assert.Equal(t, true, data["is_playing"])
}

func TestEvent_RoundTripKnownKinds(t *testing.T) {
	ts := time.Unix(1700000000, 0).UTC()
	id := int64(4)
	payloads := []Payload{
		NewVideoUpdated(VideoStateUpdate{VideoID: strPtr("abc"), VideoDuration: intPtr(90), CurrentPosition: 1.5}, "u1"),
		UserJoined{UserID: "u1", Username: "Alice"},
		UserLeft{UserID: "u1", Username: "Alice"},
		QueueUpdated{Action: QueueRemoved, QueueID: &id},
		QueueUpdated{Action: QueueReordered, Positions: []QueuePosition{{ID: 1, Position: 0}}},
		CurrentVideoChanged{Video: VideoState{CurrentVideoID: strPtr("x"), IsPlaying: true, LastUpdated: ts}, UpdatedBy: "u2"},
		MessagePosted{Message{ID: 9, UserID: "u1", Username: "Alice", Content: "hi", MessageType: MessageTypeText, CreatedAt: ts}},
	}

	for _, p := range payloads {
		t.Run(string(p.Kind()), func(t *testing.T) {
			ev := NewEvent(p, ts)
			b, err := json.Marshal(ev)
			require.NoError(t, err)

			var got Event
			require.NoError(t, json.Unmarshal(b, &got))
			assert.Equal(t, ev.Type, got.Type)
			assert.Equal(t, ev.Timestamp, got.Timestamp)
			assert.Equal(t, p, got.Data)
		})
	}
}

func TestDecodePayload_UnknownKindPreserved(t *testing.T) {
	raw := []byte(`{"emoji":"🎉"}`)

	p, err := DecodePayload("reaction", raw)
	require.NoError(t, err)

	unknown, ok := p.(UnknownPayload)
	require.True(t, ok)
	assert.Equal(t, EventType("reaction"), unknown.Kind())
	assert.JSONEq(t, string(raw), string(unknown.Raw))

	b, err := EncodeEvent(Event{Type: "reaction", Data: p, Timestamp: time.Unix(1, 0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event_type":"reaction","data":{"emoji":"🎉"},"timestamp":1}`, string(b))
}

func TestDecodePayload_BadBody(t *testing.T) {
	_, err := DecodePayload(EventUserJoined, []byte(`{"user_id":5}`))
	assert.Error(t, err)
}

func TestEvent_CloneIsDeep(t *testing.T) {
	item := &QueueItem{ID: 1, VideoID: "a", VideoTitle: strPtr("Title")}
	orig := NewEvent(QueueUpdated{Action: QueueAdded, Item: item, Positions: []QueuePosition{{ID: 1}}}, time.Now())

	cpy := orig.Clone()
	got := cpy.Data.(QueueUpdated)
	got.Item.VideoID = "b"
	*got.Item.VideoTitle = "Other"
	got.Positions[0].Position = 5

	src := orig.Data.(QueueUpdated)
	assert.Equal(t, "a", src.Item.VideoID)
	assert.Equal(t, "Title", *src.Item.VideoTitle)
	assert.Equal(t, 0, src.Positions[0].Position)
}
