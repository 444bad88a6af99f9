package domain

import "context"

// DefaultHistoryLimit bounds the chat transcript in a room snapshot.
const DefaultHistoryLimit = 50

// RoomState is the full snapshot handed to a joining client.
type RoomState struct {
	CurrentVideo *VideoState `json:"current_video"`
	Queue        []QueueItem `json:"queue"`
	Users        []User      `json:"users"`
	Messages     []Message   `json:"messages"`
}

// RoomStore is the persisted room state. Implementations must be safe for
// concurrent use and make every method appear atomic to readers.
type RoomStore interface {
	InsertUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	// SetUserOffline marks the user offline and returns the updated record.
	SetUserOffline(ctx context.Context, id string) (*User, error)
	OnlineUsers(ctx context.Context) ([]User, error)

	// CurrentVideo returns nil when nothing has been played yet.
	CurrentVideo(ctx context.Context) (*VideoState, error)
	SaveVideoState(ctx context.Context, state VideoState) error

	Queue(ctx context.Context) ([]QueueItem, error)
	// Enqueue appends item at the tail, assigning ID and Position.
	Enqueue(ctx context.Context, item *QueueItem) error
	// RemoveQueueItem deletes the item and closes the gap in positions.
	RemoveQueueItem(ctx context.Context, id int64) error
	ReorderQueue(ctx context.Context, positions []QueuePosition) error
	// AdvanceQueue pops the head of the queue into the current video state.
	AdvanceQueue(ctx context.Context, state func(QueueItem) VideoState) (*VideoState, error)

	InsertMessage(ctx context.Context, message *Message) error
	// RecentMessages returns newest first.
	RecentMessages(ctx context.Context, limit, offset int) ([]Message, error)

	Ping(ctx context.Context) error
}
