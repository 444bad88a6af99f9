package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/hilthontt/watchparty/internal/domain"
)

const defaultMessageCapacity = 1000

// memoryStore keeps the whole room in process. Oldest chat messages are
// evicted once messageCapacity is exceeded.
type memoryStore struct {
	users map[string]*domain.User // ID -> User
	video *domain.VideoState
	queue []domain.QueueItem // sorted by position, then ID

	messages        []domain.Message // oldest first
	messageCapacity uint

	nextQueueID   int64
	nextMessageID int64
	mu            *sync.RWMutex
}

func NewMemoryStore(messageCapacity uint) domain.RoomStore {
	if messageCapacity == 0 {
		messageCapacity = defaultMessageCapacity
	}

	return &memoryStore{
		users:           make(map[string]*domain.User),
		messages:        make([]domain.Message, 0, 64),
		messageCapacity: messageCapacity,
		mu:              &sync.RWMutex{},
	}
}

func (r *memoryStore) InsertUser(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u := *user
	r.users[user.ID] = &u
	return nil
}

func (r *memoryStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	u := *user
	return &u, nil
}

func (r *memoryStore) SetUserOffline(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	user.IsOnline = false
	u := *user
	return &u, nil
}

func (r *memoryStore) OnlineUsers(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		if u.IsOnline {
			users = append(users, *u)
		}
	}

	slices.SortFunc(users, func(a, b domain.User) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return users, nil
}

func (r *memoryStore) CurrentVideo(ctx context.Context) (*domain.VideoState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.video == nil {
		return nil, nil
	}

	v := r.video.Clone()
	return &v, nil
}

func (r *memoryStore) SaveVideoState(ctx context.Context, state domain.VideoState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := state.Clone()
	r.video = &v
	return nil
}

func (r *memoryStore) Queue(ctx context.Context) ([]domain.QueueItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]domain.QueueItem, len(r.queue))
	for i, item := range r.queue {
		items[i] = item.Clone()
	}
	return items, nil
}

func (r *memoryStore) Enqueue(ctx context.Context, item *domain.QueueItem) error {
	if item == nil {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	position := 1
	if n := len(r.queue); n > 0 {
		position = r.queue[n-1].Position + 1
	}

	r.nextQueueID++
	item.ID = r.nextQueueID
	item.Position = position

	r.queue = append(r.queue, item.Clone())
	return nil
}

func (r *memoryStore) RemoveQueueItem(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.queue, func(q domain.QueueItem) bool { return q.ID == id })
	if idx < 0 {
		return domain.ErrQueueItemNotFound
	}

	r.removeAt(idx)
	return nil
}

// removeAt deletes the item at idx and shifts later positions down by one.
// Callers hold the write lock.
func (r *memoryStore) removeAt(idx int) domain.QueueItem {
	removed := r.queue[idx]
	r.queue = slices.Delete(r.queue, idx, idx+1)

	for i := range r.queue {
		if r.queue[i].Position > removed.Position {
			r.queue[i].Position--
		}
	}
	return removed
}

func (r *memoryStore) ReorderQueue(ctx context.Context, positions []domain.QueuePosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := make(map[int64]int, len(r.queue))
	for i, item := range r.queue {
		index[item.ID] = i
	}
	for _, p := range positions {
		if _, ok := index[p.ID]; !ok {
			return domain.ErrQueueItemNotFound
		}
	}

	for _, p := range positions {
		r.queue[index[p.ID]].Position = p.Position
	}
	sortQueue(r.queue)
	return nil
}

func (r *memoryStore) AdvanceQueue(ctx context.Context, state func(domain.QueueItem) domain.VideoState) (*domain.VideoState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 {
		return nil, domain.ErrQueueEmpty
	}

	next := r.removeAt(0)
	v := state(next)
	r.video = &v

	out := v.Clone()
	return &out, nil
}

func (r *memoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func sortQueue(items []domain.QueueItem) {
	slices.SortStableFunc(items, func(a, b domain.QueueItem) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
