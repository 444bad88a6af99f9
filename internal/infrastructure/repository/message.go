package repository

import (
	"context"
	"time"

	"github.com/hilthontt/watchparty/internal/domain"
)

func (r *memoryStore) InsertMessage(ctx context.Context, message *domain.Message) error {
	if message == nil || message.UserID == "" {
		return domain.ErrInvalidInput
	}

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextMessageID++
	message.ID = r.nextMessageID

	r.messages = append(r.messages, *message)

	// Evict oldest if over capacity
	if len(r.messages) > int(r.messageCapacity) {
		excess := len(r.messages) - int(r.messageCapacity)
		r.messages = r.messages[excess:]
	}

	return nil
}

// RecentMessages returns up to limit messages, newest first, skipping the
// offset newest ones.
func (r *memoryStore) RecentMessages(ctx context.Context, limit, offset int) ([]domain.Message, error) {
	if limit < 0 || offset < 0 {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	end := len(r.messages) - offset
	if end <= 0 || limit == 0 {
		return []domain.Message{}, nil
	}
	start := max(end-limit, 0)

	out := make([]domain.Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, r.messages[i])
	}
	return out, nil
}
