// Package room holds the mutation handlers of the shared room. They are the
// only producers of bus events: each one validates its input, writes the
// store, and publishes the matching event before returning.
package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/hilthontt/watchparty/internal/infrastructure/eventbus"
	"github.com/hilthontt/watchparty/internal/infrastructure/logging"
	"github.com/hilthontt/watchparty/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	MaxMessagesPage = 100
	tracerName      = "watchparty/room"
)

type UseCase interface {
	Join(ctx context.Context, username string) (*JoinResult, error)
	Leave(ctx context.Context, userID string) error
	GetRoomState(ctx context.Context) (*domain.RoomState, error)
	UpdateVideoState(ctx context.Context, userID string, update domain.VideoStateUpdate) error
	NextVideo(ctx context.Context, userID string) (*domain.VideoState, error)
	Queue(ctx context.Context) ([]domain.QueueItem, error)
	AddToQueue(ctx context.Context, userID string, in AddToQueueInput) (*domain.QueueItem, error)
	RemoveFromQueue(ctx context.Context, userID string, itemID int64) error
	ReorderQueue(ctx context.Context, userID string, positions []domain.QueuePosition) error
	SendMessage(ctx context.Context, userID, content string, messageType domain.MessageType) (*domain.Message, error)
	GetMessages(ctx context.Context, limit, offset int) ([]domain.Message, error)
}

type JoinResult struct {
	User  *domain.User
	State *domain.RoomState
}

type AddToQueueInput struct {
	VideoID        string
	VideoURL       string
	VideoTitle     *string
	VideoDuration  *int
	VideoThumbnail *string
}

type Option func(*Service)

// WithClock replaces time.Now for event and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHistoryLimit bounds the messages returned in a snapshot.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

type Service struct {
	store        domain.RoomStore
	bus          eventbus.Publisher
	logger       *zap.SugaredLogger
	tracer       trace.Tracer
	now          func() time.Time
	historyLimit int
}

var _ UseCase = (*Service)(nil)

func NewService(store domain.RoomStore, bus eventbus.Publisher, logger *zap.SugaredLogger, opts ...Option) *Service {
	s := &Service{
		store:        store,
		bus:          bus,
		logger:       logging.For(logger, logging.Room, logging.Mutation),
		tracer:       tracing.GetTracer(tracerName),
		now:          time.Now,
		historyLimit: domain.DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Join(ctx context.Context, username string) (*JoinResult, error) {
	ctx, span := s.tracer.Start(ctx, "room.Join")
	defer span.End()

	user, err := domain.NewUser(username, s.now())
	if err != nil {
		return nil, fail(span, err)
	}

	if err := s.store.InsertUser(ctx, user); err != nil {
		return nil, fail(span, fmt.Errorf("failed to insert user: %w", err))
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	s.publish(ctx, "join", domain.UserJoined{UserID: user.ID, Username: user.Username})

	state, err := s.GetRoomState(ctx)
	if err != nil {
		return nil, fail(span, err)
	}

	return &JoinResult{User: user, State: state}, nil
}

func (s *Service) Leave(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "room.Leave", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	user, err := s.store.SetUserOffline(ctx, userID)
	if err != nil {
		return fail(span, fmt.Errorf("failed to mark user offline: %w", err))
	}

	s.publish(ctx, "leave", domain.UserLeft{UserID: user.ID, Username: user.Username})
	return nil
}

func (s *Service) GetRoomState(ctx context.Context) (*domain.RoomState, error) {
	ctx, span := s.tracer.Start(ctx, "room.GetRoomState")
	defer span.End()

	video, err := s.store.CurrentVideo(ctx)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to load current video: %w", err))
	}
	queue, err := s.store.Queue(ctx)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to load queue: %w", err))
	}
	users, err := s.store.OnlineUsers(ctx)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to load users: %w", err))
	}
	messages, err := s.store.RecentMessages(ctx, s.historyLimit, 0)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to load messages: %w", err))
	}

	return &domain.RoomState{
		CurrentVideo: video,
		Queue:        queue,
		Users:        users,
		Messages:     messages,
	}, nil
}

func (s *Service) UpdateVideoState(ctx context.Context, userID string, update domain.VideoStateUpdate) error {
	ctx, span := s.tracer.Start(ctx, "room.UpdateVideoState", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if err := update.Validate(); err != nil {
		return fail(span, err)
	}

	if err := s.store.SaveVideoState(ctx, update.Apply(s.now())); err != nil {
		return fail(span, fmt.Errorf("failed to save video state: %w", err))
	}

	s.publish(ctx, "update_video_state", domain.NewVideoUpdated(update, userID))
	return nil
}

func (s *Service) NextVideo(ctx context.Context, userID string) (*domain.VideoState, error) {
	ctx, span := s.tracer.Start(ctx, "room.NextVideo", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	state, err := s.advance(ctx, userID)
	if err != nil {
		return nil, fail(span, err)
	}
	return state, nil
}

// advance starts the head of the queue and announces it.
func (s *Service) advance(ctx context.Context, userID string) (*domain.VideoState, error) {
	now := s.now()
	state, err := s.store.AdvanceQueue(ctx, func(item domain.QueueItem) domain.VideoState {
		return item.Video(now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance queue: %w", err)
	}

	s.publish(ctx, "next_video", domain.CurrentVideoChanged{Video: state.Clone(), UpdatedBy: userID})
	return state, nil
}

func (s *Service) Queue(ctx context.Context) ([]domain.QueueItem, error) {
	ctx, span := s.tracer.Start(ctx, "room.Queue")
	defer span.End()

	items, err := s.store.Queue(ctx)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to load queue: %w", err))
	}
	return items, nil
}

// AddToQueue appends a video. When nothing has been played yet the queue is
// advanced right away, so the first video added starts playing.
func (s *Service) AddToQueue(ctx context.Context, userID string, in AddToQueueInput) (*domain.QueueItem, error) {
	ctx, span := s.tracer.Start(ctx, "room.AddToQueue", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	item, err := domain.NewQueueItem(userID, in.VideoID, in.VideoURL, in.VideoTitle, in.VideoDuration, in.VideoThumbnail, s.now())
	if err != nil {
		return nil, fail(span, err)
	}

	if err := s.store.Enqueue(ctx, item); err != nil {
		return nil, fail(span, fmt.Errorf("failed to enqueue video: %w", err))
	}

	added := item.Clone()
	s.publish(ctx, "add_to_queue", domain.QueueUpdated{Action: domain.QueueAdded, Item: &added})

	current, err := s.store.CurrentVideo(ctx)
	if err != nil {
		s.logger.Warnw("failed to check current video after enqueue", "error", err)
		return item, nil
	}
	if current == nil || current.CurrentVideoID == nil {
		if _, err := s.advance(ctx, userID); err != nil && !errors.Is(err, domain.ErrQueueEmpty) {
			s.logger.Warnw("failed to start first queued video", "error", err)
		}
	}

	return item, nil
}

func (s *Service) RemoveFromQueue(ctx context.Context, userID string, itemID int64) error {
	ctx, span := s.tracer.Start(ctx, "room.RemoveFromQueue", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int64("queue.item_id", itemID),
	))
	defer span.End()

	if err := s.store.RemoveQueueItem(ctx, itemID); err != nil {
		return fail(span, fmt.Errorf("failed to remove queue item: %w", err))
	}

	id := itemID
	s.publish(ctx, "remove_from_queue", domain.QueueUpdated{Action: domain.QueueRemoved, QueueID: &id})
	return nil
}

func (s *Service) ReorderQueue(ctx context.Context, userID string, positions []domain.QueuePosition) error {
	ctx, span := s.tracer.Start(ctx, "room.ReorderQueue", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if err := domain.ValidatePositions(positions); err != nil {
		return fail(span, err)
	}

	if err := s.store.ReorderQueue(ctx, positions); err != nil {
		return fail(span, fmt.Errorf("failed to reorder queue: %w", err))
	}

	s.publish(ctx, "reorder_queue", domain.QueueUpdated{
		Action:    domain.QueueReordered,
		Positions: append([]domain.QueuePosition(nil), positions...),
	})
	return nil
}

func (s *Service) SendMessage(ctx context.Context, userID, content string, messageType domain.MessageType) (*domain.Message, error) {
	ctx, span := s.tracer.Start(ctx, "room.SendMessage", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to load sender: %w", err))
	}

	msg, err := domain.NewMessage(user, content, messageType, s.now())
	if err != nil {
		return nil, fail(span, err)
	}

	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, fail(span, fmt.Errorf("failed to insert message: %w", err))
	}

	s.publish(ctx, "send_message", domain.MessagePosted{Message: *msg})
	return msg, nil
}

// GetMessages pages through the transcript newest first. A zero limit means
// the configured history size.
func (s *Service) GetMessages(ctx context.Context, limit, offset int) ([]domain.Message, error) {
	ctx, span := s.tracer.Start(ctx, "room.GetMessages")
	defer span.End()

	if limit == 0 {
		limit = s.historyLimit
	}
	switch {
	case limit < 1 || limit > MaxMessagesPage:
		return nil, fail(span, &domain.ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", MaxMessagesPage)})
	case offset < 0:
		return nil, fail(span, &domain.ValidationError{Field: "offset", Reason: "must not be negative"})
	}

	messages, err := s.store.RecentMessages(ctx, limit, offset)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to load messages: %w", err))
	}
	return messages, nil
}

// publish runs after the store write has committed, so a closed bus only
// costs the notification.
func (s *Service) publish(ctx context.Context, op string, data domain.Payload) {
	ev := domain.NewEvent(data, s.now())
	err := s.bus.Publish(ev)
	if err == nil {
		trace.SpanFromContext(ctx).AddEvent("event.published", trace.WithAttributes(
			attribute.String("event.type", string(ev.Type)),
		))
		return
	}

	s.logger.Warnw("event not published",
		logging.Params(map[logging.ExtraKey]any{
			logging.Operation:    op,
			logging.EventType:    ev.Type,
			logging.ErrorMessage: err.Error(),
		})...,
	)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
