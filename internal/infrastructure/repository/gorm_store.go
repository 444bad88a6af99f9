package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/hilthontt/watchparty/internal/infrastructure/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements domain.RoomStore on a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the schema and returns a store backed by db.
func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate room schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (r *GormStore) InsertUser(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(userToModel(user)).Error
}

func (r *GormStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var model userModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return model.toDomain(), nil
}

func (r *GormStore) SetUserOffline(ctx context.Context, id string) (*domain.User, error) {
	var model userModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return err
		}
		model.IsOnline = false
		return tx.Model(&model).Update("is_online", false).Error
	})
	if err != nil {
		return nil, err
	}
	return model.toDomain(), nil
}

func (r *GormStore) OnlineUsers(ctx context.Context) ([]domain.User, error) {
	var models []userModel
	if err := r.db.WithContext(ctx).
		Where("is_online = ?", true).
		Order("joined_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]domain.User, len(models))
	for i := range models {
		users[i] = *models[i].toDomain()
	}
	return users, nil
}

func (r *GormStore) CurrentVideo(ctx context.Context) (*domain.VideoState, error) {
	var model roomStateModel
	if err := r.db.WithContext(ctx).First(&model, roomStateRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.toDomain(), nil
}

func (r *GormStore) SaveVideoState(ctx context.Context, state domain.VideoState) error {
	return saveVideoState(r.db.WithContext(ctx), state)
}

func saveVideoState(tx *gorm.DB, state domain.VideoState) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(videoStateToModel(state)).Error
}

func (r *GormStore) Queue(ctx context.Context) ([]domain.QueueItem, error) {
	var models []queueItemModel
	if err := r.db.WithContext(ctx).Order("position ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	items := make([]domain.QueueItem, len(models))
	for i := range models {
		items[i] = models[i].toDomain()
	}
	return items, nil
}

func (r *GormStore) Enqueue(ctx context.Context, item *domain.QueueItem) error {
	if item == nil {
		return domain.ErrInvalidInput
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition int
		if err := tx.Model(&queueItemModel{}).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}

		model := queueItemToModel(item)
		model.ID = 0
		model.Position = maxPosition + 1
		if err := tx.Create(model).Error; err != nil {
			return err
		}

		item.ID = model.ID
		item.Position = model.Position
		return nil
	})
}

func (r *GormStore) RemoveQueueItem(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model queueItemModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrQueueItemNotFound
			}
			return err
		}
		return removeQueueItem(tx, &model)
	})
}

// removeQueueItem deletes model and closes the gap it leaves.
func removeQueueItem(tx *gorm.DB, model *queueItemModel) error {
	if err := tx.Delete(&queueItemModel{}, model.ID).Error; err != nil {
		return err
	}
	return tx.Model(&queueItemModel{}).
		Where("position > ?", model.Position).
		Update("position", gorm.Expr("position - 1")).Error
}

func (r *GormStore) ReorderQueue(ctx context.Context, positions []domain.QueuePosition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]int64, len(positions))
		for i, p := range positions {
			ids[i] = p.ID
		}

		var found int64
		if err := tx.Model(&queueItemModel{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return err
		}
		if int(found) != len(ids) {
			return domain.ErrQueueItemNotFound
		}

		for _, p := range positions {
			if err := tx.Model(&queueItemModel{}).
				Where("id = ?", p.ID).
				Update("position", p.Position).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormStore) AdvanceQueue(ctx context.Context, state func(domain.QueueItem) domain.VideoState) (*domain.VideoState, error) {
	var next domain.VideoState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var head queueItemModel
		if err := tx.Order("position ASC, id ASC").First(&head).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrQueueEmpty
			}
			return err
		}

		if err := removeQueueItem(tx, &head); err != nil {
			return err
		}

		next = state(head.toDomain())
		return saveVideoState(tx, next)
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (r *GormStore) InsertMessage(ctx context.Context, message *domain.Message) error {
	if message == nil || message.UserID == "" {
		return domain.ErrInvalidInput
	}

	model := messageToModel(message)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	message.ID = model.ID
	return nil
}

func (r *GormStore) RecentMessages(ctx context.Context, limit, offset int) ([]domain.Message, error) {
	if limit < 0 || offset < 0 {
		return nil, domain.ErrInvalidInput
	}
	if limit == 0 {
		return []domain.Message{}, nil
	}

	var models []messageModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error; err != nil {
		return nil, err
	}

	messages := make([]domain.Message, len(models))
	for i := range models {
		messages[i] = models[i].toDomain()
	}
	return messages, nil
}

func (r *GormStore) Ping(ctx context.Context) error {
	return database.Ping(ctx, r.db)
}
