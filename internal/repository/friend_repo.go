package repository

import (
	"context"
	"time"

	"songmail/internal/domain"

	"gorm.io/gorm"
)

// friendModel keeps the legacy "person" table name.
type friendModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_person_owner_name,priority:1"`
	Name      string    `gorm:"column:name;size:64;not null;uniqueIndex:idx_person_owner_name,priority:2"`
	Email     string    `gorm:"column:email;size:64;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (friendModel) TableName() string { return "person" }

func toDomainFriend(m friendModel) *domain.Friend {
	return &domain.Friend{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
	}
}

// FriendRepository never touches a row without filtering by its owner.
type FriendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

// FindOrCreate returns the owner's friend with this name, inserting it when
// absent. The stored email of an existing friend is left as is.
func (r *FriendRepository) FindOrCreate(ctx context.Context, userID int64, name, email string) (*domain.Friend, error) {
	var m friendModel
	err := inTx(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		m = friendModel{UserID: userID, Name: name, Email: email}
		return firstOrInsert(tx, &m, "user_id = ? AND name = ?", userID, name)
	})
	if err != nil {
		return nil, err
	}
	return toDomainFriend(m), nil
}

func (r *FriendRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Friend, error) {
	var rows []friendModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	friends := make([]domain.Friend, len(rows))
	for i, row := range rows {
		friends[i] = *toDomainFriend(row)
	}
	return friends, nil
}

// GetByID returns gorm.ErrRecordNotFound for ids owned by someone else.
func (r *FriendRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Friend, error) {
	var m friendModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return toDomainFriend(m), nil
}
