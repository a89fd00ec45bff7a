package friend

import (
	"context"
	"errors"
	"strings"

	"songmail/internal/domain"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gorm.io/gorm"
)

const maxFieldLength = 64

// Service is the per-user friend directory. The owner id always comes from
// the authenticated session.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var emailRules = []validation.Rule{validation.Required, validation.Length(1, maxFieldLength), is.EmailFormat}

// ValidateEmail applies the rules a stored friend's email must pass.
func ValidateEmail(email string) error {
	return validation.Errors{
		"email": validation.Validate(email, emailRules...),
	}.Filter()
}

func validateFriend(name, email string) error {
	return validation.Errors{
		"name":  validation.Validate(name, validation.Required, validation.RuneLength(1, maxFieldLength)),
		"email": validation.Validate(email, emailRules...),
	}.Filter()
}

// FindOrCreateFriend matches by (owner, name). An existing friend keeps the
// email it was first saved with.
func (s *Service) FindOrCreateFriend(ctx context.Context, ownerID int64, name, email string) (*domain.Friend, error) {
	const op = "friend.FindOrCreate"
	if ownerID <= 0 {
		return nil, domain.Auth(op)
	}

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := validateFriend(name, email); err != nil {
		return nil, domain.Validation(op, err)
	}

	f, err := s.repo.FindOrCreate(ctx, ownerID, name, email)
	if err != nil {
		return nil, domain.Storage(op, err)
	}
	return f, nil
}

func (s *Service) ListFriends(ctx context.Context, ownerID int64) ([]domain.Friend, error) {
	const op = "friend.List"
	if ownerID <= 0 {
		return nil, domain.Auth(op)
	}

	friends, err := s.repo.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, domain.Storage(op, err)
	}
	return friends, nil
}

// GetFriend reports another owner's friend as not found.
func (s *Service) GetFriend(ctx context.Context, ownerID, friendID int64) (*domain.Friend, error) {
	const op = "friend.Get"
	if ownerID <= 0 {
		return nil, domain.Auth(op)
	}

	f, err := s.repo.GetByID(ctx, ownerID, friendID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound(op)
		}
		return nil, domain.Storage(op, err)
	}
	return f, nil
}
