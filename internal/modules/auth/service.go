package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"songmail/internal/domain"
	"songmail/internal/repository"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// rememberMeFactor stretches the access token for "keep me logged in".
const rememberMeFactor = 7

var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)

// Service contains all business logic for authentication
type Service struct {
	users UserRepositoryInterface
	jwt   jwtService
}

func NewService(users UserRepositoryInterface, jwt jwtService) *Service {
	return &Service{users: users, jwt: jwt}
}

func validateRegister(req RegisterRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Username,
			validation.Required,
			validation.Length(1, 64),
			validation.Match(usernamePattern).Error("usernames must have only letters, numbers, dots or underscores"),
		),
		validation.Field(&req.Email, validation.Required, validation.Length(1, 64), is.EmailFormat),
		validation.Field(&req.Password, validation.Required),
		validation.Field(&req.PasswordConfirm, validation.Required),
	)
}

// Register creates the account and signs the caller in straight away.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, string, error) {
	const op = "auth.Register"

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validateRegister(req); err != nil {
		return nil, "", domain.Validation(op, err)
	}
	if req.Password != req.PasswordConfirm {
		return nil, "", domain.Validation(op, ErrPasswordMismatch)
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", domain.Storage(op, err)
	}
	if exists {
		return nil, "", ErrEmailAlreadyExists
	}

	taken, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, "", domain.Storage(op, err)
	}
	if taken {
		return nil, "", ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrEmailAlreadyExists
		}
		return nil, "", domain.Storage(op, err)
	}

	token, err := s.jwt.GenerateTokenWithTTL(user.ID, user.Username, s.jwt.TTL())
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", domain.Storage("auth.Login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	ttl := s.jwt.TTL()
	if req.RememberMe {
		ttl *= rememberMeFactor
	}
	token, err := s.jwt.GenerateTokenWithTTL(user.ID, user.Username, ttl)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	const op = "auth.GetCurrentUser"
	if userID <= 0 {
		return nil, domain.Auth(op)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound(op)
		}
		return nil, domain.Storage(op, err)
	}
	user.PasswordHash = ""
	return user, nil
}

// tokenLifetime mirrors the TTL Login picks.
func (s *Service) tokenLifetime(remember bool) time.Duration {
	if remember {
		return s.jwt.TTL() * rememberMeFactor
	}
	return s.jwt.TTL()
}
