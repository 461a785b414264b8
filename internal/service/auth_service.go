package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tomlord1122/qa-todo-api/internal/domain"
	"github.com/Tomlord1122/qa-todo-api/internal/repository"
	"github.com/Tomlord1122/qa-todo-api/internal/security"
)

type RegisterRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email,max=254"`
	Password string `json:"password" form:"password" validate:"required"`
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  uint   `json:"userId"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type UserResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

type LoginResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

var (
	registerMessages = map[string]string{
		"Email.required":    "email and password are required",
		"Password.required": "email and password are required",
		"Email":             "email address is invalid",
	}
	loginMessages = map[string]string{
		"Email":    "email and password are required",
		"Password": "email and password are required",
	}
)

// AuthService registers users, checks credentials and resolves the acting
// user behind a verified token.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	ResolveUser(ctx context.Context, id security.Identity) (*domain.User, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(userID uint, email string) (string, time.Time, error)
}

type authService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(users repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer, log zerolog.Logger) AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req, registerMessages); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if security.IsPasswordTooLong(err) {
			return nil, domain.NewValidationError("password must be at most 72 bytes")
		}
		return nil, domain.ErrInternal.WithCause(fmt.Errorf("hashing password: %w", err))
	}

	user := &domain.User{Email: req.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Uint("user_id", user.ID).Msg("user registered")
	return &RegisterResponse{
		Success: true,
		Message: "registration complete",
		UserID:  user.ID,
	}, nil
}

// Login answers an unknown email and a wrong password with the same error so
// callers cannot tell which accounts exist.
func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req, loginMessages); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, domain.ErrInternal.WithCause(fmt.Errorf("signing token: %w", err))
	}

	return &LoginResponse{
		Success: true,
		Message: "login successful",
		Token:   token,
		User:    UserResponse{ID: user.ID, Email: user.Email},
	}, nil
}

// ResolveUser loads the user named by a verified token. A token for a user
// that no longer exists yields domain.ErrUserNotFound.
func (s *authService) ResolveUser(ctx context.Context, id security.Identity) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if user.Email != id.Email {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
