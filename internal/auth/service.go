package auth

import (
	"context"
	"errors"
	"time"

	"taskmanager/internal/apperror"
	"taskmanager/internal/models"
	"taskmanager/internal/repository"
	"taskmanager/internal/validation"
	"taskmanager/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=50,excludesall=@?"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      models.Identity `json:"user"`
}

const (
	invalidCredentials = "Invalid credentials"
	tokenFailed        = "Not authorized, token failed"
)

// Service implements registration, login and token-to-identity resolution.
type Service struct {
	users    repository.UserStore
	tokens   *TokenService
	hasher   *Hasher
	validate *validator.Validate
}

func NewService(users repository.UserStore, tokens *TokenService, hasher *Hasher, validate *validator.Validate) *Service {
	return &Service{users: users, tokens: tokens, hasher: hasher, validate: validate}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validation.Error(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			logger.SecurityLogger.Warn("Duplicate registration", zap.String("username", in.Username))
		}
		return nil, err
	}

	logger.AuditLogger.Info("User registered successfully", zap.String("user_id", user.ID))
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validation.Error(err)
	}

	user, err := s.users.FindUserByEmail(ctx, in.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		logger.SecurityLogger.Warn("Login for unknown email", zap.String("email", in.Email))
		return nil, apperror.Unauthenticated(invalidCredentials, err)
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Compare(user.PasswordHash, in.Password) {
		logger.SecurityLogger.Warn("Invalid password", zap.String("user_id", user.ID))
		return nil, apperror.Unauthenticated(invalidCredentials, nil)
	}

	logger.AuditLogger.Info("Login success", zap.String("user_id", user.ID))
	return s.session(user)
}

// Authenticate resolves a bearer token to the user it was issued for.
// Every failure is Unauthenticated; the cause is kept for logging.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperror.Unauthenticated(tokenFailed, err)
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthenticated(tokenFailed, ErrUnknownUser)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: user.Identity()}, nil
}
