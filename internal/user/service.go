package user

import (
	"context"
	"errors"

	"timecafe-be/internal/clock"
	"timecafe-be/internal/logger"

	"go.uber.org/zap"
)

type RegisterInput struct {
	Username    string
	Password    string
	FullName    string
	Email       string
	PhoneNumber *string
	DateOfBirth *string
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*User, string, error)
	Login(ctx context.Context, username, password string) (*User, string, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

type service struct {
	repo Repository
	clk  clock.Clock
}

func NewService(repo Repository, clk clock.Clock) Service {
	return &service{repo: repo, clk: clk}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*User, string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
		zap.String("username", input.Username),
	)

	if existing, err := s.repo.GetByUsername(ctx, input.Username); err == nil && existing != nil {
		return nil, "", ErrUsernameExists
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, "", err
	}

	if existing, err := s.repo.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, "", ErrEmailExists
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, "", err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, "", err
	}

	u := &User{
		Username:     input.Username,
		PasswordHash: hash,
		FullName:     input.FullName,
		Email:        input.Email,
		PhoneNumber:  input.PhoneNumber,
		DateOfBirth:  input.DateOfBirth,
		RegisteredAt: s.clk.Now(),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		log.Error("failed to create user", zap.Error(err))
		return nil, "", err
	}

	token, err := GenerateJWT(u.ID, u.Email)
	if err != nil {
		return nil, "", err
	}

	log.Info("user registered", zap.Int64("user_id", u.ID))
	return u, token, nil
}

func (s *service) Login(ctx context.Context, username, password string) (*User, string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if !CheckPasswordHash(password, u.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := GenerateJWT(u.ID, u.Email)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}
