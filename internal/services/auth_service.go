package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feedback-app/internal/models"
	"feedback-app/internal/repository"
	"feedback-app/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type AuthService struct {
	users repository.UserRepository
	jwt   *utils.JWTUtil
	redis *utils.RedisClient
}

// NewAuthService builds the auth service. redis may be nil, then logout
// does not blacklist tokens and they simply expire.
func NewAuthService(users repository.UserRepository, jwt *utils.JWTUtil, redis *utils.RedisClient) *AuthService {
	return &AuthService{users: users, jwt: jwt, redis: redis}
}

func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	user := &models.User{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Role:     req.Role,
	}
	if err := utils.ValidateStruct(user); err != nil {
		return nil, err
	}

	if existing, _ := s.users.GetByUsername(ctx, req.Username, req.Role); existing != nil {
		return nil, fmt.Errorf("username %q already taken", req.Username)
	}

	if err := user.HashPassword(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	user.Password = ""
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username, req.Role)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := user.ComparePassword(req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	user.Password = ""
	return &models.LoginResponse{User: *user, Token: token}, nil
}

// Logout blacklists the token for the remainder of its lifetime.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Set(ctx, fmt.Sprintf("blacklist:%s", token), true, 72*time.Hour)
}

// ValidateToken resolves the identity behind a token, rejecting
// blacklisted ones.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	if s.redis != nil && s.jwt.IsTokenBlacklisted(ctx, tokenString, s.redis) {
		return nil, errors.New("token revoked")
	}

	token, err := s.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	userID, username, role, err := s.jwt.TokenClaims(token)
	if err != nil {
		return nil, err
	}

	return &models.User{ID: userID, Username: username, Role: role}, nil
}

// Merchants lists registered merchant accounts, used by the feedback form.
func (s *AuthService) Merchants(ctx context.Context) ([]models.User, error) {
	merchants, err := s.users.GetByRole(ctx, "merchant")
	if err != nil {
		return nil, err
	}
	for i := range merchants {
		merchants[i].Password = ""
	}
	return merchants, nil
}

// GetByID loads one user record.
func (s *AuthService) GetByID(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}
