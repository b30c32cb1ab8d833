package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"notekeeper/internal/app/worker"
	"notekeeper/internal/common"
	"notekeeper/internal/common/security"
	"notekeeper/internal/domain/model"
	"notekeeper/internal/domain/repository"

	"go.uber.org/zap"
)

type AuthService struct {
	userRepo repository.UserRepository
	pool     *worker.Pool
	tokens   *security.TokenManager
	cost     int
	log      *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, pool *worker.Pool, tokens *security.TokenManager, bcryptCost int, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, pool: pool, tokens: tokens, cost: bcryptCost, log: log}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type LoginUser struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

type AuthResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// Register creates an account. The first account ever created is an admin.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("username, email and password are required: %w", common.ErrValidation)
	}
	if !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("invalid email address: %w", common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(req.Password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
	}
	err = worker.Do(ctx, s.pool, func(ctx context.Context) error {
		return s.userRepo.Create(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required: %w", common.ErrValidation)
	}

	user, err := worker.Run(ctx, s.pool, func(ctx context.Context) (*model.User, error) {
		return s.userRepo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidLogin
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.checkPassword(user, req.Password) {
		return nil, common.ErrInvalidLogin
	}

	token, err := s.tokens.Issue(user.Email, user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Token: token, User: LoginUser{Email: user.Email, Username: user.Username}}, nil
}

func (s *AuthService) checkPassword(user *model.User, password string) bool {
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.log.Warn("stored password hash could not be checked", zap.Int64("user_id", user.ID), zap.Error(err))
		return false
	}
	return ok
}

func (s *AuthService) Profile(ctx context.Context, userID int64) (*model.User, error) {
	return worker.Run(ctx, s.pool, func(ctx context.Context) (*model.User, error) {
		return s.userRepo.FindByID(ctx, userID)
	})
}

func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	err := worker.Do(ctx, s.pool, func(ctx context.Context) error {
		return s.userRepo.Delete(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.log.Info("user deleted", zap.Int64("user_id", userID))
	return nil
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID int64, req UpdatePasswordRequest) error {
	if req.NewPassword == "" {
		return fmt.Errorf("new password is required: %w", common.ErrValidation)
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !s.checkPassword(user, req.OldPassword) {
		return fmt.Errorf("old password does not match: %w", common.ErrUnauthorized)
	}

	hashed, err := security.HashPassword(req.NewPassword, s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return worker.Do(ctx, s.pool, func(ctx context.Context) error {
		return s.userRepo.UpdatePassword(ctx, userID, hashed)
	})
}

func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	return worker.Run(ctx, s.pool, func(ctx context.Context) ([]model.User, error) {
		return s.userRepo.List(ctx)
	})
}
