package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notekeeper/internal/app/worker"
	"notekeeper/internal/common"
	"notekeeper/internal/common/security"
	"notekeeper/internal/domain/model"
	"notekeeper/internal/domain/repository"

	"go.uber.org/zap"
)

const qrCodeSize = 256

// OTPService drives the two-factor lifecycle:
// disabled -> generated (unverified) -> verified -> disabled.
type OTPService struct {
	userRepo repository.UserRepository
	pool     *worker.Pool
	issuer   string
	now      func() time.Time
	log      *zap.Logger
}

func NewOTPService(userRepo repository.UserRepository, pool *worker.Pool, issuer string, log *zap.Logger) *OTPService {
	return &OTPService{userRepo: userRepo, pool: pool, issuer: issuer, now: time.Now, log: log}
}

// WithClock returns a copy of s that reads time from now.
func (s *OTPService) WithClock(now func() time.Time) *OTPService {
	c := *s
	c.now = now
	return &c
}

type OTPGenerateResponse struct {
	Status     string `json:"status"`
	OTPAuthURL string `json:"otp_auth_url"`
	OTPBase32  string `json:"otp_base32"`
}

// Generate replaces any existing secret with a fresh unverified one.
func (s *OTPService) Generate(ctx context.Context, userID int64) (*OTPGenerateResponse, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := security.GenerateOTPKey(s.issuer, user.Email)
	if err != nil {
		return nil, err
	}

	_, err = s.save(ctx, userID, model.OTPState{
		Enabled:  true,
		Verified: false,
		Base32:   &key.Secret,
		AuthURL:  &key.AuthURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store otp secret: %w", err)
	}

	s.log.Info("otp secret generated", zap.Int64("user_id", userID))
	return &OTPGenerateResponse{Status: "success", OTPAuthURL: key.AuthURL, OTPBase32: key.Secret}, nil
}

// Verify confirms the user's authenticator works and marks the secret verified.
// If the secret is regenerated while the code is being checked, the code is
// rejected and the new secret stays unverified.
func (s *OTPService) Verify(ctx context.Context, userID int64, code string) (*model.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasOTPSecret() {
		return nil, common.ErrOTPNotEnabled
	}
	secret := *user.OTPBase32
	if !security.ValidateOTP(code, secret, s.now()) {
		return nil, common.ErrInvalidOTP
	}

	updated, err := worker.Run(ctx, s.pool, func(ctx context.Context) (*model.User, error) {
		return s.userRepo.MarkOTPVerified(ctx, userID, secret)
	})
	if errors.Is(err, common.ErrNotFound) {
		s.log.Info("otp secret changed during verification", zap.Int64("user_id", userID))
		return nil, common.ErrInvalidOTP
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update otp status: %w", err)
	}
	return updated, nil
}

// ValidateForLogin is the second factor check for an already verified secret.
func (s *OTPService) ValidateForLogin(ctx context.Context, userID int64, code string) (*model.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.OTPVerified || !user.HasOTPSecret() {
		return nil, common.ErrOTPNotVerified
	}
	if !security.ValidateOTP(code, *user.OTPBase32, s.now()) {
		return nil, common.ErrInvalidOTP
	}
	return user, nil
}

func (s *OTPService) Disable(ctx context.Context, userID int64) (*model.User, error) {
	updated, err := s.save(ctx, userID, model.OTPState{})
	if err != nil {
		return nil, fmt.Errorf("failed to disable otp: %w", err)
	}
	s.log.Info("otp disabled", zap.Int64("user_id", userID))
	return updated, nil
}

// QRCode renders the stored provisioning URI as a PNG.
func (s *OTPService) QRCode(ctx context.Context, userID int64) ([]byte, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.OTPEnabled || user.OTPAuthURL == nil || *user.OTPAuthURL == "" {
		return nil, common.ErrOTPNotEnabled
	}
	return security.OTPQRCode(*user.OTPAuthURL, qrCodeSize)
}

func (s *OTPService) load(ctx context.Context, userID int64) (*model.User, error) {
	return worker.Run(ctx, s.pool, func(ctx context.Context) (*model.User, error) {
		return s.userRepo.FindByID(ctx, userID)
	})
}

func (s *OTPService) save(ctx context.Context, userID int64, state model.OTPState) (*model.User, error) {
	return worker.Run(ctx, s.pool, func(ctx context.Context) (*model.User, error) {
		return s.userRepo.SetOTP(ctx, userID, state)
	})
}
