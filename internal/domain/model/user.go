package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not exposed
	Role         string    `json:"role"`
	OTPEnabled   bool      `json:"otp_enabled"`
	OTPVerified  bool      `json:"otp_verified"`
	OTPBase32    *string   `json:"-"`
	OTPAuthURL   *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// OTPState is the full set of two-factor columns written together.
type OTPState struct {
	Enabled  bool
	Verified bool
	Base32   *string
	AuthURL  *string
}

func (u *User) HasOTPSecret() bool {
	return u.OTPBase32 != nil && *u.OTPBase32 != ""
}
