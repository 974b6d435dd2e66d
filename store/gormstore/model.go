package gormstore

import (
	"time"

	"github.com/terrascope/authcore"
)

type userRecord struct {
	ID                         string     `gorm:"type:varchar(36);primaryKey"`
	Email                      string     `gorm:"type:varchar(254);uniqueIndex;not null"`
	PasswordHash               string     `gorm:"type:text;not null"`
	IsEmailVerified            bool       `gorm:"not null;default:false"`
	EmailVerificationCode      string     `gorm:"type:varchar(10);not null;default:''"`
	EmailVerificationExpiresAt *time.Time `gorm:"column:email_verification_expires_at"`
	Is2FAEnabled               bool       `gorm:"column:is_2fa_enabled;not null;default:false"`
	TOTPSecret                 string     `gorm:"column:totp_secret;type:varchar(128);not null;default:''"`
	Version                    int64      `gorm:"not null;default:1"`
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

func (userRecord) TableName() string {
	return "users"
}

func (r userRecord) toUser() authcore.User {
	u := authcore.User{
		ID:                    r.ID,
		Email:                 r.Email,
		PasswordHash:          r.PasswordHash,
		IsEmailVerified:       r.IsEmailVerified,
		EmailVerificationCode: r.EmailVerificationCode,
		Is2FAEnabled:          r.Is2FAEnabled,
		TOTPSecret:            r.TOTPSecret,
		CreatedAt:             r.CreatedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}
	if r.EmailVerificationExpiresAt != nil {
		exp := r.EmailVerificationExpiresAt.UTC()
		u.EmailVerificationExpiresAt = &exp
	}
	return u
}

func recordFromUser(u authcore.User) userRecord {
	r := userRecord{
		ID:                    u.ID,
		Email:                 authcore.NormalizeEmail(u.Email),
		PasswordHash:          u.PasswordHash,
		IsEmailVerified:       u.IsEmailVerified,
		EmailVerificationCode: u.EmailVerificationCode,
		Is2FAEnabled:          u.Is2FAEnabled,
		TOTPSecret:            u.TOTPSecret,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
	if u.EmailVerificationExpiresAt != nil {
		exp := u.EmailVerificationExpiresAt.UTC()
		r.EmailVerificationExpiresAt = &exp
	}
	return r
}
