package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/terrascope/authcore"
	"gorm.io/gorm"
)

// ErrUpdateConflict is returned when an update lost the version race more
// times than the store retries.
var ErrUpdateConflict = errors.New("gormstore: concurrent update conflict")

const defaultMaxRetries = 5

// Store is a gorm-backed authcore.UserStore.
type Store struct {
	db         *gorm.DB
	maxRetries int
	now        func() time.Time
}

var _ authcore.UserStore = (*Store)(nil)

// New wraps db. Call Migrate once before use.
func New(db *gorm.DB) *Store {
	return &Store{db: db, maxRetries: defaultMaxRetries, now: time.Now}
}

// WithMaxRetries sets how many times Update re-reads a row after losing a
// version race.
func (s *Store) WithMaxRetries(n int) *Store {
	if n > 0 {
		s.maxRetries = n
	}
	return s
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Migrate creates or updates the users table.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&userRecord{})
}

func (s *Store) GetByID(ctx context.Context, id string) (authcore.User, error) {
	rec, err := s.find(ctx, "id = ?", id)
	if err != nil {
		return authcore.User{}, err
	}
	return rec.toUser(), nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (authcore.User, error) {
	rec, err := s.find(ctx, "email = ?", authcore.NormalizeEmail(email))
	if err != nil {
		return authcore.User{}, err
	}
	return rec.toUser(), nil
}

func (s *Store) find(ctx context.Context, query string, arg string) (userRecord, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).Where(query, arg).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return userRecord{}, authcore.ErrUserNotFound
		}
		return userRecord{}, err
	}
	return rec, nil
}

// Create inserts u, assigning an ID when it has none. Emails are stored
// normalized; a second account with the same email returns
// authcore.ErrAccountExists.
func (s *Store) Create(ctx context.Context, u authcore.User) (authcore.User, error) {
	rec := recordFromUser(u)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt
	rec.Version = 1

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRecord{}).Where("email = ?", rec.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return authcore.ErrAccountExists
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return authcore.User{}, authcore.ErrAccountExists
		}
		return authcore.User{}, err
	}
	return rec.toUser(), nil
}

// Update applies fn to a fresh copy of the user and writes the result only
// if nobody else wrote the row in between; otherwise it re-reads and calls
// fn again. An error from fn aborts without writing and is returned as is.
func (s *Store) Update(ctx context.Context, id string, fn func(*authcore.User) error) (authcore.User, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		rec, err := s.find(ctx, "id = ?", id)
		if err != nil {
			return authcore.User{}, err
		}

		u := rec.toUser()
		if err := fn(&u); err != nil {
			return authcore.User{}, err
		}

		next := recordFromUser(u)
		next.UpdatedAt = s.now().UTC()
		res := s.db.WithContext(ctx).
			Model(&userRecord{}).
			Where("id = ? AND version = ?", id, rec.Version).
			Updates(map[string]any{
				"email":                         next.Email,
				"password_hash":                 next.PasswordHash,
				"is_email_verified":             next.IsEmailVerified,
				"email_verification_code":       next.EmailVerificationCode,
				"email_verification_expires_at": next.EmailVerificationExpiresAt,
				"is_2fa_enabled":                next.Is2FAEnabled,
				"totp_secret":                   next.TOTPSecret,
				"version":                       rec.Version + 1,
				"updated_at":                    next.UpdatedAt,
			})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return authcore.User{}, authcore.ErrAccountExists
			}
			return authcore.User{}, res.Error
		}
		if res.RowsAffected == 1 {
			u.ID = id
			u.Email = next.Email
			u.CreatedAt = rec.CreatedAt.UTC()
			u.UpdatedAt = next.UpdatedAt
			return u, nil
		}
	}
	return authcore.User{}, fmt.Errorf("%w: user %s", ErrUpdateConflict, id)
}

// List returns users in creation order.
func (s *Store) List(ctx context.Context, offset, limit int) ([]authcore.User, error) {
	if offset < 0 {
		offset = 0
	}
	q := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []userRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]authcore.User, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toUser())
	}
	return out, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
