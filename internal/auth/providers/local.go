package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/pkg/crypto"
)

var (
	// ErrInvalidCredentials covers unknown identities and wrong passwords alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked is returned while a lockout is in force, even for the right password.
	ErrAccountLocked = errors.New("auth: account locked")
	// ErrAccountDisabled is returned for a correct password on a deactivated account.
	ErrAccountDisabled = errors.New("auth: account disabled")
)

// LocalConfig holds the lockout policy. Zero values fall back to 5 attempts and 15 minutes.
type LocalConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Clock            func() time.Time
}

// AuthenticateInput identifies a user by username or email.
type AuthenticateInput struct {
	Identifier string
	Password   string
	IPAddress  string
	UserAgent  string
}

// RegisterInput describes an account created outside the admin API, such as the bootstrap root.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	IsRoot      bool
}

// LocalProvider authenticates against the password hashes in the users table.
type LocalProvider struct {
	db        *gorm.DB
	now       func() time.Time
	threshold int
	lockout   time.Duration
}

func NewLocalProvider(db *gorm.DB, cfg LocalConfig) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("local provider: db is required")
	}
	p := &LocalProvider{db: db, now: time.Now, threshold: 5, lockout: 15 * time.Minute}
	if cfg.LockoutThreshold > 0 {
		p.threshold = cfg.LockoutThreshold
	}
	if cfg.LockoutDuration > 0 {
		p.lockout = cfg.LockoutDuration
	}
	if cfg.Clock != nil {
		p.now = cfg.Clock
	}
	return p, nil
}

// decoyHash is compared against when the identity is unknown so lookups for missing
// accounts cost the same as real ones.
var decoyHash = sync.OnceValue(func() string {
	hashed, _ := crypto.HashPassword("omnikit-decoy-password")
	return hashed
})

// Authenticate checks the password and maintains the failed-attempt counter. Reaching the
// threshold locks the account for the configured duration; an elapsed lock is cleared on
// the next attempt.
func (p *LocalProvider) Authenticate(ctx context.Context, input AuthenticateInput) (*models.User, error) {
	identity := strings.TrimSpace(input.Identifier)
	if identity == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	db := p.db.WithContext(ctx)
	var user models.User
	err := db.Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", identity, identity).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		crypto.VerifyPassword(decoyHash(), input.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("local provider: query user: %w", err)
	}

	now := p.now()
	if user.LockedUntil != nil {
		if user.LockedUntil.After(now) {
			return nil, ErrAccountLocked
		}
		user.LockedUntil = nil
		user.FailedAttempts = 0
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		return nil, p.recordFailure(db, &user, now)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	user.FailedAttempts = 0
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(input.IPAddress)
	updates := map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   user.LastLoginIP,
	}
	// Hashes from an older work factor are upgraded while the plaintext is at hand.
	if crypto.PasswordNeedsRehash(user.Password) {
		if hashed, err := crypto.HashPassword(input.Password); err == nil {
			user.Password = hashed
			updates["password"] = hashed
		}
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("local provider: record login: %w", err)
	}
	return &user, nil
}

func (p *LocalProvider) recordFailure(db *gorm.DB, user *models.User, now time.Time) error {
	user.FailedAttempts++
	updates := map[string]any{
		"failed_attempts": user.FailedAttempts,
		"locked_until":    nil,
	}
	locked := user.FailedAttempts >= p.threshold
	if locked {
		until := now.Add(p.lockout)
		user.LockedUntil = &until
		updates["locked_until"] = until
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("local provider: record failed attempt: %w", err)
	}
	if locked {
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

// Register creates an active account with a bcrypt-hashed password. The email is lower-cased.
func (p *LocalProvider) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, errors.New("local provider: username, email and password are required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("local provider: hash password: %w", err)
	}

	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    hashed,
		DisplayName: strings.TrimSpace(input.DisplayName),
		IsRoot:      input.IsRoot,
		IsActive:    true,
	}
	if err := p.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("local provider: create user: %w", err)
	}
	return user, nil
}
