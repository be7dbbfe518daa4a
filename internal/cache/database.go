package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/omnikit/internal/models"
)

// ErrStoreUnavailable is returned by a nil DatabaseStore.
var ErrStoreUnavailable = errors.New("cache: database store not initialised")

// DatabaseStore keeps cache entries in the cache_entries table so they are shared by every
// process that talks to the same database. A zero expiry means the entry never expires.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore returns nil when db is nil.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

func (s *DatabaseStore) session(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreUnavailable
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx), nil
}

// IncrementWithTTL bumps a fixed-window counter. The window opens on the first increment
// and the remaining window is returned with the new count.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	db, err := s.session(ctx)
	if err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	var count int64
	var expiresAt time.Time

	err = db.Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, keyIs(key)).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			count, expiresAt = 1, now.Add(window)
			return tx.Create(&models.CacheEntry{Key: key, Value: encodeCount(count), ExpiresAt: expiresAt}).Error
		case err != nil:
			return err
		}

		if entry.ExpiresAt.After(now) {
			count, expiresAt = decodeCount(entry.Value)+1, entry.ExpiresAt
		} else {
			count, expiresAt = 1, now.Add(window)
		}
		return tx.Model(&entry).Updates(map[string]any{
			"value":      encodeCount(count),
			"expires_at": expiresAt,
		}).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return count, expiresAt.Sub(now), nil
}

// Set upserts key. A non-positive ttl keeps the entry until it is deleted.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	db, err := s.session(ctx)
	if err != nil {
		return err
	}

	entry := models.CacheEntry{Key: key, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl)
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{keyColumn},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

// Get returns the value for key. Expired entries are removed lazily and reported as missing.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	db, err := s.session(ctx)
	if err != nil {
		return nil, false, err
	}

	var entry models.CacheEntry
	err = db.Take(&entry, keyIs(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Expired(s.now()) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Delete removes keys. Missing keys are ignored.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	db, err := s.session(ctx)
	if err != nil || len(keys) == 0 {
		return err
	}
	return db.Where(clause.IN{Column: keyColumn, Values: toValues(keys)}).Delete(&models.CacheEntry{}).Error
}

// PurgeExpired deletes every expired entry and returns how many were removed. It runs as a
// maintenance job.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	db, err := s.session(ctx)
	if err != nil {
		return 0, err
	}
	result := db.Where("expires_at > ? AND expires_at < ?", time.Time{}, s.now()).Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func encodeCount(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}

func decodeCount(raw []byte) int64 {
	n, _ := strconv.ParseInt(string(raw), 10, 64)
	return n
}

// keyColumn is quoted by the dialect; "key" is reserved in MySQL.
var keyColumn = clause.Column{Name: "key"}

func keyIs(key string) clause.Eq {
	return clause.Eq{Column: keyColumn, Value: key}
}

func toValues(keys []string) []any {
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	return values
}
