// Package dedupe guards against the same ticket document being submitted twice.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a submission is remembered.
const DefaultTTL = 24 * time.Hour

// Config holds Redis connection settings.
type Config struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"DEDUPE_TTL" env-default:"24h"`
}

// NewClient connects to Redis and checks the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Guard claims submission keys in Redis. A nil Guard claims every key.
type Guard struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// New creates a guard remembering keys for ttl (DefaultTTL when zero).
func New(rdb redis.Cmdable, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{rdb: rdb, ttl: ttl}
}

// Claim records key and reports whether this is its first submission.
func (g *Guard) Claim(ctx context.Context, key string) (bool, error) {
	if g == nil || g.rdb == nil {
		return true, nil
	}

	ok, err := g.rdb.SetNX(ctx, "uzpass:submission:"+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// Release forgets key so the submission can be retried, e.g. after issuance failed.
func (g *Guard) Release(ctx context.Context, key string) error {
	if g == nil || g.rdb == nil {
		return nil
	}
	if err := g.rdb.Del(ctx, "uzpass:submission:"+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// FileKey is the key of an uploaded file, scoped to a chat.
func FileKey(chatID int64, fileUniqueID string) string {
	return fmt.Sprintf("%d:file:%s", chatID, fileUniqueID)
}

// TextKey is the key of a text submission, scoped to a chat.
func TextKey(chatID int64, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%d:text:%s", chatID, hex.EncodeToString(sum[:]))
}
