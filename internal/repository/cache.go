package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // default 24h
	Prefix   string        // default "certverify:"
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// CachedSubmissions puts a Redis read-through cache in front of approved-hash
// lookups. Only hits are cached; other status sets go straight to the store.
// A cached hit is rechecked with StatusByID before it is returned.
type CachedSubmissions struct {
	next   SubmissionRepository
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCachedSubmissions(next SubmissionRepository, rdb *redis.Client, cfg RedisConfig, logger *slog.Logger) *CachedSubmissions {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "certverify:"
	}
	return &CachedSubmissions{next: next, rdb: rdb, ttl: cfg.TTL, prefix: cfg.Prefix, logger: logger}
}

func (c *CachedSubmissions) key(hash string) string {
	return c.prefix + "approved:" + hash
}

func (c *CachedSubmissions) FindByHash(ctx context.Context, hash string, statuses ...constants.SubmissionStatus) (*entity.SubmissionRecord, error) {
	if !sameStatuses(statuses, constants.ApprovedStatuses) {
		return c.next.FindByHash(ctx, hash, statuses...)
	}

	raw, err := c.rdb.Get(ctx, c.key(hash)).Bytes()
	switch {
	case err == nil:
		var rec entity.SubmissionRecord
		if jerr := json.Unmarshal(raw, &rec); jerr != nil {
			c.logger.Warn("dropping undecodable cache entry", "hash", hash)
			_ = c.rdb.Del(ctx, c.key(hash)).Err()
			break
		}
		// Reviews happen outside this service, so a cached approval is only
		// served while the row is still approved.
		status, ok, serr := c.next.StatusByID(ctx, rec.ID)
		if serr != nil {
			c.logger.Warn("submission status recheck failed", "hash", hash, "id", rec.ID, "error", serr)
			break
		}
		if ok && slices.Contains(statuses, status) {
			c.logger.Debug("submission cache hit", "hash", hash)
			rec.Status = status
			return &rec, nil
		}
		c.logger.Info("dropping stale cache entry", "hash", hash, "id", rec.ID, "status", status)
		_ = c.rdb.Del(ctx, c.key(hash)).Err()
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("submission cache read failed", "hash", hash, "error", err)
	}

	rec, err := c.next.FindByHash(ctx, hash, statuses...)
	if err != nil || rec == nil {
		return rec, err
	}
	if data, jerr := json.Marshal(rec); jerr == nil {
		if serr := c.rdb.Set(ctx, c.key(hash), data, c.ttl).Err(); serr != nil {
			c.logger.Warn("submission cache write failed", "hash", hash, "error", serr)
		}
	}
	return rec, nil
}

func (c *CachedSubmissions) StatusByID(ctx context.Context, id int64) (constants.SubmissionStatus, bool, error) {
	return c.next.StatusByID(ctx, id)
}

func (c *CachedSubmissions) Insert(ctx context.Context, rec entity.SubmissionRecord) error {
	if err := c.next.Insert(ctx, rec); err != nil {
		return err
	}
	// A new row can change which record is newest for this hash.
	if err := c.rdb.Del(ctx, c.key(rec.ContentHash)).Err(); err != nil {
		c.logger.Warn("submission cache invalidation failed", "hash", rec.ContentHash, "error", err)
	}
	return nil
}

func sameStatuses(a, b []constants.SubmissionStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		if !slices.Contains(b, s) {
			return false
		}
	}
	return true
}
