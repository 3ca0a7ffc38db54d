package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/clinic-concierge/internal/platform/envutil"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Addr:      envutil.String("REDIS_ADDR", ""),
		Password:  envutil.String("REDIS_PASSWORD", ""),
		DB:        envutil.Int("REDIS_DB", 0),
		KeyPrefix: envutil.String("DEDUP_KEY_PREFIX", "cc:msg:"),
		TTL:       envutil.Seconds("DEDUP_TTL_SECONDS", 24*time.Hour),
	}
}

// Deduper remembers inbound message ids so that gateway redeliveries are
// processed at most once per TTL.
type Deduper interface {
	// Claim marks id as in progress. It returns false when id was already
	// claimed and not released.
	Claim(ctx context.Context, id string) (bool, error)
	// Release forgets id so a later redelivery is processed again.
	Release(ctx context.Context, id string) error
	Client() goredis.UniversalClient
	Close() error
}

type deduper struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewDeduper(log *logger.Logger, cfg Config) (Deduper, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newDeduper(log, rdb, cfg), nil
}

func newDeduper(log *logger.Logger, rdb goredis.UniversalClient, cfg Config) *deduper {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "cc:msg:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &deduper{
		log:    log.With("service", "RedisDeduper"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (d *deduper) key(id string) string { return d.prefix + id }

func (d *deduper) Claim(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return true, nil
	}
	ok, err := d.rdb.SetNX(ctx, d.key(id), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (d *deduper) Release(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if err := d.rdb.Del(ctx, d.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (d *deduper) Client() goredis.UniversalClient { return d.rdb }

func (d *deduper) Close() error {
	if d == nil || d.rdb == nil {
		return nil
	}
	return d.rdb.Close()
}
