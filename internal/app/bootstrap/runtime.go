package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/chart-console/internal/clinical"
	appconfig "github.com/wolfman30/chart-console/internal/config"
	"github.com/wolfman30/chart-console/internal/session"
	"github.com/wolfman30/chart-console/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildNarrativeStore returns the session narrative mirror, or nil without Redis.
// A session id is generated when none is configured, so a restart starts a
// fresh session.
func BuildNarrativeStore(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) clinical.NarrativeStore {
	if redisClient == nil || cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	sessionID := strings.TrimSpace(cfg.SessionID)
	if sessionID == "" {
		sessionID = session.NewID()
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	logger.Info("narrative mirror enabled", "session_id", sessionID, "ttl", ttl.String())
	return session.NewRedisNarrativeStore(redisClient, sessionID, ttl, nil)
}
