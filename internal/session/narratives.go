// Package session holds state scoped to one operator session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTTL bounds how long a mirrored narrative outlives its session.
const DefaultTTL = 8 * time.Hour

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

// RedisNarrativeStore mirrors generated narratives in Redis under the session
// id, so a restarted process in the same session does not summarize again.
// Keys expire with the session.
type RedisNarrativeStore struct {
	redis     *redis.Client
	sessionID string
	ttl       time.Duration
	tracer    trace.Tracer
}

func NewRedisNarrativeStore(client *redis.Client, sessionID string, ttl time.Duration, tracer trace.Tracer) *RedisNarrativeStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = NewID()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("chart-console.internal.session")
	}
	return &RedisNarrativeStore{
		redis:     client,
		sessionID: sessionID,
		ttl:       ttl,
		tracer:    tracer,
	}
}

// SessionID returns the id keys are scoped to.
func (s *RedisNarrativeStore) SessionID() string { return s.sessionID }

func (s *RedisNarrativeStore) SaveNarrative(ctx context.Context, patientID, narrative string) error {
	ctx, span := s.tracer.Start(ctx, "session.save_narrative",
		trace.WithAttributes(attribute.String("session.id", s.sessionID)))
	defer span.End()

	if err := s.redis.Set(ctx, s.narrativeKey(patientID), narrative, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist narrative: %w", err)
	}
	return nil
}

func (s *RedisNarrativeStore) LoadNarrative(ctx context.Context, patientID string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.load_narrative",
		trace.WithAttributes(attribute.String("session.id", s.sessionID)))
	defer span.End()

	narrative, err := s.redis.Get(ctx, s.narrativeKey(patientID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		span.RecordError(err)
		return "", false, fmt.Errorf("session: failed to load narrative: %w", err)
	}
	return narrative, true, nil
}

func (s *RedisNarrativeStore) narrativeKey(patientID string) string {
	return fmt.Sprintf("chart:session:%s:narrative:%s", s.sessionID, patientID)
}
