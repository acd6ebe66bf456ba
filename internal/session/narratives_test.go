package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/chart-console/internal/clinical"
)

var _ clinical.NarrativeStore = (*RedisNarrativeStore)(nil)

func TestRedisNarrativeStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisNarrativeStore(client, "sess-1", time.Hour, nil)
	ctx := context.Background()

	_, ok, err := store.LoadNarrative(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveNarrative(ctx, "p1", "## Conditions\n- Asthma"))
	text, ok, err := store.LoadNarrative(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "## Conditions\n- Asthma", text)

	assert.True(t, mr.Exists("chart:session:sess-1:narrative:p1"))
	assert.Equal(t, time.Hour, mr.TTL("chart:session:sess-1:narrative:p1"))
}

func TestRedisNarrativeStoreScopedBySession(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	first := NewRedisNarrativeStore(client, "a", 0, nil)
	require.NoError(t, first.SaveNarrative(ctx, "p1", "A"))

	other := NewRedisNarrativeStore(client, "b", 0, nil)
	_, ok, err := other.LoadNarrative(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(DefaultTTL + time.Second)
	_, ok, err = first.LoadNarrative(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisNarrativeStoreGeneratesSessionID(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisNarrativeStore(client, "", 0, nil)
	assert.Len(t, store.SessionID(), 36)
}

func TestRedisNarrativeStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisNarrativeStore(client, "s", 0, nil)
	mr.Close()

	_, _, err := store.LoadNarrative(context.Background(), "p1")
	require.Error(t, err)
	require.Error(t, store.SaveNarrative(context.Background(), "p1", "x"))
}
