package bootstrap

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/chart-console/internal/config"
	"github.com/wolfman30/chart-console/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, false))
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logging.New("error")

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logger, true))
}

func TestBuildNarrativeStoreUsesConfiguredSession(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr(), SessionID: "desk-7"}
	client := BuildRedisClient(context.Background(), cfg, nil, false)
	t.Cleanup(func() { _ = client.Close() })

	store := BuildNarrativeStore(client, cfg, logging.New("error"))
	require.NotNil(t, store)

	ctx := context.Background()
	require.NoError(t, store.SaveNarrative(ctx, "p1", "## Overview"))
	assert.True(t, mr.Exists("chart:session:desk-7:narrative:p1"))

	text, ok, err := store.LoadNarrative(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "## Overview", text)
}

func TestBuildNarrativeStoreWithoutRedis(t *testing.T) {
	assert.Nil(t, BuildNarrativeStore(nil, &appconfig.Config{}, nil))
}
