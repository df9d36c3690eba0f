package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SetGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	err := client.Set(ctx, "test:key1", "value1", 1*time.Hour)
	require.NoError(t, err)

	val, err := client.Get(ctx, "test:key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", val)
}

func TestClient_DeletePattern(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	_ = client.Set(ctx, "leads:list:p1", "a", 1*time.Hour)
	_ = client.Set(ctx, "leads:list:p2", "b", 1*time.Hour)
	_ = client.Set(ctx, "meetings:list", "c", 1*time.Hour)

	err := client.DeletePattern(ctx, "leads:*")
	require.NoError(t, err)

	_, err = client.Get(ctx, "leads:list:p1")
	assert.Error(t, err)
	_, err = client.Get(ctx, "leads:list:p2")
	assert.Error(t, err)

	val, err := client.Get(ctx, "meetings:list")
	require.NoError(t, err)
	assert.Equal(t, "c", val)
}
