package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestQueue_PushPop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "email_jobs")
	ctx := context.Background()

	job := &EmailJob{
		ID:       "job-1",
		Template: "password_reset",
		To:       []string{"asha@example.com"},
		Subject:  "Reset your Local Deals password",
		HTML:     "<p>reset</p>",
		QueuedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, q.Push(ctx, job))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.To, got.To)
	assert.Equal(t, job.Subject, got.Subject)
	assert.True(t, job.QueuedAt.Equal(got.QueuedAt))
}

func TestQueue_FIFO(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "fifo")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(ctx, &EmailJob{ID: id}))
	}

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want, got.ID)
	}
}

func TestQueue_PopEmpty(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "empty")

	got, err := q.Pop(context.Background(), 100*time.Millisecond)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_PopInvalidJSON(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, client.LPush(ctx, "bad", "not json").Err())

	q := NewQueue(client, "bad")
	_, err := q.Pop(ctx, time.Second)
	assert.Error(t, err)
}
