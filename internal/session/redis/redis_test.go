package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/roastmail/internal/domain"
	"github.com/vbonduro/roastmail/internal/session"
)

// newTestStore connects to REDIS_URL; the tests are skipped without one.
func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}
	client, err := Connect(context.Background(), redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Minute)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	t.Cleanup(func() { _ = store.Delete(ctx, id) })

	require.NoError(t, store.Create(ctx, session.New(id, time.Now())))

	img := &domain.SelectedImage{FileName: "a.png", MimeType: "image/png", Data: []byte{1, 2}, DataURL: "data:image/png;base64,AQI="}
	v, err := store.Update(ctx, id, func(v session.ViewState) (session.ViewState, error) {
		return v.Select(img, time.Now()), nil
	})
	require.NoError(t, err)

	stored, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, v.Generation, stored.Generation)
	assert.Equal(t, img.Data, stored.Image.Data)
	assert.Equal(t, img.DataURL, stored.Image.DataURL)
}

func TestRedisStoreBeginTwice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	t.Cleanup(func() { _ = store.Delete(ctx, id) })

	v := session.New(id, time.Now()).Select(&domain.SelectedImage{FileName: "a.png", Data: []byte{1}}, time.Now())
	require.NoError(t, store.Create(ctx, v))

	begin := func(v session.ViewState) (session.ViewState, error) {
		next, _, err := v.Begin(time.Now())
		return next, err
	}
	_, err := store.Update(ctx, id, begin)
	require.NoError(t, err)
	_, err = store.Update(ctx, id, begin)
	assert.ErrorIs(t, err, session.ErrInFlight)
}

func TestRedisStoreNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestConnectBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not a url")
	assert.Error(t, err)
}
