package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/auth-service/internal/model"
	"github.com/learnhub/auth-service/internal/session"
)

func testUser() model.User {
	return model.User{
		ID:           7,
		Name:         "Ada",
		Email:        "a@x.com",
		PasswordHash: "$2a$10$should-not-survive-serialization",
		Role:         model.RoleUser,
		Courses:      []model.CourseRef{{CourseID: "go-101"}},
	}
}

func TestStoreSaveGet(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryCache(), time.Hour)

	require.NoError(t, store.Save(ctx, testUser()))

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, []model.CourseRef{{CourseID: "go-101"}}, got.Courses)
	// The snapshot is JSON and the hash is json:"-", so it must not
	// round-trip through the cache.
	assert.Empty(t, got.PasswordHash)
}

func TestStoreGetMissing(t *testing.T) {
	store := session.NewStore(session.NewMemoryCache(), time.Hour)

	_, err := store.Get(context.Background(), 99)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestStoreGetExpired(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryCache(), 10*time.Millisecond)

	require.NoError(t, store.Save(ctx, testUser()))
	time.Sleep(20 * time.Millisecond)

	_, err := store.Get(ctx, 7)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryCache(), time.Hour)

	require.NoError(t, store.Save(ctx, testUser()))
	require.NoError(t, store.Delete(ctx, 7))

	_, err := store.Get(ctx, 7)
	assert.ErrorIs(t, err, session.ErrNoSession)

	// Deleting an already-absent session is not an error.
	assert.NoError(t, store.Delete(ctx, 7))
}

func TestStoreSaveSlidesTTL(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryCache(), time.Hour)

	require.NoError(t, store.Save(ctx, testUser()))
	time.Sleep(30 * time.Millisecond)

	aged, err := store.TTL(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, testUser()))
	slid, err := store.TTL(ctx, 7)
	require.NoError(t, err)

	assert.Greater(t, slid, aged)
}
