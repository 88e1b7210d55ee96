package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"travel_auth/internal/models"
	"travel_auth/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveUser_ConcurrentDuplicates(t *testing.T) {
	s := New()

	const attempts = 32

	var (
		wg        sync.WaitGroup
		successes int
		dupes     int
		mu        sync.Mutex
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.SaveUser(context.Background(), "dup@example.com", "dup", []byte("hash"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, storage.ErrUserExists):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one registration must win")
	assert.Equal(t, attempts-1, dupes)
}

func TestProfileLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.SaveUser(ctx, "a@example.com", "alice", []byte("h1"))
	require.NoError(t, err)

	u, err := s.User(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, u.IsVerified)

	require.NoError(t, s.SetEmailVerified(ctx, id))

	u, err = s.UserByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	require.NoError(t, s.SetPasswordHash(ctx, id, []byte("h2")))

	name := "alice2"
	img := "img-ref-1"
	u, err = s.UpdateProfile(ctx, id, models.ProfilePatch{Username: &name, ProfileImg: &img})
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)
	assert.Equal(t, "img-ref-1", u.ProfileImg)
	assert.Equal(t, []byte("h2"), u.PassHash)

	_, err = s.UserByID(ctx, id+100)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
