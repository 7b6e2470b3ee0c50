package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sam-app/cli/internal/models"
	"github.com/sam-app/cli/internal/storage"
)

func TestSession_AuthenticatedRequiresUserAndToken(t *testing.T) {
	user := &models.User{ID: "u1", Email: "a@b.com"}

	assert.False(t, Session{}.IsAuthenticated())
	assert.False(t, Session{User: user}.IsAuthenticated())
	assert.False(t, Session{AccessToken: "t1"}.IsAuthenticated())
	assert.True(t, Session{User: user, AccessToken: "t1"}.IsAuthenticated())
}

func TestStore_StartsLoading(t *testing.T) {
	store := NewStore(storage.NewMemoryBackend(), nil)
	snap := store.Snapshot()

	assert.True(t, snap.IsLoading)
	assert.False(t, snap.IsAuthenticated())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStore(storage.NewMemoryBackend(), nil)
	state := &models.StoredAuthState{
		Token:        "t1",
		RefreshToken: "r1",
		User:         &models.User{ID: "u1", Email: "a@b.com", FirstName: "Ada", Role: "admin"},
	}

	store.Save(state)
	assert.Equal(t, state, store.Load())

	store.Save(nil)
	assert.Nil(t, store.Load())
}

func TestStore_SaveNilRemovesKey(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := NewStore(backend, nil)

	store.Save(&models.StoredAuthState{Token: "t1"})
	require.True(t, backend.Has(StorageKey))

	store.Save(nil)
	assert.False(t, backend.Has(StorageKey))
}

func TestStore_LoadMalformedIsNil(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(StorageKey, "{not json"))

	store := NewStore(backend, nil)
	assert.Nil(t, store.Load())
}

func TestStore_SaveFailureIsSwallowed(t *testing.T) {
	backend := storage.NewMemoryBackend()
	backend.SetErr = errors.New("quota exceeded")
	store := NewStore(backend, nil)

	assert.NotPanics(t, func() {
		store.Save(&models.StoredAuthState{Token: "t1"})
	})
	assert.Nil(t, store.Load())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	store := NewStore(storage.NewMemoryBackend(), nil)
	store.Update(func(s *Session) {
		s.User = &models.User{ID: "u1", Email: "a@b.com"}
		s.AccessToken = "t1"
	})

	snap := store.Snapshot()
	snap.User.Email = "changed@b.com"

	assert.Equal(t, "a@b.com", store.Snapshot().User.Email)
}

func TestStore_Reset(t *testing.T) {
	store := NewStore(storage.NewMemoryBackend(), nil)
	store.Update(func(s *Session) {
		s.User = &models.User{ID: "u1"}
		s.AccessToken = "t1"
		s.IsLoading = false
	})

	store.Reset()
	snap := store.Snapshot()
	assert.True(t, snap.IsLoading)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.AccessToken)
}
