package memory

import (
	"sync"
	"testing"
	"time"

	"linguabridge-gateway/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepositoryCRUD(t *testing.T) {
	repo := NewSessionRepository(time.Hour)
	now := time.Now()

	repo.Save(&store.Session{ID: "s2", UserID: "u1", EstablishedAt: now.Add(time.Second)})
	repo.Save(&store.Session{ID: "s1", UserID: "u1", EstablishedAt: now})
	repo.Save(&store.Session{ID: "s3", UserID: "u2", EstablishedAt: now})

	got, ok := repo.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID)

	sessions := repo.ForUser("u1")
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, "s2", sessions[1].ID)
	assert.Empty(t, repo.ForUser("nobody"))
	assert.Equal(t, 3, repo.Count())

	deleted, ok := repo.Delete("s1")
	require.True(t, ok)
	assert.Equal(t, "s1", deleted.ID)
	_, ok = repo.Get("s1")
	assert.False(t, ok)
	_, ok = repo.Delete("s1")
	assert.False(t, ok)
}

func TestSessionRepositoryExpiry(t *testing.T) {
	repo := NewSessionRepository(30 * time.Millisecond)

	var (
		mu      sync.Mutex
		expired []string
	)
	repo.OnExpire(func(s *store.Session) {
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, s.ID)
	})

	repo.Save(&store.Session{ID: "idle", UserID: "u1"})

	// ForUser does not slide the expiry, unlike Get.
	assert.Eventually(t, func() bool {
		return len(repo.ForUser("u1")) == 0
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(expired) == 1 && expired[0] == "idle"
	}, time.Second, 5*time.Millisecond)
}
