package service

import (
	"context"
	"testing"

	"linguabridge-gateway/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstablishLoadsDocumentsAndPublishes(t *testing.T) {
	f := newSessionFixture(t)

	sess := f.establish(t, "user-1", "sess-1")

	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "user-1@example.com", sess.Email)
	assert.Equal(t, "token-sess-1", sess.AccessToken)

	snap := sess.Snapshot()
	assert.Equal(t, "sess-1", snap.State.SessionID)
	assert.Len(t, snap.State.UserDocuments, 2)
	assert.Empty(t, snap.State.ActiveDocumentID)
	assert.Empty(t, snap.Chat.Messages)

	assert.Equal(t, []string{events.TypeSessionEstablished}, f.events.types())
}

func TestEstablishReplacesPreviousState(t *testing.T) {
	f := newSessionFixture(t)
	first := f.establish(t, "user-1", "sess-1")
	first.Coordinator.StartUpload(coordinatorFile("draft.pdf"))

	second := f.establish(t, "user-1", "sess-1")

	assert.NotSame(t, first, second)
	assert.Empty(t, second.Coordinator.Snapshot().PendingUploads)

	got, ok := f.sessions.Get("sess-1")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, f.repo.Count())
}

func TestResolve(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.establish(t, "user-1", "sess-1")

	t.Run("returns the live session", func(t *testing.T) {
		got := f.sessions.Resolve(context.Background(), claimsFor("user-1", "sess-1"), "token")
		assert.Same(t, sess, got)
	})

	t.Run("re-establishes an unknown session", func(t *testing.T) {
		got := f.sessions.Resolve(context.Background(), claimsFor("user-1", "sess-restarted"), "token")
		got.Coordinator.Wait()
		assert.Equal(t, "sess-restarted", got.ID)
		assert.Len(t, got.Coordinator.Snapshot().UserDocuments, 2)
	})

	t.Run("does not hand a session to another user", func(t *testing.T) {
		got := f.sessions.Resolve(context.Background(), claimsFor("intruder", "sess-1"), "token")
		got.Coordinator.Wait()
		assert.NotSame(t, sess, got)
		assert.Equal(t, "intruder", got.UserID)
	})
}

func TestEndPublishesAndForgets(t *testing.T) {
	f := newSessionFixture(t)
	f.establish(t, "user-1", "sess-1")

	assert.True(t, f.sessions.End("sess-1"))
	assert.False(t, f.sessions.End("sess-1"))

	_, ok := f.sessions.Get("sess-1")
	assert.False(t, ok)
	assert.Equal(t, []string{events.TypeSessionEstablished, events.TypeSessionEnded}, f.events.types())
	assert.Equal(t, []string{"sess-1"}, f.cursors.forgets)
}

func TestForUser(t *testing.T) {
	f := newSessionFixture(t)
	f.establish(t, "user-1", "laptop")
	f.establish(t, "user-1", "phone")
	f.establish(t, "user-2", "other")

	ids := []string{}
	for _, s := range f.sessions.ForUser("user-1") {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"laptop", "phone"}, ids)
	assert.Empty(t, f.sessions.ForUser("nobody"))
}
