package memory

import (
	"sort"
	"time"

	"linguabridge-gateway/pkg/store"

	"github.com/patrickmn/go-cache"
)

const DefaultSessionTTL = 1 * time.Hour

// SessionRepository holds live sessions in an expiring cache. Every read
// slides the expiry forward so only idle sessions time out.
type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	// Purge expired sessions every 10 minutes, or sooner for short TTLs.
	cleanup := 10 * time.Minute
	if ttl < cleanup {
		cleanup = ttl
	}
	return &SessionRepository{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

// OnExpire registers fn for sessions the janitor evicts. Explicit deletes
// also trigger it, so callers that delete on purpose should not rely on it
// for side effects they already performed.
func (r *SessionRepository) OnExpire(fn func(*store.Session)) {
	r.cache.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*store.Session); ok {
			fn(s)
		}
	})
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	s := x.(*store.Session)
	r.cache.Set(sessionID, s, cache.DefaultExpiration)
	return s, true
}

// Delete removes the session and returns what was stored, if anything.
func (r *SessionRepository) Delete(sessionID string) (*store.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	r.cache.Delete(sessionID)
	return x.(*store.Session), true
}

// ForUser lists the live sessions of one user, oldest first.
func (r *SessionRepository) ForUser(userID string) []*store.Session {
	var out []*store.Session
	for _, item := range r.cache.Items() {
		if s, ok := item.Object.(*store.Session); ok && s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EstablishedAt.Before(out[j].EstablishedAt)
	})
	return out
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
