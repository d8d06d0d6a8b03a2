package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()

	store.Put(&Session{
		ID:        "a@b.com",
		Kind:      KindEmail,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	})

	sess, ok := store.Get("a@b.com")
	require.True(t, ok)
	assert.Equal(t, "a@b.com", sess.ID)
	assert.Equal(t, StatusPending, sess.Status)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&Session{ID: "x", Status: StatusPending})

	sess, ok := store.Get("x")
	require.True(t, ok)
	sess.Status = StatusReceived

	again, _ := store.Get("x")
	assert.Equal(t, StatusPending, again.Status, "mutating a Get result must not touch the store")
}

func TestMemoryStoreUpdate(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&Session{ID: "x", Status: StatusPending})

	applied := store.Update("x", func(s *Session) bool {
		s.Status = StatusWaiting
		return true
	})
	assert.True(t, applied)

	sess, _ := store.Get("x")
	assert.Equal(t, StatusWaiting, sess.Status)

	// fn may decline the write.
	applied = store.Update("x", func(s *Session) bool { return false })
	assert.False(t, applied)
	sess, _ = store.Get("x")
	assert.Equal(t, StatusWaiting, sess.Status)

	// unknown id
	assert.False(t, store.Update("missing", func(s *Session) bool { return true }))
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			store.Put(&Session{ID: id, Status: StatusPending})
			store.Update(id, func(s *Session) bool {
				s.Status = StatusWaiting
				return true
			})
			store.Get(id)
		}(i)
	}
	wg.Wait()
}
