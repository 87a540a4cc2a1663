// ABOUTME: Unit tests for the in-memory sliding session store
// ABOUTME: Covers lazy expiry, renew-on-access and the 5-minute slide scenario

package auth

import (
	"testing"
	"time"
)

func newClockedStore(start time.Time) (*MemorySessionStore, *time.Time) {
	clock := start
	store := NewMemorySessionStore()
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestMemorySessionStore_PutGetDelete(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, _ := newClockedStore(start)

	session := &Session{
		Token:     "tok-1",
		Identity:  &Identity{ID: "42"},
		ExpiresAt: start.Add(time.Hour),
	}
	store.Put(session)

	got, ok := store.Get("tok-1")
	if !ok {
		t.Fatal("Get() miss for a live session")
	}
	if got.Identity.ID != "42" {
		t.Errorf("identity.ID = %q", got.Identity.ID)
	}

	if _, ok := store.Get("unknown"); ok {
		t.Error("Get() hit for an unknown token")
	}

	store.Delete("tok-1")
	if _, ok := store.Get("tok-1"); ok {
		t.Error("Get() hit after Delete()")
	}

	// Deleting again is not an error.
	store.Delete("tok-1")
}

func TestMemorySessionStore_LazyExpiry(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, clock := newClockedStore(start)

	store.Put(&Session{
		Token:     "tok-1",
		Identity:  &Identity{ID: "42"},
		ExpiresAt: start.Add(time.Minute),
	})

	*clock = start.Add(time.Minute) // expiry instant itself is expired
	if _, ok := store.Get("tok-1"); ok {
		t.Error("Get() hit at the expiry instant")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d after lazy expiry, want 0", store.Len())
	}
}

func TestMemorySessionStore_SlidingScenario(t *testing.T) {
	// A 5-minute session accessed at t=250s slides to t+300s; left untouched
	// past the new window it is gone, table entry included.
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, clock := newClockedStore(start)
	ttl := 5 * time.Minute

	store.Put(&Session{
		Token:     "tok-1",
		Identity:  &Identity{ID: "42"},
		ExpiresAt: start.Add(ttl),
	})

	*clock = start.Add(250 * time.Second)
	session, ok := store.Touch("tok-1", ttl)
	if !ok {
		t.Fatal("Touch() miss inside the window")
	}
	wantExpiry := start.Add(250*time.Second + ttl)
	if !session.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expiry = %v, want %v", session.ExpiresAt, wantExpiry)
	}

	// The original deadline passes with the session still alive.
	*clock = start.Add(ttl + time.Second)
	if _, ok := store.Get("tok-1"); !ok {
		t.Error("session expired despite the slide")
	}

	// Past the renewed window with no access in between.
	*clock = wantExpiry.Add(time.Second)
	if _, ok := store.Touch("tok-1", ttl); ok {
		t.Error("Touch() hit after the renewed window closed")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want the expired entry evicted", store.Len())
	}
}

func TestMemorySessionStore_TouchUnknown(t *testing.T) {
	store, _ := newClockedStore(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	if _, ok := store.Touch("unknown", time.Minute); ok {
		t.Error("Touch() hit for an unknown token")
	}
}
