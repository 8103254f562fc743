package onboarding

import (
	"sync"

	"github.com/google/uuid"
)

// SessionCache holds live machines keyed by user. It is advisory: a missing or stale entry is
// rebuilt from the store, so entries may be dropped at any time.
type SessionCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[uuid.UUID]*Session
}

// Session is a cache entry. Holders of a session are serialised by its lock.
type Session struct {
	cache   *SessionCache
	userID  uuid.UUID
	mu      sync.Mutex
	machine *Machine
	refs    int
	evicted bool
}

// NewSessionCache returns a cache that keeps at most capacity idle entries. A capacity below
// one means unbounded. Over capacity, arbitrary idle entries are dropped; there is no
// least-recently-used ordering.
func NewSessionCache(capacity int) *SessionCache {
	return &SessionCache{
		capacity: capacity,
		entries:  make(map[uuid.UUID]*Session),
	}
}

// Acquire returns the user's session locked. Callers must Release it.
func (c *SessionCache) Acquire(userID uuid.UUID) *Session {
	c.mu.Lock()
	s, ok := c.entries[userID]
	if !ok {
		s = &Session{cache: c, userID: userID}
		c.entries[userID] = s
	}
	s.refs++
	if !ok {
		c.trimLocked()
	}
	c.mu.Unlock()

	s.mu.Lock()
	return s
}

// Evict forgets the user's machine. An entry that is in use is removed once its last holder releases it.
func (c *SessionCache) Evict(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[userID]
	if !ok {
		return
	}
	if s.refs == 0 {
		delete(c.entries, userID)
		return
	}
	s.evicted = true
}

func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cached reports whether a machine is currently held for the user.
func (c *SessionCache) Cached(userID uuid.UUID) bool {
	c.mu.Lock()
	s, ok := c.entries[userID]
	c.mu.Unlock()
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine != nil
}

func (c *SessionCache) trimLocked() {
	if c.capacity < 1 {
		return
	}
	for id, s := range c.entries {
		if len(c.entries) <= c.capacity {
			return
		}
		if s.refs == 0 {
			delete(c.entries, id)
		}
	}
}

func (s *Session) Machine() *Machine {
	return s.machine
}

func (s *Session) Store(m *Machine) {
	s.machine = m
}

// Drop discards the machine and removes the entry when released.
func (s *Session) Drop() {
	s.machine = nil
	s.cache.mu.Lock()
	s.evicted = true
	s.cache.mu.Unlock()
}

func (s *Session) Release() {
	s.mu.Unlock()

	c := s.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	s.refs--
	if s.refs > 0 {
		return
	}
	if s.evicted {
		if c.entries[s.userID] == s {
			delete(c.entries, s.userID)
		}
		return
	}
	c.trimLocked()
}
