package session

import (
	"sync"
	"time"

	"github.com/hrline/taishokubot/internal/models"
)

// Store holds in-flight dialogue sessions, keyed by user id. The table
// mutex guards only the map itself; each user owns a separate lock that a
// caller holds across the whole handling of one event, so two events for
// the same user never interleave while distinct users proceed in parallel.
// A slow gateway call therefore blocks exactly one user.
type Store struct {
	mu      sync.Mutex
	entries map[models.UserID]*entry
}

type entry struct {
	mu      sync.Mutex
	refs    int
	session *models.Session
}

func NewStore() *Store {
	return &Store{
		entries: make(map[models.UserID]*entry),
	}
}

// Slot is an acquired per-user view of the store. All methods require the
// slot to be held; Release must be called exactly once.
type Slot struct {
	store  *Store
	userID models.UserID
	entry  *entry
}

// Acquire blocks until the user's lock is free and returns the held slot.
func (s *Store) Acquire(userID models.UserID) *Slot {
	s.mu.Lock()

	e, ok := s.entries[userID]
	if !ok {
		e = &entry{}
		s.entries[userID] = e
	}
	e.refs++

	s.mu.Unlock()

	e.mu.Lock()

	return &Slot{
		store:  s,
		userID: userID,
		entry:  e,
	}
}

func (l *Slot) Get() (models.Session, bool) {
	if l.entry.session == nil {
		return models.Session{}, false
	}
	return *l.entry.session, true
}

func (l *Slot) Set(session models.Session) {
	session.UpdatedAt = time.Now()
	l.entry.session = &session
}

func (l *Slot) Delete() {
	l.entry.session = nil
}

// Release unlocks the user and drops the map entry when no session remains
// and nobody else is waiting, so one-off senders do not grow the table
// forever.
func (l *Slot) Release() {
	l.entry.mu.Unlock()

	l.store.mu.Lock()

	l.entry.refs--
	if l.entry.refs == 0 && l.entry.session == nil {
		delete(l.store.entries, l.userID)
	}

	l.store.mu.Unlock()
}

// Len reports how many users currently have a session. Used by tests and
// the health endpoint.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.entries {
		if e.session != nil {
			count++
		}
	}

	return count
}
