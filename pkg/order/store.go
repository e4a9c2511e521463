package order

import (
	"Go-Order-Intake/domain"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps forms in memory. Readers get copies; writers go through
// Update, which swaps in a modified copy only when the mutation succeeds.
type Store struct {
	mu    sync.Mutex
	forms map[uuid.UUID]*Form
}

func NewStore() *Store {
	return &Store{forms: make(map[uuid.UUID]*Form)}
}

func (s *Store) Create() Form {
	f := NewForm()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[f.ID] = f
	return *f.clone()
}

func (s *Store) Get(id uuid.UUID) (Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.forms[id]
	if !ok {
		return Form{}, domain.ErrFormNotFound
	}
	return *f.clone(), nil
}

func (s *Store) Update(id uuid.UUID, fn func(f *Form) error) (Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.forms[id]
	if !ok {
		return Form{}, domain.ErrFormNotFound
	}
	next := cur.clone()
	if err := fn(next); err != nil {
		return *cur.clone(), err
	}
	next.UpdatedAt = time.Now()
	s.forms[id] = next
	return *next.clone(), nil
}

// Prune drops forms idle for longer than maxAge and reports how many went.
func (s *Store) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	n := 0
	for id, f := range s.forms {
		if f.UpdatedAt.Before(cutoff) && !f.Submitting {
			delete(s.forms, id)
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}
