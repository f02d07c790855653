// Package session keeps per-user working copies of the catalog in memory.
// Grades are never persisted; idle sessions are evicted after a TTL.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/moyenne/internal/catalog"
	"github.com/mind-engage/moyenne/internal/grading"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrSemesterNotFound  = errors.New("semester not found")
	ErrNothingToEstimate = errors.New("every module is already graded; select modules to modify")
)

type Session struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Semesters []grading.Semester `json:"semesters"`
}

// Estimate is the outcome of an estimate request. Selected is returned even
// when synthesis fails so the caller can highlight what was tried.
type Estimate struct {
	Selected []string         `json:"selected"`
	Semester grading.Semester `json:"semester"`
}

type entry struct {
	s        *Session
	lastSeen atomic.Int64 // unix nanos, updated under the read lock
}

// Store holds sessions in a map. Every mutation swaps in a new semester
// snapshot; readers always get clones.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	catalog  catalog.Catalog
	synth    *grading.Synthesizer
	now      func() time.Time
}

func NewStore(c catalog.Catalog, synth *grading.Synthesizer) *Store {
	if synth == nil {
		synth = grading.NewSynthesizer()
	}
	return &Store{
		sessions: map[string]*entry{},
		catalog:  c.Clone(),
		synth:    synth,
		now:      time.Now,
	}
}

// New seeds a session from the catalog.
func (st *Store) New() Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: st.now().UTC(),
		Semesters: st.catalog.Clone().Semesters,
	}
	e := &entry{s: s}
	st.touch(e)
	st.mu.Lock()
	st.sessions[s.ID] = e
	st.mu.Unlock()
	return clone(s)
}

func (st *Store) Get(id string) (Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	e, ok := st.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	st.touch(e)
	return clone(e.s), nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(st.sessions, id)
	return nil
}

// Len reports how many sessions are held.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// EvictIdle removes sessions not used for longer than ttl and returns how
// many were dropped. A non-positive ttl disables eviction.
func (st *Store) EvictIdle(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-ttl).UnixNano()
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, e := range st.sessions {
		if e.lastSeen.Load() < cutoff {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// RunEviction sweeps idle sessions every ttl/2 until ctx is done. onEvict, if
// set, is called after each sweep that removed something.
func (st *Store) RunEviction(ctx context.Context, ttl time.Duration, onEvict func(n int)) {
	if ttl <= 0 {
		return
	}
	interval := ttl / 2
	if interval <= 0 {
		interval = ttl
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := st.EvictIdle(ttl); n > 0 && onEvict != nil {
				onEvict(n)
			}
		}
	}
}

func (st *Store) touch(e *entry) { e.lastSeen.Store(st.now().UnixNano()) }

// Semester returns a snapshot of one semester of a session.
func (st *Store) Semester(id, semID string) (grading.Semester, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, sem, err := st.lookup(id, semID)
	if err != nil {
		return grading.Semester{}, err
	}
	return sem.Clone(), nil
}

// SetGrade commits a single-field edit. A rejected edit leaves the session
// unchanged.
func (st *Store) SetGrade(id, semID, moduleID string, f grading.Field, v *float64) (grading.Semester, error) {
	return st.update(id, semID, func(sem grading.Semester) (grading.Semester, error) {
		return grading.SetGrade(sem, moduleID, f, v)
	})
}

// Requirement solves for the average the free modules must reach.
func (st *Store) Requirement(id, semID string, target float64, free grading.ModuleSet) (grading.Requirement, error) {
	sem, err := st.Semester(id, semID)
	if err != nil {
		return grading.Requirement{}, err
	}
	return grading.Solve(sem, target, free)
}

// Synthesize fills the free modules so the semester reaches target and
// commits the result. On failure nothing is committed.
func (st *Store) Synthesize(id, semID string, target float64, free grading.ModuleSet) (grading.Semester, error) {
	return st.update(id, semID, func(sem grading.Semester) (grading.Semester, error) {
		return st.synth.Synthesize(sem, target, free)
	})
}

// Estimate adds every module still missing a grade to the selection and
// synthesizes over the result.
func (st *Store) Estimate(id, semID string, target float64, selected grading.ModuleSet) (Estimate, error) {
	var est Estimate
	_, err := st.update(id, semID, func(sem grading.Semester) (grading.Semester, error) {
		free := grading.NewModuleSet()
		for m := range selected {
			free.Add(m)
		}
		for m := range grading.MissingData(sem) {
			free.Add(m)
		}
		est.Selected = free.IDs(sem)
		if len(est.Selected) == 0 {
			return grading.Semester{}, ErrNothingToEstimate
		}
		out, err := st.synth.Synthesize(sem, target, free)
		if err != nil {
			return grading.Semester{}, err
		}
		est.Semester = out.Clone()
		return out, nil
	})
	return est, err
}

func (st *Store) update(id, semID string, fn func(grading.Semester) (grading.Semester, error)) (grading.Semester, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, sem, err := st.lookup(id, semID)
	if err != nil {
		return grading.Semester{}, err
	}
	next, err := fn(sem)
	if err != nil {
		return grading.Semester{}, err
	}
	for i := range s.Semesters {
		if s.Semesters[i].ID == semID {
			s.Semesters[i] = next
		}
	}
	return next.Clone(), nil
}

// lookup must be called with mu held. A hit counts as activity.
func (st *Store) lookup(id, semID string) (*Session, grading.Semester, error) {
	e, ok := st.sessions[id]
	if !ok {
		return nil, grading.Semester{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	st.touch(e)
	s := e.s
	for _, sem := range s.Semesters {
		if sem.ID == semID {
			return s, sem, nil
		}
	}
	return nil, grading.Semester{}, fmt.Errorf("%w: %s", ErrSemesterNotFound, semID)
}

func clone(s *Session) Session {
	out := Session{ID: s.ID, CreatedAt: s.CreatedAt, Semesters: make([]grading.Semester, len(s.Semesters))}
	for i, sem := range s.Semesters {
		out.Semesters[i] = sem.Clone()
	}
	return out
}
