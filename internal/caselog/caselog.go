// Package caselog owns the in-memory case and evidence state for one
// dashboard session: the set of cases, the single active case, each case's
// ordered evidence log, and the current inspection selection.
package caselog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SakshiShukla1/forensight/internal/evidence"
)

// InvalidNameError reports a case creation attempt with an empty or
// whitespace-only name. The prior active case remains active.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return "case name must not be empty"
}

// Case is a named investigation container. The evidence log is held
// per case and restored when the case becomes active again.
type Case struct {
	ID        int64
	Name      string
	CreatedAt time.Time

	log []evidence.Record
}

// Snapshot is a read-only view of a case for listing and display.
type Snapshot struct {
	ID            int64
	Name          string
	CreatedAt     time.Time
	EvidenceCount int
}

// Store is the explicit state container for all cases. All mutation goes
// through its methods; a mutex serializes the TUI event loop against scan
// goroutines. Exactly one case is active once any case exists.
type Store struct {
	mu         sync.Mutex
	cases      []*Case
	active     *Case
	lastCaseID int64
	selectedID int64
	selected   bool
	now        func() time.Time
}

// NewStore constructs an empty store. A nil clock defaults to time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now}
}

// CreateCase allocates a new case, makes it active, and clears the
// selection. Evidence accumulated under the previous case stays with that
// case and is restored by SwitchCase.
func (s *Store) CreateCase(name string) (Snapshot, error) {
	if strings.TrimSpace(name) == "" {
		return Snapshot{}, &InvalidNameError{Name: name}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	id := ts.UnixNano() / int64(time.Millisecond)
	if id <= s.lastCaseID {
		id = s.lastCaseID + 1
	}
	s.lastCaseID = id

	c := &Case{ID: id, Name: name, CreatedAt: ts}
	s.cases = append(s.cases, c)
	s.active = c
	s.selected = false

	return snapshotOf(c), nil
}

// RestoreCase loads an archived case, evidence log included, and makes
// it active. Used by the CLI to continue a case from the archive. The
// log must already be ordered most recent first.
func (s *Store) RestoreCase(id int64, name string, createdAt time.Time, log []evidence.Record) error {
	if strings.TrimSpace(name) == "" {
		return &InvalidNameError{Name: name}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.cases {
		if c.ID == id {
			return fmt.Errorf("case %d already loaded", id)
		}
	}

	c := &Case{ID: id, Name: name, CreatedAt: createdAt, log: append([]evidence.Record(nil), log...)}
	s.cases = append(s.cases, c)
	s.active = c
	s.selected = false
	if id > s.lastCaseID {
		s.lastCaseID = id
	}
	return nil
}

// SwitchCase makes an existing case active, restoring its evidence log.
// The selection is cleared. On an unknown id the state is unchanged.
func (s *Store) SwitchCase(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.cases {
		if c.ID == id {
			s.active = c
			s.selected = false
			return nil
		}
	}
	return fmt.Errorf("no case with id %d", id)
}

// Append prepends a record to the active case's log (index 0 = most
// recent) and selects it. It returns a snapshot of the case the record
// landed in: binding and ownership resolution happen under one lock, so
// a concurrent case switch cannot separate them.
func (s *Store) Append(rec evidence.Record) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return Snapshot{}, fmt.Errorf("no active case")
	}
	s.active.log = append([]evidence.Record{rec}, s.active.log...)
	s.selectedID = rec.ID
	s.selected = true
	return snapshotOf(s.active), nil
}

// ActiveCase returns a snapshot of the active case, if any.
func (s *Store) ActiveCase() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return Snapshot{}, false
	}
	return snapshotOf(s.active), true
}

// ActiveLog returns a copy of the active case's log, most recent first.
func (s *Store) ActiveLog() []evidence.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil
	}
	out := make([]evidence.Record, len(s.active.log))
	copy(out, s.active.log)
	return out
}

// Cases lists all cases in creation order.
func (s *Store) Cases() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Snapshot, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, snapshotOf(c))
	}
	return out
}

// Select marks the record with the given id in the active log as the one
// under inspection. Returns false when the id is not in the active log.
func (s *Store) Select(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return false
	}
	for _, rec := range s.active.log {
		if rec.ID == id {
			s.selectedID = id
			s.selected = true
			return true
		}
	}
	return false
}

// ClearSelection sets the selection to none.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = false
}

// Selected returns the record currently under inspection, if any.
func (s *Store) Selected() (evidence.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.selected || s.active == nil {
		return evidence.Record{}, false
	}
	for _, rec := range s.active.log {
		if rec.ID == s.selectedID {
			return rec, true
		}
	}
	return evidence.Record{}, false
}

func snapshotOf(c *Case) Snapshot {
	return Snapshot{
		ID:            c.ID,
		Name:          c.Name,
		CreatedAt:     c.CreatedAt,
		EvidenceCount: len(c.log),
	}
}
