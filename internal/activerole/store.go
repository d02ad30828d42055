// Package activerole keeps the workspace a dual-role employee is currently
// acting in. The selection is persisted outside the process (a signed cookie in
// production) and must be read back before any default may overwrite it.
package activerole

import (
	"go-brokerage-crm/internal/model"
)

// Phase is the store lifecycle. It is recomputed on every load and never persisted.
type Phase int

const (
	Unhydrated Phase = iota
	Hydrated
)

func (p Phase) String() string {
	if p == Hydrated {
		return "hydrated"
	}
	return "unhydrated"
}

// Snapshot is the persisted part of the store.
type Snapshot struct {
	UserID     string
	ActiveRole model.Role
}

// Persister loads and saves snapshots. Load returns the zero Snapshot when
// nothing is stored.
type Persister interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// Store owns one active-role selection. It is not safe for concurrent use; a
// store belongs to a single request or event loop.
type Store struct {
	persister Persister
	phase     Phase
	state     Snapshot
	written   bool // a setter ran before hydration
}

// NewStore returns an unhydrated store.
func NewStore(p Persister) *Store {
	return &Store{persister: p}
}

func (s *Store) Phase() Phase           { return s.phase }
func (s *Store) Snapshot() Snapshot     { return s.state }
func (s *Store) UserID() string         { return s.state.UserID }
func (s *Store) ActiveRole() model.Role { return s.state.ActiveRole }

// Rehydrate reads the persisted snapshot and moves the store to Hydrated. Only
// the first call has an effect. A load error still hydrates, with whatever
// state the store already has. If a setter ran before hydration its value is
// newer than storage and is kept.
func (s *Store) Rehydrate() error {
	if s.phase == Hydrated {
		return nil
	}
	defer func() { s.phase = Hydrated }()

	loaded, err := s.persister.Load()
	if err != nil {
		return err
	}
	if !s.written {
		s.state = loaded
	}
	return nil
}

// InitForUser reconciles the selection with the identity that just
// authenticated. It does nothing until the store is hydrated. A different user
// resets the selection to their primary role; the same user with no selection
// gets the primary role. It reports whether the state changed.
func (s *Store) InitForUser(userID string, primary model.Role) (bool, error) {
	if s.phase != Hydrated {
		return false, nil
	}
	switch {
	case s.state.UserID != userID:
		return true, s.set(Snapshot{UserID: userID, ActiveRole: primary})
	case s.state.ActiveRole == "":
		return true, s.set(Snapshot{UserID: userID, ActiveRole: primary})
	default:
		return false, nil
	}
}

// SetActiveRole overwrites the active role. Callers check that the identity
// holds role.
func (s *Store) SetActiveRole(role model.Role) error {
	return s.set(Snapshot{UserID: s.state.UserID, ActiveRole: role})
}

// SetRoleForNewLogin records a login-time role choice together with the user,
// so a following InitForUser for the same user keeps it.
func (s *Store) SetRoleForNewLogin(userID string, role model.Role) error {
	return s.set(Snapshot{UserID: userID, ActiveRole: role})
}

func (s *Store) set(next Snapshot) error {
	s.state = next
	if s.phase == Unhydrated {
		s.written = true
	}
	return s.persister.Save(next)
}
