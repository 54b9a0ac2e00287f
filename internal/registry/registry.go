// Package registry keeps the ordered set of known player sessions and the
// single selected one.
package registry

import (
	"errors"
	"fmt"

	"github.com/genricoloni/mprisbar/internal/domain"
)

var (
	// ErrAlreadyExists is returned when adding an identity that is already tracked
	ErrAlreadyExists = errors.New("session already exists")
	// ErrNotFound is returned when the identity is not tracked
	ErrNotFound = errors.New("session not found")
)

const noSelection = -1

// SelectionListener is notified when the selected session changes
type SelectionListener interface {
	// OnSelect is called with a copy of the newly selected session
	OnSelect(s domain.Session)
	// OnEmpty is called when the last session was removed
	OnEmpty()
}

// StateListener is notified when the selected session's state is replaced
type StateListener interface {
	OnStateChanged(s domain.Session)
}

// Registry is an ordered collection of sessions in discovery order.
// It is not safe for concurrent use; the engine loop is its only caller.
type Registry struct {
	sessions  []domain.Session
	selected  int
	selection SelectionListener
	state     StateListener
}

// New creates an empty registry. Either listener may be nil.
func New(selection SelectionListener, state StateListener) *Registry {
	return &Registry{
		selected:  noSelection,
		selection: selection,
		state:     state,
	}
}

// Add appends a new session. The first session added to an empty registry
// becomes selected.
func (r *Registry) Add(id domain.SessionIdentity, state domain.State) (domain.Session, error) {
	if r.indexOf(id) >= 0 {
		return domain.Session{}, fmt.Errorf("add %s: %w", id, ErrAlreadyExists)
	}

	r.sessions = append(r.sessions, domain.Session{Identity: id, State: state})

	if r.selected == noSelection {
		r.selectIndex(len(r.sessions) - 1)
	}
	return r.sessions[len(r.sessions)-1], nil
}

// Remove deletes a session. When the selected session is removed the
// selection fails over to the entry that slid into its slot, or to the new
// last entry if it was at the end.
func (r *Registry) Remove(id domain.SessionIdentity) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}

	wasSelected := idx == r.selected
	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)

	if !wasSelected {
		if idx < r.selected {
			r.selected--
		}
		return nil
	}

	if len(r.sessions) == 0 {
		r.selected = noSelection
		if r.selection != nil {
			r.selection.OnEmpty()
		}
		return nil
	}

	r.selected = noSelection
	r.selectIndex(min(idx, len(r.sessions)-1))
	return nil
}

// UpdateState replaces the state of a session and notifies the state
// listener if that session is selected.
func (r *Registry) UpdateState(id domain.SessionIdentity, state domain.State) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	r.sessions[idx].State = state
	if r.sessions[idx].Selected && r.state != nil {
		r.state.OnStateChanged(r.sessions[idx])
	}
	return nil
}

// Selected returns a copy of the selected session
func (r *Registry) Selected() (domain.Session, bool) {
	if r.selected == noSelection {
		return domain.Session{}, false
	}
	return r.sessions[r.selected], true
}

// Get returns a copy of the session with the given identity
func (r *Registry) Get(id domain.SessionIdentity) (domain.Session, bool) {
	idx := r.indexOf(id)
	if idx < 0 {
		return domain.Session{}, false
	}
	return r.sessions[idx], true
}

// Sessions returns copies of all sessions in discovery order
func (r *Registry) Sessions() []domain.Session {
	out := make([]domain.Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Len returns the number of tracked sessions
func (r *Registry) Len() int {
	return len(r.sessions)
}

func (r *Registry) selectIndex(idx int) {
	if r.selected != noSelection {
		r.sessions[r.selected].Selected = false
	}
	r.selected = idx
	r.sessions[idx].Selected = true
	if r.selection != nil {
		r.selection.OnSelect(r.sessions[idx])
	}
}

func (r *Registry) indexOf(id domain.SessionIdentity) int {
	for i := range r.sessions {
		if r.sessions[i].Identity == id {
			return i
		}
	}
	return -1
}
