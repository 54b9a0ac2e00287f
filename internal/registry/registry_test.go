package registry

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures listener callbacks in order
type recorder struct {
	events []string
}

func (r *recorder) OnSelect(s domain.Session) {
	r.events = append(r.events, "select:"+s.Identity.Name)
}

func (r *recorder) OnEmpty() {
	r.events = append(r.events, "empty")
}

func (r *recorder) OnStateChanged(s domain.Session) {
	r.events = append(r.events, "state:"+s.Identity.Name)
}

func (r *recorder) take() []string {
	ev := r.events
	r.events = nil
	return ev
}

func id(name string) domain.SessionIdentity {
	return domain.SessionIdentity{Name: name, Source: domain.SourceSessionBus}
}

func newRegistry() (*Registry, *recorder) {
	rec := &recorder{}
	return New(rec, rec), rec
}

func names(r *Registry) []string {
	var out []string
	for _, s := range r.Sessions() {
		out = append(out, s.Identity.Name)
	}
	return out
}

func selectedName(t *testing.T, r *Registry) string {
	t.Helper()
	s, ok := r.Selected()
	if !ok {
		return ""
	}
	return s.Identity.Name
}

func TestAddSelectsFirst(t *testing.T) {
	r, rec := newRegistry()

	s, err := r.Add(id("spotify"), domain.State{})
	require.NoError(t, err)
	assert.True(t, s.Selected)
	assert.Equal(t, []string{"select:spotify"}, rec.take())

	s, err = r.Add(id("vlc"), domain.State{})
	require.NoError(t, err)
	assert.False(t, s.Selected)
	assert.Empty(t, rec.take())
	assert.Equal(t, "spotify", selectedName(t, r))
	assert.Equal(t, []string{"spotify", "vlc"}, names(r))
}

func TestAddDuplicate(t *testing.T) {
	r, rec := newRegistry()
	_, err := r.Add(id("spotify"), domain.State{Metadata: domain.Metadata{Title: "first"}})
	require.NoError(t, err)
	rec.take()

	_, err = r.Add(id("spotify"), domain.State{Metadata: domain.Metadata{Title: "second"}})
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Empty(t, rec.take())
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get(id("spotify"))
	require.True(t, ok)
	assert.Equal(t, "first", got.State.Metadata.Title)
}

func TestSameNameDifferentSource(t *testing.T) {
	r, _ := newRegistry()
	_, err := r.Add(id("vlc"), domain.State{})
	require.NoError(t, err)
	_, err = r.Add(domain.SessionIdentity{Name: "vlc", Source: domain.SourceSystemBus}, domain.State{})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
}

func TestRemoveUnknown(t *testing.T) {
	r, rec := newRegistry()
	_, _ = r.Add(id("a"), domain.State{})
	rec.take()

	err := r.Remove(id("b"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, rec.take())
	assert.Equal(t, "a", selectedName(t, r))
	assert.Equal(t, 1, r.Len())
}

func TestRemoveFailover(t *testing.T) {
	tests := []struct {
		name         string
		initial      []string
		selectFirst  []string // removals performed before the one under test
		remove       string
		wantSelected string
		wantEvents   []string
	}{
		{
			name:         "selected only entry",
			initial:      []string{"a"},
			remove:       "a",
			wantSelected: "",
			wantEvents:   []string{"empty"},
		},
		{
			name:         "selected head slides next in",
			initial:      []string{"a", "b", "c"},
			remove:       "a",
			wantSelected: "b",
			wantEvents:   []string{"select:b"},
		},
		{
			name:         "failover after earlier failover",
			initial:      []string{"x", "a", "b", "c"},
			selectFirst:  []string{"x"}, // a becomes selected
			remove:       "a",
			wantSelected: "b",
			wantEvents:   []string{"select:b"},
		},
		{
			name:         "selected with single follower",
			initial:      []string{"a", "b"},
			remove:       "a",
			wantSelected: "b",
			wantEvents:   []string{"select:b"},
		},
		{
			name:         "unselected tail",
			initial:      []string{"a", "b", "c"},
			remove:       "c",
			wantSelected: "a",
			wantEvents:   nil,
		},
		{
			name:         "unselected entry leaves selection",
			initial:      []string{"a", "b", "c"},
			remove:       "b",
			wantSelected: "a",
			wantEvents:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec := newRegistry()
			for _, n := range tt.initial {
				_, err := r.Add(id(n), domain.State{})
				require.NoError(t, err)
			}
			for _, n := range tt.selectFirst {
				require.NoError(t, r.Remove(id(n)))
			}
			rec.take()

			require.NoError(t, r.Remove(id(tt.remove)))
			assert.Equal(t, tt.wantEvents, rec.take())
			assert.Equal(t, tt.wantSelected, selectedName(t, r))
		})
	}
}

func TestRemoveUnselectedKeepsSelection(t *testing.T) {
	r, _ := newRegistry()
	for _, n := range []string{"a", "b", "c"} {
		_, _ = r.Add(id(n), domain.State{})
	}
	require.NoError(t, r.Remove(id("a"))) // b selected at index 0
	_, _ = r.Add(id("d"), domain.State{})
	// b is at 0, c at 1, d at 2. Removing c must keep b selected.
	require.NoError(t, r.Remove(id("c")))
	assert.Equal(t, "b", selectedName(t, r))

	// removing b now fails over to d, which slid into index 0
	require.NoError(t, r.Remove(id("b")))
	assert.Equal(t, "d", selectedName(t, r))
}

func TestUpdateState(t *testing.T) {
	r, rec := newRegistry()
	_, _ = r.Add(id("a"), domain.State{})
	_, _ = r.Add(id("b"), domain.State{})
	rec.take()

	playing := domain.State{Status: domain.StatusPlaying, Metadata: domain.Metadata{Title: "T"}}

	require.NoError(t, r.UpdateState(id("b"), playing))
	assert.Empty(t, rec.take(), "unselected update must not notify")
	got, _ := r.Get(id("b"))
	assert.Equal(t, playing, got.State)

	require.NoError(t, r.UpdateState(id("a"), playing))
	assert.Equal(t, []string{"state:a"}, rec.take())

	require.ErrorIs(t, r.UpdateState(id("zzz"), playing), ErrNotFound)
}

func TestSessionsAreCopies(t *testing.T) {
	r, _ := newRegistry()
	_, _ = r.Add(id("a"), domain.State{Metadata: domain.Metadata{Title: "orig"}})

	list := r.Sessions()
	list[0].State.Metadata.Title = "mutated"
	s, _ := r.Selected()
	s.State.Metadata.Title = "mutated"

	got, _ := r.Get(id("a"))
	assert.Equal(t, "orig", got.State.Metadata.Title)
}

// TestSelectionInvariant drives random add/remove sequences and checks that
// exactly one session is selected whenever the registry is non-empty, and
// that failover picks min(removedIndex, len-1).
func TestSelectionInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	r, _ := newRegistry()

	for step := 0; step < 5000; step++ {
		before := r.Sessions()
		name := fmt.Sprintf("p%d", rng.IntN(12))

		if rng.IntN(2) == 0 {
			_, err := r.Add(id(name), domain.State{})
			if err != nil {
				require.ErrorIs(t, err, ErrAlreadyExists)
				require.Equal(t, before, r.Sessions())
			}
		} else {
			removedIdx := -1
			wasSelected := false
			for i, s := range before {
				if s.Identity.Name == name {
					removedIdx, wasSelected = i, s.Selected
				}
			}
			err := r.Remove(id(name))
			if removedIdx < 0 {
				require.ErrorIs(t, err, ErrNotFound)
				require.Equal(t, before, r.Sessions())
			} else if wasSelected && r.Len() > 0 {
				want := r.Sessions()[min(removedIdx, r.Len()-1)].Identity.Name
				require.Equal(t, want, selectedName(t, r), "step %d", step)
			}
		}

		count := 0
		for _, s := range r.Sessions() {
			if s.Selected {
				count++
			}
		}
		if r.Len() == 0 {
			require.Zero(t, count, "step %d", step)
			_, ok := r.Selected()
			require.False(t, ok)
		} else {
			require.Equal(t, 1, count, "step %d", step)
			_, ok := r.Selected()
			require.True(t, ok)
		}
	}
}
