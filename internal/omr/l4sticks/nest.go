package l4sticks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l3lag"
)

// Nest is the registry of sticks built on one lag.
type Nest struct {
	lag *l3lag.Lag

	mu     sync.RWMutex
	sticks map[int]*Stick
	nextID int
}

// NewNest returns an empty registry over lag.
func NewNest(lag *l3lag.Lag) *Nest {
	return &Nest{lag: lag, sticks: make(map[int]*Stick), nextID: 1}
}

// Lag returns the lag the sticks live in.
func (n *Nest) Lag() *l3lag.Lag { return n.lag }

// Add creates a transient stick from members and tags the sections with
// its id. Members must be live, connected, and not already owned by another
// active stick.
func (n *Nest) Add(members []l3lag.SectionID) (*Stick, error) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.mu.Unlock()

	var st *Stick
	err := n.lag.Update(func(tx *l3lag.Tx) error {
		for _, m := range members {
			if s, ok := tx.Live(m); ok && s.Stick != 0 && n.IsActive(s.Stick) {
				return fmt.Errorf("section %d already belongs to stick %d", m, s.Stick)
			}
		}
		var err error
		if st, err = buildStick(&tx.View, id, members); err != nil {
			return err
		}
		for _, m := range members {
			if err := tx.SetStick(m, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.sticks[id] = st
	n.mu.Unlock()
	tracef("%s: stick %d added with %d sections", n.lag.Name(), id, len(members))
	return st, nil
}

// Get returns the stick with the given id.
func (n *Nest) Get(id int) (*Stick, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	st, ok := n.sticks[id]
	return st, ok
}

// IsActive reports whether stick id exists and has not been deleted.
func (n *Nest) IsActive(id int) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	st, ok := n.sticks[id]
	return ok && st.State != Deleted
}

// Register marks stick id as accepted.
func (n *Nest) Register(id int) error {
	return n.setState(id, Registered)
}

// MarkVirtual marks stick id as synthesized.
func (n *Nest) MarkVirtual(id int) error {
	return n.setState(id, Virtual)
}

// Sticks returns the sticks in the given states, ordered by id. No state
// means all sticks.
func (n *Nest) Sticks(states ...State) []*Stick {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []*Stick
	for _, st := range n.sticks {
		if len(states) == 0 || containsState(states, st.State) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (n *Nest) setState(id int, s State) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.sticks[id]
	if !ok {
		return fmt.Errorf("unknown stick %d", id)
	}
	if st.State == Deleted {
		return fmt.Errorf("stick %d is deleted", id)
	}
	st.State = s
	return nil
}

// markDeleted flips stick id to Deleted and reports whether it was active.
func (n *Nest) markDeleted(id int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.sticks[id]
	if !ok || st.State == Deleted {
		return false
	}
	st.State = Deleted
	return true
}

func containsState(states []State, s State) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}
