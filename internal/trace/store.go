package trace

// Store is the ordered trace log of the current turn. It is owned by a single
// monitor and is not safe for concurrent use.
type Store struct {
	events []Event
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Append adds ev at the end, preserving delivery order.
func (s *Store) Append(ev Event) {
	s.events = append(s.events, ev)
}

// Clear empties the log. The backing array is dropped so snapshots handed
// out earlier stay intact.
func (s *Store) Clear() {
	s.events = nil
}

// Len returns the number of events in the current turn.
func (s *Store) Len() int {
	return len(s.events)
}

// Last returns the most recent event.
func (s *Store) Last() (Event, bool) {
	if len(s.events) == 0 {
		return Event{}, false
	}
	return s.events[len(s.events)-1], true
}

// All returns a copy of the log in delivery order.
func (s *Store) All() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
