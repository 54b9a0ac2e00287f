package domain

// EventKind discriminates the events delivered by a Monitor
type EventKind int

const (
	// EventSessionAppeared carries the identity and initial state of a new player
	EventSessionAppeared EventKind = iota
	// EventSessionVanished carries the identity of a player that left the bus
	EventSessionVanished
	// EventPropertyChanged carries one or more property changes for a player
	EventPropertyChanged
)

func (k EventKind) String() string {
	switch k {
	case EventSessionAppeared:
		return "session-appeared"
	case EventSessionVanished:
		return "session-vanished"
	case EventPropertyChanged:
		return "property-changed"
	default:
		return "unknown"
	}
}

// SessionEvent is a typed, already-decoded notification from the event source.
// Only the fields relevant to Kind are set.
type SessionEvent struct {
	Kind     EventKind
	Identity SessionIdentity
	// State is set for EventSessionAppeared
	State State
	// Changes is set for EventPropertyChanged, in the order they were received
	Changes []PropertyChange
}

// SessionAppeared builds an EventSessionAppeared event
func SessionAppeared(id SessionIdentity, state State) SessionEvent {
	return SessionEvent{Kind: EventSessionAppeared, Identity: id, State: state}
}

// SessionVanished builds an EventSessionVanished event
func SessionVanished(id SessionIdentity) SessionEvent {
	return SessionEvent{Kind: EventSessionVanished, Identity: id}
}

// PropertyChanged builds an EventPropertyChanged event
func PropertyChanged(id SessionIdentity, changes ...PropertyChange) SessionEvent {
	return SessionEvent{Kind: EventPropertyChanged, Identity: id, Changes: changes}
}
