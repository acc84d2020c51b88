package player

// State is the lifecycle phase of a player session.
type State int

const (
	StateInitializing State = iota
	StateAwaitingResume
	StatePlaying
	StatePaused
	StateEnded
	StateDestroyed
)

var stateNames = map[State]string{
	StateInitializing:   "initializing",
	StateAwaitingResume: "awaiting-resume",
	StatePlaying:        "playing",
	StatePaused:         "paused",
	StateEnded:          "ended",
	StateDestroyed:      "destroyed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
