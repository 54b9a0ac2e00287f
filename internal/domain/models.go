package domain

import "fmt"

// PlaybackStatus represents the current state of the media player
type PlaybackStatus string

const (
	// StatusPlaying indicates the media is currently playing
	StatusPlaying PlaybackStatus = "Playing"
	// StatusPaused indicates the media is paused
	StatusPaused PlaybackStatus = "Paused"
	// StatusStopped indicates the media is stopped
	StatusStopped PlaybackStatus = "Stopped"
)

// ParsePlaybackStatus maps an MPRIS PlaybackStatus string to a PlaybackStatus.
// Unknown values fall back to StatusStopped.
func ParsePlaybackStatus(s string) PlaybackStatus {
	switch PlaybackStatus(s) {
	case StatusPlaying, StatusPaused, StatusStopped:
		return PlaybackStatus(s)
	default:
		return StatusStopped
	}
}

// LoopStatus represents the MPRIS LoopStatus property
type LoopStatus string

const (
	LoopNone     LoopStatus = "None"
	LoopTrack    LoopStatus = "Track"
	LoopPlaylist LoopStatus = "Playlist"
)

// ParseLoopStatus maps an MPRIS LoopStatus string, defaulting to LoopNone.
func ParseLoopStatus(s string) LoopStatus {
	switch LoopStatus(s) {
	case LoopTrack, LoopPlaylist:
		return LoopStatus(s)
	default:
		return LoopNone
	}
}

// Source identifies the transport a player was discovered on
type Source int

const (
	// SourceSessionBus is a player owning a well-known name on the D-Bus session bus
	SourceSessionBus Source = iota
	// SourceSystemBus is a player discovered through any other transport
	SourceSystemBus
)

func (s Source) String() string {
	switch s {
	case SourceSessionBus:
		return "session-bus"
	case SourceSystemBus:
		return "system-bus"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// SessionIdentity uniquely identifies a player session. It is comparable.
type SessionIdentity struct {
	// Name is the MPRIS instance name (e.g. "spotify", "firefox.instance_1_42")
	Name   string
	Source Source
}

func (id SessionIdentity) String() string {
	return id.Name + "@" + id.Source.String()
}

// Metadata contains information about the currently playing track
type Metadata struct {
	// Length of the track in microseconds
	Length  uint64
	TrackID string
	Title   string
	Album   string
	// Artist is the xesam:artist list joined with ", "
	Artist string
	// ArtURL is the URL or file:// path to the album artwork
	ArtURL string
	URL    string
}

// State is the observed, mutable playback state of one player
type State struct {
	Metadata Metadata
	Loop     LoopStatus
	Status   PlaybackStatus
	// Volume is clamped to [0,1]
	Volume  float64
	Shuffle bool
}

// Playing reports whether the player is currently playing
func (s State) Playing() bool {
	return s.Status == StatusPlaying
}

// Session is one tracked player. Values are copies; the registry owns the originals.
type Session struct {
	Identity SessionIdentity
	State    State
	Selected bool
}

// Property names one observable field of a player's State
type Property int

const (
	PropMetadata Property = iota
	PropPlaybackStatus
	PropLoopStatus
	PropVolume
	PropShuffle
)

func (p Property) String() string {
	switch p {
	case PropMetadata:
		return "Metadata"
	case PropPlaybackStatus:
		return "PlaybackStatus"
	case PropLoopStatus:
		return "LoopStatus"
	case PropVolume:
		return "Volume"
	case PropShuffle:
		return "Shuffle"
	default:
		return fmt.Sprintf("property(%d)", int(p))
	}
}

// PropertyChange is a single decoded property update.
// Value holds Metadata, PlaybackStatus, LoopStatus, float64 or bool depending on Property.
type PropertyChange struct {
	Property Property
	Value    any
}

// Apply returns s with the change applied. A value of the wrong type leaves s
// untouched and reports false.
func (s State) Apply(c PropertyChange) (State, bool) {
	switch c.Property {
	case PropMetadata:
		v, ok := c.Value.(Metadata)
		if !ok {
			return s, false
		}
		s.Metadata = v
	case PropPlaybackStatus:
		v, ok := c.Value.(PlaybackStatus)
		if !ok {
			return s, false
		}
		s.Status = v
	case PropLoopStatus:
		v, ok := c.Value.(LoopStatus)
		if !ok {
			return s, false
		}
		s.Loop = v
	case PropVolume:
		v, ok := c.Value.(float64)
		if !ok {
			return s, false
		}
		s.Volume = ClampVolume(v)
	case PropShuffle:
		v, ok := c.Value.(bool)
		if !ok {
			return s, false
		}
		s.Shuffle = v
	default:
		return s, false
	}
	return s, true
}

// ClampVolume restricts v to [0,1]
func ClampVolume(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
