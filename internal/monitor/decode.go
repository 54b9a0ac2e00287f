package monitor

import (
	"fmt"
	"strings"

	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

// decoder converts MPRIS property variants into domain values. Missing or
// wrong-typed fields decode to their zero value and never fail the snapshot.
type decoder struct {
	logger *zap.Logger
}

// decodeState builds a full State from a Properties.GetAll result
func (d decoder) decodeState(props map[string]dbus.Variant) domain.State {
	state := domain.State{
		Status: domain.StatusStopped,
		Loop:   domain.LoopNone,
	}
	for _, c := range d.decodeChanges(props) {
		state, _ = state.Apply(c)
	}
	return state
}

// decodeChanges extracts the properties this daemon tracks, in a fixed order
func (d decoder) decodeChanges(props map[string]dbus.Variant) []domain.PropertyChange {
	var changes []domain.PropertyChange

	if v, ok := props["Metadata"]; ok {
		if meta, ok := v.Value().(map[string]dbus.Variant); ok {
			changes = append(changes, domain.PropertyChange{
				Property: domain.PropMetadata,
				Value:    d.decodeMetadata(meta),
			})
		} else {
			d.wrongType("Metadata", v)
		}
	}

	if v, ok := props["PlaybackStatus"]; ok {
		if s, ok := v.Value().(string); ok {
			changes = append(changes, domain.PropertyChange{
				Property: domain.PropPlaybackStatus,
				Value:    domain.ParsePlaybackStatus(s),
			})
		} else {
			d.wrongType("PlaybackStatus", v)
		}
	}

	if v, ok := props["LoopStatus"]; ok {
		if s, ok := v.Value().(string); ok {
			changes = append(changes, domain.PropertyChange{
				Property: domain.PropLoopStatus,
				Value:    domain.ParseLoopStatus(s),
			})
		} else {
			d.wrongType("LoopStatus", v)
		}
	}

	if v, ok := props["Volume"]; ok {
		if f, ok := v.Value().(float64); ok {
			changes = append(changes, domain.PropertyChange{
				Property: domain.PropVolume,
				Value:    domain.ClampVolume(f),
			})
		} else {
			d.wrongType("Volume", v)
		}
	}

	if v, ok := props["Shuffle"]; ok {
		if b, ok := v.Value().(bool); ok {
			changes = append(changes, domain.PropertyChange{
				Property: domain.PropShuffle,
				Value:    b,
			})
		} else {
			d.wrongType("Shuffle", v)
		}
	}

	return changes
}

// decodeMetadata converts MPRIS metadata to the domain model
func (d decoder) decodeMetadata(metadata map[string]dbus.Variant) domain.Metadata {
	return domain.Metadata{
		Length:  d.u64(metadata, "mpris:length"),
		TrackID: d.trackID(metadata),
		Title:   d.str(metadata, "xesam:title"),
		Album:   d.str(metadata, "xesam:album"),
		Artist:  d.strList(metadata, "xesam:artist"),
		ArtURL:  d.str(metadata, "mpris:artUrl"),
		URL:     d.str(metadata, "xesam:url"),
	}
}

func (d decoder) str(metadata map[string]dbus.Variant, key string) string {
	v, ok := metadata[key]
	if !ok {
		return ""
	}
	s, ok := v.Value().(string)
	if !ok {
		d.wrongType(key, v)
		return ""
	}
	return s
}

// strList joins a string array with ", ". Some non-compliant players send a
// plain string instead.
func (d decoder) strList(metadata map[string]dbus.Variant, key string) string {
	v, ok := metadata[key]
	if !ok {
		return ""
	}
	switch vals := v.Value().(type) {
	case []string:
		return strings.Join(vals, ", ")
	case string:
		return vals
	default:
		d.wrongType(key, v)
		return ""
	}
}

// u64 accepts the signed and unsigned integer encodings players use for lengths
func (d decoder) u64(metadata map[string]dbus.Variant, key string) uint64 {
	v, ok := metadata[key]
	if !ok {
		return 0
	}
	switch n := v.Value().(type) {
	case uint64:
		return n
	case int64:
		if n < 0 {
			return 0
		}
		return uint64(n)
	case uint32:
		return uint64(n)
	case int32:
		if n < 0 {
			return 0
		}
		return uint64(n)
	default:
		d.wrongType(key, v)
		return 0
	}
}

// trackID reads mpris:trackid, which should be an object path but is a
// string for some players
func (d decoder) trackID(metadata map[string]dbus.Variant) string {
	v, ok := metadata["mpris:trackid"]
	if !ok {
		return ""
	}
	switch id := v.Value().(type) {
	case dbus.ObjectPath:
		return string(id)
	case string:
		d.logger.Debug("mpris:trackid is a string, not an object path")
		return id
	default:
		d.wrongType("mpris:trackid", v)
		return ""
	}
}

func (d decoder) wrongType(key string, v dbus.Variant) {
	d.logger.Debug("Unexpected property type, using default",
		zap.String("key", key),
		zap.String("type", fmt.Sprintf("%T", v.Value())))
}
