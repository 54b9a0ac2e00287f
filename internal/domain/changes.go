package domain

import "strings"

// ChangeSet is a bitset of Metadata fields that differ between two snapshots
type ChangeSet uint8

const (
	ChangedLength ChangeSet = 1 << iota
	ChangedTrackID
	ChangedTitle
	ChangedAlbum
	ChangedArtist
	ChangedArtURL
	ChangedURL
)

var changeNames = []struct {
	flag ChangeSet
	name string
}{
	{ChangedLength, "length"},
	{ChangedTrackID, "trackId"},
	{ChangedTitle, "title"},
	{ChangedAlbum, "album"},
	{ChangedArtist, "artist"},
	{ChangedArtURL, "artUrl"},
	{ChangedURL, "url"},
}

// Diff compares two metadata snapshots field by field
func Diff(old, new Metadata) ChangeSet {
	var c ChangeSet
	if old.Length != new.Length {
		c |= ChangedLength
	}
	if old.TrackID != new.TrackID {
		c |= ChangedTrackID
	}
	if old.Title != new.Title {
		c |= ChangedTitle
	}
	if old.Album != new.Album {
		c |= ChangedAlbum
	}
	if old.Artist != new.Artist {
		c |= ChangedArtist
	}
	if old.ArtURL != new.ArtURL {
		c |= ChangedArtURL
	}
	if old.URL != new.URL {
		c |= ChangedURL
	}
	return c
}

// None reports whether no tracked field differs
func (c ChangeSet) None() bool {
	return c == 0
}

// Has reports whether any of the given fields changed
func (c ChangeSet) Has(fields ChangeSet) bool {
	return c&fields != 0
}

func (c ChangeSet) String() string {
	if c.None() {
		return "none"
	}
	var parts []string
	for _, n := range changeNames {
		if c.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
