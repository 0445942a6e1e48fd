// Package playback provides the playback controller domain logic: current
// track selection, transport state, and shuffle/repeat navigation over the
// visible track sequence.
package playback

import "context"

// EventKind identifies a player device event.
type EventKind int

const (
	// EventStarted is emitted when the device begins or resumes playback.
	EventStarted EventKind = iota
	// EventPaused is emitted when playback is paused.
	EventPaused
	// EventTimeUpdated carries the current playback position in seconds.
	EventTimeUpdated
	// EventDurationKnown carries the track duration in seconds.
	EventDurationKnown
	// EventEnded is emitted when a track finishes naturally.
	EventEnded
)

// Event is a typed notification from the player device.
type Event struct {
	Kind    EventKind
	Seconds float64
}

// Device is the black-box media transport. The controller is its only
// driver; no other component may invoke transport operations on it.
type Device interface {
	// Load replaces the device's media with the given URL and attempts to
	// start playback.
	Load(url string) error
	Play() error
	Pause() error
	Stop() error
	SeekTo(seconds float64) error
	// SetVolume takes a level in the range 0.0-1.0.
	SetVolume(v float64) error
	// Subscribe returns an event channel and a release function. The channel
	// is closed when the device shuts down.
	Subscribe() (<-chan Event, func())
}

// StreamSource resolves the URLs a track needs when it becomes current.
type StreamSource interface {
	StreamURL(ctx context.Context, path string) (string, error)
	// CoverArtURL returns the empty string when no artwork exists; an error
	// is treated the same way.
	CoverArtURL(ctx context.Context, path string) (string, error)
}
