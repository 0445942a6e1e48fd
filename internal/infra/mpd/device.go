package mpd

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pe200012/Syrinx/internal/domain/playback"
)

// pollInterval drives position updates while a track is playing.
const pollInterval = time.Second

// Device adapts the MPD client to the playback.Device interface. The MPD
// queue always holds at most one track; track sequencing lives upstream in
// the playback controller.
type Device struct {
	client *Client

	mu            sync.Mutex
	subs          map[int]chan playback.Event
	nextSub       int
	paused        bool
	loaded        bool
	stopRequested bool
	lastState     string
	lastDuration  float64
}

// NewDevice creates a device on top of an MPD client.
func NewDevice(client *Client) *Device {
	return &Device{
		client: client,
		subs:   make(map[int]chan playback.Event),
	}
}

// Load replaces the MPD queue with the given URL and starts playing it.
func (d *Device) Load(url string) error {
	d.mu.Lock()
	d.loaded = false
	d.stopRequested = false
	d.mu.Unlock()

	if err := d.client.Clear(); err != nil {
		return err
	}
	if err := d.client.Add(url); err != nil {
		return err
	}
	if err := d.client.Play(0); err != nil {
		return err
	}

	d.mu.Lock()
	d.loaded = true
	d.paused = false
	d.mu.Unlock()
	return nil
}

// Play resumes playback, un-pausing when paused.
func (d *Device) Play() error {
	d.mu.Lock()
	paused := d.paused
	d.mu.Unlock()

	if paused {
		return d.client.Pause(false)
	}
	return d.client.Play(-1)
}

// Pause pauses playback.
func (d *Device) Pause() error {
	return d.client.Pause(true)
}

// Stop halts playback. The stop is recorded so the event loop does not
// mistake it for a natural track end.
func (d *Device) Stop() error {
	d.mu.Lock()
	d.stopRequested = true
	d.loaded = false
	d.mu.Unlock()
	return d.client.Stop()
}

// SeekTo seeks within the current track.
func (d *Device) SeekTo(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	return d.client.Seek(int(seconds))
}

// SetVolume maps the 0.0-1.0 scale onto MPD's 0-100.
func (d *Device) SetVolume(v float64) error {
	return d.client.SetVolume(int(math.Round(v * 100)))
}

// Subscribe registers an event listener. Slow listeners drop events rather
// than stall the loop.
func (d *Device) Subscribe() (<-chan playback.Event, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSub
	d.nextSub++
	ch := make(chan playback.Event, 16)
	d.subs[id] = ch

	release := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if c, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(c)
		}
	}
	return ch, release
}

func (d *Device) emit(ev playback.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Start runs the event loop until ctx is cancelled: it watches MPD's player
// subsystem for state changes and polls position while playing.
func (d *Device) Start(ctx context.Context) error {
	events, err := d.client.Watch("player")
	if err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				d.poll(true)
			case <-ticker.C:
				d.poll(false)
			}
		}
	}()

	return nil
}

// poll reads MPD status and turns deltas into events. stateChange marks
// polls triggered by the player subsystem rather than the position ticker.
func (d *Device) poll(stateChange bool) {
	status, err := d.client.Status()
	if err != nil {
		log.Debug().Err(err).Msg("MPD status poll failed")
		return
	}

	state := status["state"]
	elapsed, _ := strconv.ParseFloat(status["elapsed"], 64)
	duration, _ := strconv.ParseFloat(status["duration"], 64)

	d.mu.Lock()
	prev := d.lastState
	d.lastState = state
	d.paused = state == "pause"

	var out []playback.Event

	if duration > 0 && duration != d.lastDuration {
		d.lastDuration = duration
		out = append(out, playback.Event{Kind: playback.EventDurationKnown, Seconds: duration})
	}

	if stateChange && state != prev {
		switch state {
		case "play":
			out = append(out, playback.Event{Kind: playback.EventStarted})
		case "pause":
			out = append(out, playback.Event{Kind: playback.EventPaused})
		case "stop":
			// A stop nobody asked for while a track was loaded means the
			// track ran out.
			if prev == "play" && d.loaded && !d.stopRequested {
				d.loaded = false
				out = append(out, playback.Event{Kind: playback.EventEnded})
			}
		}
	}

	if state == "play" {
		out = append(out, playback.Event{Kind: playback.EventTimeUpdated, Seconds: elapsed})
	}
	d.mu.Unlock()

	for _, ev := range out {
		d.emit(ev)
	}
}
