package playback

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pe200012/Syrinx/internal/domain/catalog"
)

// RepeatMode controls what happens at the edges of the visible sequence.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// DefaultVolume is the volume applied until the user changes it.
const DefaultVolume = 0.8

// restartThreshold is how far into a track Previous restarts it instead of
// moving back.
const restartThreshold = 3.0

// State is a snapshot of the playback state machine.
type State struct {
	TrackID      string     `json:"trackId"`
	Playing      bool       `json:"playing"`
	Position     float64    `json:"position"`
	Duration     float64    `json:"duration"`
	Volume       float64    `json:"volume"`
	Shuffle      bool       `json:"shuffle"`
	Repeat       RepeatMode `json:"repeat"`
	CoverArtURL  string     `json:"coverArtUrl,omitempty"`
	TrackLoading bool       `json:"trackLoading"`
}

// Controller is the state machine governing current track, transport state,
// and shuffle/repeat transitions. It is driven by the visible track sequence
// and is the sole owner of the player device.
type Controller struct {
	mu      sync.Mutex
	device  Device
	source  StreamSource
	seq     []catalog.Track
	state   State
	loadGen uint64
	rng     *rand.Rand

	onChange func()
	onError  func(string)

	unsubscribe func()
	done        chan struct{}
}

// NewController creates a controller bound to a device and stream source and
// starts consuming device events.
func NewController(device Device, source StreamSource) *Controller {
	c := &Controller{
		device: device,
		source: source,
		state: State{
			Volume: DefaultVolume,
			Repeat: RepeatOff,
		},
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		done: make(chan struct{}),
	}

	events, release := device.Subscribe()
	c.unsubscribe = release
	go c.consumeEvents(events)

	return c
}

// SetOnChange registers a callback invoked after every state change.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetOnError registers a callback for recoverable track-load errors.
func (c *Controller) SetOnError(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// State returns a snapshot of the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close releases the device subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	release := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if release != nil {
		release()
	}
	close(c.done)
}

func (c *Controller) notifyChange() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Controller) notifyError(msg string) {
	c.mu.Lock()
	fn := c.onError
	c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// consumeEvents drives transport state off device events. Auto-advance fires
// exactly once per natural track end.
func (c *Controller) consumeEvents(events <-chan Event) {
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case EventStarted:
				c.mu.Lock()
				c.state.Playing = true
				c.mu.Unlock()
				c.notifyChange()
			case EventPaused:
				c.mu.Lock()
				c.state.Playing = false
				c.mu.Unlock()
				c.notifyChange()
			case EventTimeUpdated:
				c.mu.Lock()
				c.state.Position = ev.Seconds
				c.mu.Unlock()
				c.notifyChange()
			case EventDurationKnown:
				c.mu.Lock()
				c.state.Duration = ev.Seconds
				c.mu.Unlock()
				c.notifyChange()
			case EventEnded:
				c.mu.Lock()
				c.state.Playing = false
				c.mu.Unlock()
				c.Next(true)
			}
		}
	}
}

func (c *Controller) indexOf(id string) int {
	for i := range c.seq {
		if c.seq[i].ID == id {
			return i
		}
	}
	return -1
}

// setCurrentLocked switches the current track and kicks off the track-change
// side effect. Returns false when the track is already current.
func (c *Controller) setCurrentLocked(t catalog.Track) bool {
	if c.state.TrackID == t.ID {
		return false
	}

	c.state.TrackID = t.ID
	c.state.Position = 0
	c.state.Duration = 0
	c.state.CoverArtURL = ""
	c.state.TrackLoading = true
	c.loadGen++
	gen := c.loadGen

	go c.loadTrack(t, gen)
	return true
}

// loadTrack resolves a fresh stream URL and cover art for the new current
// track. Results from a superseded invocation are discarded.
func (c *Controller) loadTrack(t catalog.Track, gen uint64) {
	ctx := context.Background()

	url, err := c.source.StreamURL(ctx, t.Path)

	c.mu.Lock()
	if gen != c.loadGen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.state.TrackLoading = false
		c.state.Playing = false
		c.mu.Unlock()
		log.Warn().Err(err).Str("path", t.Path).Msg("Stream URL resolution failed")
		c.notifyError("Failed to load track: " + err.Error())
		c.notifyChange()
		return
	}
	volume := c.state.Volume
	c.mu.Unlock()

	if err := c.device.Load(url); err != nil {
		c.mu.Lock()
		if gen != c.loadGen {
			c.mu.Unlock()
			return
		}
		c.state.TrackLoading = false
		c.state.Playing = false
		c.mu.Unlock()
		log.Warn().Err(err).Str("path", t.Path).Msg("Device load failed")
		c.notifyError("Failed to load track: " + err.Error())
		c.notifyChange()
		return
	}
	if err := c.device.SetVolume(volume); err != nil {
		log.Debug().Err(err).Msg("Volume restore failed after load")
	}

	cover, err := c.source.CoverArtURL(ctx, t.Path)
	if err != nil {
		cover = ""
	}

	c.mu.Lock()
	if gen != c.loadGen {
		c.mu.Unlock()
		return
	}
	c.state.CoverArtURL = cover
	c.state.TrackLoading = false
	c.mu.Unlock()
	c.notifyChange()
}

// SetSequence replaces the visible track sequence and revalidates the current
// track against it: a vanished track falls back to the first visible one, or
// to none when the sequence is empty.
func (c *Controller) SetSequence(tracks []catalog.Track) {
	c.mu.Lock()
	c.seq = tracks

	if len(tracks) == 0 {
		if c.state.TrackID == "" {
			c.mu.Unlock()
			return
		}
		c.loadGen++
		c.state.TrackID = ""
		c.state.Playing = false
		c.state.Position = 0
		c.state.Duration = 0
		c.state.CoverArtURL = ""
		c.state.TrackLoading = false
		c.mu.Unlock()
		if err := c.device.Stop(); err != nil {
			log.Debug().Err(err).Msg("Device stop failed")
		}
		c.notifyChange()
		return
	}

	if c.state.TrackID != "" && c.indexOf(c.state.TrackID) >= 0 {
		c.mu.Unlock()
		return
	}

	changed := c.setCurrentLocked(tracks[0])
	c.mu.Unlock()
	if changed {
		c.notifyChange()
	}
}

// Select makes the given track current. Always allowed, even for tracks
// outside the visible sequence.
func (c *Controller) Select(t catalog.Track) {
	c.mu.Lock()
	changed := c.setCurrentLocked(t)
	c.mu.Unlock()
	if changed {
		c.notifyChange()
	}
}

// Next advances in the visible sequence. auto marks a natural track end as
// opposed to the user pressing the next button; the two differ at the end of
// the sequence when repeat is off.
func (c *Controller) Next(auto bool) {
	c.mu.Lock()

	n := len(c.seq)
	if n == 0 {
		c.mu.Unlock()
		return
	}

	// A current track outside the visible sequence counts as index -1, so a
	// sequential advance lands on the first visible track.
	cur := c.indexOf(c.state.TrackID)

	// Shuffle picks uniformly among the other visible tracks. Repeat mode is
	// not consulted here: shuffle overrides repeat-one.
	if c.state.Shuffle && n > 1 {
		var i int
		if cur < 0 {
			i = c.rng.Intn(n)
		} else {
			i = c.rng.Intn(n - 1)
			if i >= cur {
				i++
			}
		}
		changed := c.setCurrentLocked(c.seq[i])
		c.mu.Unlock()
		if changed {
			c.notifyChange()
		}
		return
	}

	if auto && c.state.Repeat == RepeatOne {
		c.mu.Unlock()
		c.restartCurrent()
		return
	}

	next := cur + 1
	if next >= n {
		if c.state.Repeat == RepeatAll {
			next = 0
		} else if auto {
			// Natural end of the sequence: stop and rewind, no advance.
			c.state.Playing = false
			c.state.Position = 0
			c.mu.Unlock()
			if err := c.device.Pause(); err != nil {
				log.Debug().Err(err).Msg("Device pause failed")
			}
			if err := c.device.SeekTo(0); err != nil {
				log.Debug().Err(err).Msg("Device seek failed")
			}
			c.notifyChange()
			return
		} else {
			// Explicit next on the last track with repeat off: no-op.
			c.mu.Unlock()
			return
		}
	}

	changed := c.setCurrentLocked(c.seq[next])
	c.mu.Unlock()
	if changed {
		c.notifyChange()
	}
}

// restartCurrent rewinds the current track and resumes playback in place.
func (c *Controller) restartCurrent() {
	if err := c.device.SeekTo(0); err != nil {
		log.Debug().Err(err).Msg("Device seek failed")
	}
	if err := c.device.Play(); err != nil {
		log.Debug().Err(err).Msg("Device play failed")
	}
	c.mu.Lock()
	c.state.Position = 0
	c.mu.Unlock()
	c.notifyChange()
}

// Previous restarts the current track when more than a few seconds have
// elapsed, otherwise moves back one position, wrapping when repeat is all.
func (c *Controller) Previous() {
	c.mu.Lock()

	n := len(c.seq)
	if n == 0 {
		c.mu.Unlock()
		return
	}

	if c.state.Position > restartThreshold {
		c.state.Position = 0
		c.mu.Unlock()
		if err := c.device.SeekTo(0); err != nil {
			log.Debug().Err(err).Msg("Device seek failed")
		}
		c.notifyChange()
		return
	}

	cur := c.indexOf(c.state.TrackID)
	if cur < 0 {
		cur = 0
	}

	prev := cur - 1
	if prev < 0 {
		if c.state.Repeat == RepeatAll {
			prev = n - 1
		} else {
			prev = 0
		}
	}

	changed := c.setCurrentLocked(c.seq[prev])
	c.mu.Unlock()
	if changed {
		c.notifyChange()
	}
}

// PlayPause toggles the transport. A rejected play is swallowed, mirroring
// browser autoplay policy; the transport simply stays paused.
func (c *Controller) PlayPause() {
	c.mu.Lock()
	playing := c.state.Playing
	c.mu.Unlock()

	if playing {
		if err := c.device.Pause(); err != nil {
			log.Debug().Err(err).Msg("Device pause failed")
		}
		return
	}
	if err := c.device.Play(); err != nil {
		log.Debug().Err(err).Msg("Device play failed")
	}
}

// Seek passes straight through to the device.
func (c *Controller) Seek(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	if err := c.device.SeekTo(seconds); err != nil {
		log.Debug().Err(err).Msg("Device seek failed")
		return
	}
	c.mu.Lock()
	c.state.Position = seconds
	c.mu.Unlock()
	c.notifyChange()
}

// SetVolume clamps to 0.0-1.0, applies to the device, and records the level
// so newly loaded tracks inherit it.
func (c *Controller) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	c.mu.Lock()
	c.state.Volume = v
	c.mu.Unlock()

	if err := c.device.SetVolume(v); err != nil {
		log.Debug().Err(err).Msg("Device set volume failed")
	}
	c.notifyChange()
}

// ToggleShuffle flips shuffle mode.
func (c *Controller) ToggleShuffle() {
	c.mu.Lock()
	c.state.Shuffle = !c.state.Shuffle
	c.mu.Unlock()
	c.notifyChange()
}

// CycleRepeat steps off -> all -> one -> off.
func (c *Controller) CycleRepeat() {
	c.mu.Lock()
	switch c.state.Repeat {
	case RepeatOff:
		c.state.Repeat = RepeatAll
	case RepeatAll:
		c.state.Repeat = RepeatOne
	default:
		c.state.Repeat = RepeatOff
	}
	c.mu.Unlock()
	c.notifyChange()
}

// Reset returns the controller to its initial state, stopping the device.
// Used when the session disconnects.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.loadGen++
	c.seq = nil
	c.state = State{
		Volume: DefaultVolume,
		Repeat: RepeatOff,
	}
	c.mu.Unlock()

	if err := c.device.Stop(); err != nil {
		log.Debug().Err(err).Msg("Device stop failed")
	}
	c.notifyChange()
}
