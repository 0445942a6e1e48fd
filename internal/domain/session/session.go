package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pe200012/Syrinx/internal/domain/catalog"
	"github.com/pe200012/Syrinx/internal/domain/playback"
	"github.com/pe200012/Syrinx/internal/domain/playlist"
	"github.com/pe200012/Syrinx/internal/domain/view"
	"github.com/pe200012/Syrinx/internal/infra/enrichment"
)

// ErrNotConnected is returned by operations that need a live server connection.
var ErrNotConnected = errors.New("session: not connected")

// Config holds the parameters of a WebDAV connection. The password is never
// serialized.
type Config struct {
	BaseURL   string `json:"baseUrl"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	RootPath  string `json:"rootPath"`
	Recursive bool   `json:"recursive"`
	Remember  bool   `json:"remember"`
}

// Client is the server side of a connection: listing, streaming, artwork and
// metadata for a single WebDAV endpoint.
type Client interface {
	ListTracks(ctx context.Context, root string, recursive bool) ([]catalog.Entry, error)
	StreamURL(ctx context.Context, path string) (string, error)
	CoverArtURL(ctx context.Context, path string) (string, error)
	ReadCoverArt(ctx context.Context, path string) ([]byte, error)
	FetchMetadata(ctx context.Context, path string) (*catalog.Metadata, error)
}

// Dialer builds a Client for a connection config.
type Dialer func(Config) Client

// SettingsStore persists connection settings between runs. Load returns
// nil, nil when nothing is stored.
type SettingsStore interface {
	Load() (*Config, error)
	Save(Config) error
	Clear() error
}

// Session owns the connection lifecycle and everything derived from it: the
// track catalog, the playlists, the current view, and the playback
// controller. All mutation funnels through its lock.
type Session struct {
	dial  Dialer
	store SettingsStore

	controller *playback.Controller
	queue      *enrichment.Queue

	mu        sync.Mutex
	client    Client
	cfg       Config
	connected bool
	loading   bool

	tracks  []catalog.Track
	lists   []playlist.Playlist
	view    view.State
	visible []catalog.Track

	onChange func()
}

// New creates a session driving the given playback device. The session itself
// acts as the controller's stream source and the enrichment fetcher, so both
// always talk to the currently connected server.
func New(device playback.Device, dial Dialer, store SettingsStore) *Session {
	s := &Session{
		dial:  dial,
		store: store,
		view:  view.DefaultState(),
	}
	s.controller = playback.NewController(device, s)
	s.queue = enrichment.NewQueue(s, s.applyMetadata)
	return s
}

// Controller exposes the playback state machine.
func (s *Session) Controller() *playback.Controller {
	return s.controller
}

// SetOnChange registers a callback invoked after session-level state changes.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Close shuts down the playback controller.
func (s *Session) Close() {
	s.controller.Close()
}

// StreamURL implements playback.StreamSource against the current connection.
func (s *Session) StreamURL(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return "", ErrNotConnected
	}
	return client.StreamURL(ctx, path)
}

// CoverArtURL implements playback.StreamSource against the current connection.
func (s *Session) CoverArtURL(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return "", ErrNotConnected
	}
	return client.CoverArtURL(ctx, path)
}

// ReadCoverArt serves artwork bytes for the HTTP artwork endpoint.
func (s *Session) ReadCoverArt(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil, ErrNotConnected
	}
	return client.ReadCoverArt(ctx, path)
}

// FetchMetadata implements enrichment.Fetcher against the current connection.
func (s *Session) FetchMetadata(ctx context.Context, path string) (*catalog.Metadata, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil, ErrNotConnected
	}
	return client.FetchMetadata(ctx, path)
}

// Connect dials the server, builds a fresh catalog from its listing, and
// replaces all derived state. On failure the previous connection, if any,
// stays intact.
func (s *Session) Connect(ctx context.Context, cfg Config) error {
	root := catalog.NormalizePath(cfg.RootPath)
	cfg.RootPath = root

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	client := s.dial(cfg)
	entries, err := client.ListTracks(ctx, root, cfg.Recursive)
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
		log.Warn().Err(err).Str("baseUrl", cfg.BaseURL).Msg("Connection failed")
		return err
	}

	tracks := catalog.Build(entries, root)

	s.queue.Reset()
	s.controller.Reset()

	s.mu.Lock()
	s.client = client
	s.cfg = cfg
	s.connected = true
	s.loading = false
	s.tracks = tracks
	s.lists = playlist.Derive(tracks)
	s.view = view.DefaultState()
	visible, enqueue := s.recomputeLocked()
	s.mu.Unlock()

	s.controller.SetSequence(visible)
	s.queue.Enqueue(enqueue)
	s.persistSettings(cfg)
	s.notify()

	log.Info().Int("tracks", len(tracks)).Str("root", root).Msg("Connected to WebDAV server")
	return nil
}

// Refresh re-lists the current server and replaces the catalog wholesale.
// While it runs the stale catalog stays visible behind the loading flag; on
// failure the stale catalog is kept.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	client := s.client
	cfg := s.cfg
	s.loading = true
	s.mu.Unlock()
	s.notify()

	entries, err := client.ListTracks(ctx, cfg.RootPath, cfg.Recursive)
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
		log.Warn().Err(err).Msg("Library refresh failed")
		return err
	}

	tracks := catalog.Build(entries, cfg.RootPath)
	s.queue.Reset()

	s.mu.Lock()
	s.loading = false
	s.tracks = tracks
	s.lists = playlist.Derive(tracks)
	s.view.PlaylistID = playlist.Revalidate(s.lists, s.view.PlaylistID)
	visible, enqueue := s.recomputeLocked()
	s.mu.Unlock()

	s.controller.SetSequence(visible)
	s.queue.Enqueue(enqueue)
	s.notify()

	log.Info().Int("tracks", len(tracks)).Msg("Library refreshed")
	return nil
}

// Disconnect drops the connection and clears all derived state. Persisted
// settings are left alone.
func (s *Session) Disconnect() {
	s.queue.Reset()

	s.mu.Lock()
	s.client = nil
	s.connected = false
	s.loading = false
	s.tracks = nil
	s.lists = nil
	s.visible = nil
	s.view = view.DefaultState()
	s.mu.Unlock()

	s.controller.Reset()
	s.notify()

	log.Info().Msg("Disconnected from WebDAV server")
}

// persistSettings saves or clears stored settings per the remember flag. The
// password never reaches the store.
func (s *Session) persistSettings(cfg Config) {
	if s.store == nil {
		return
	}
	if cfg.Remember {
		if err := s.store.Save(cfg); err != nil {
			log.Warn().Err(err).Msg("Saving connection settings failed")
		}
		return
	}
	if err := s.store.Clear(); err != nil {
		log.Warn().Err(err).Msg("Clearing connection settings failed")
	}
}

// SavedSettings returns the persisted connection settings, if any.
func (s *Session) SavedSettings() (*Config, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Load()
}

// recomputeLocked walks the derived-view pipeline and marks newly requested
// tracks for enrichment. Caller holds s.mu; the returned slices are handed to
// the controller and queue after the lock is released.
func (s *Session) recomputeLocked() (visible, enqueue []catalog.Track) {
	s.visible = view.Apply(s.tracks, s.lists, s.view)

	// Visible tracks that were never enriched get stamped as requested, so
	// repeated view recomputation cannot enqueue them twice.
	var index map[string]int
	for _, v := range s.visible {
		if v.Meta != nil || v.MetaRequested {
			continue
		}
		if index == nil {
			index = make(map[string]int, len(s.tracks))
			for i := range s.tracks {
				index[s.tracks[i].ID] = i
			}
		}
		if i, ok := index[v.ID]; ok && !s.tracks[i].MetaRequested {
			s.tracks[i].MetaRequested = true
			enqueue = append(enqueue, s.tracks[i])
		}
	}
	if len(enqueue) > 0 {
		s.visible = view.Apply(s.tracks, s.lists, s.view)
	}
	return s.visible, enqueue
}

// applyMetadata folds a batch of enrichment results into the catalog, then
// rebuilds playlists and the visible view since labels and grouping may have
// changed.
func (s *Session) applyMetadata(results map[string]*catalog.Metadata) {
	s.mu.Lock()
	touched := false
	next := make([]catalog.Track, len(s.tracks))
	copy(next, s.tracks)
	for i := range next {
		if meta, ok := results[next[i].ID]; ok {
			next[i].Meta = meta
			next[i].MetaRequested = true
			touched = true
		}
	}
	if !touched {
		s.mu.Unlock()
		return
	}
	s.tracks = next
	s.lists = playlist.Derive(next)
	s.view.PlaylistID = playlist.Revalidate(s.lists, s.view.PlaylistID)
	visible, enqueue := s.recomputeLocked()
	s.mu.Unlock()

	s.controller.SetSequence(visible)
	s.queue.Enqueue(enqueue)
	s.notify()
}

// SetSearch updates the free-text filter and recomputes the view.
func (s *Session) SetSearch(term string) {
	s.mu.Lock()
	if s.view.Search == term {
		s.mu.Unlock()
		return
	}
	s.view.Search = term
	visible, enqueue := s.recomputeLocked()
	s.mu.Unlock()

	s.controller.SetSequence(visible)
	s.queue.Enqueue(enqueue)
	s.notify()
}

// SetSort updates the sort key and direction and recomputes the view.
func (s *Session) SetSort(key view.SortKey, dir view.Direction) {
	s.mu.Lock()
	if s.view.Key == key && s.view.Dir == dir {
		s.mu.Unlock()
		return
	}
	s.view.Key = key
	s.view.Dir = dir
	visible, enqueue := s.recomputeLocked()
	s.mu.Unlock()

	s.controller.SetSequence(visible)
	s.queue.Enqueue(enqueue)
	s.notify()
}

// SelectPlaylist switches the playlist scope. Changing scope clears the
// search filter.
func (s *Session) SelectPlaylist(id string) {
	s.mu.Lock()
	id = playlist.Revalidate(s.lists, id)
	if s.view.PlaylistID == id && s.view.Search == "" {
		s.mu.Unlock()
		return
	}
	s.view.PlaylistID = id
	s.view.Search = ""
	visible, enqueue := s.recomputeLocked()
	s.mu.Unlock()

	s.controller.SetSequence(visible)
	s.queue.Enqueue(enqueue)
	s.notify()
}

// SelectTrack makes the given catalog track current, whether or not it is in
// the visible view.
func (s *Session) SelectTrack(id string) {
	s.mu.Lock()
	var found *catalog.Track
	for i := range s.tracks {
		if s.tracks[i].ID == id {
			found = &s.tracks[i]
			break
		}
	}
	if found == nil {
		s.mu.Unlock()
		return
	}
	t := *found
	s.mu.Unlock()

	s.controller.Select(t)
}

// Connected reports whether a server connection is live.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Loading reports whether a listing is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// EnrichmentRunning reports whether metadata extraction is in flight.
func (s *Session) EnrichmentRunning() bool {
	return s.queue.Running()
}

// Config returns the active connection config.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// View returns the current view state.
func (s *Session) View() view.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// VisibleTracks returns the tracks of the current view, in view order.
func (s *Session) VisibleTracks() []catalog.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Track, len(s.visible))
	copy(out, s.visible)
	return out
}

// Playlists returns the derived playlists.
func (s *Session) Playlists() []playlist.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]playlist.Playlist, len(s.lists))
	copy(out, s.lists)
	return out
}
