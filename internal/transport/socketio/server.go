// Package socketio provides the Socket.io server for client communication.
package socketio

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/pe200012/Syrinx/internal/domain/session"
	"github.com/pe200012/Syrinx/internal/domain/view"
)

// debounceWindow batches bursts of session changes, such as enrichment
// results landing batch after batch, into single broadcasts.
const debounceWindow = 50 * time.Millisecond

// maxClients caps concurrent socket connections; the oldest client is
// evicted when a new one would exceed it.
const maxClients = 16

// Server handles Socket.io connections and events.
type Server struct {
	io        *socket.Server
	sess      *session.Session
	debouncer *BroadcastDebouncer
	limiter   *ClientLimiter
	mu        sync.RWMutex
	clients   map[string]*socket.Socket
}

// NewServer creates a new Socket.io server bound to a session.
func NewServer(sess *session.Session) (*Server, error) {
	// Configure Socket.io server options
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	server := socket.NewServer(nil, opts)

	s := &Server{
		io:      server,
		sess:    sess,
		limiter: NewClientLimiter(maxClients),
		clients: make(map[string]*socket.Socket),
	}
	s.debouncer = NewBroadcastDebouncer(debounceWindow, s.BroadcastState, s.BroadcastLibrary)

	sess.SetOnChange(func() { s.debouncer.Trigger("library") })
	sess.Controller().SetOnChange(func() { s.debouncer.Trigger("state") })
	sess.Controller().SetOnError(func(msg string) {
		s.io.Emit("pushToast", map[string]interface{}{"type": "error", "message": msg})
	})

	s.setupHandlers()

	return s, nil
}

// parseConfig maps a connectServer payload onto a connection config.
func parseConfig(args []any) session.Config {
	var cfg session.Config
	if len(args) == 0 {
		return cfg
	}
	m, ok := args[0].(map[string]interface{})
	if !ok {
		return cfg
	}
	cfg.BaseURL, _ = m["baseUrl"].(string)
	cfg.Username, _ = m["username"].(string)
	cfg.Password, _ = m["password"].(string)
	cfg.RootPath, _ = m["rootPath"].(string)
	cfg.Recursive, _ = m["recursive"].(bool)
	cfg.Remember, _ = m["remember"].(bool)
	return cfg
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())

		log.Info().Str("id", clientID).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		if evicted := s.limiter.Add(clientID); evicted != "" {
			s.mu.Lock()
			old := s.clients[evicted]
			delete(s.clients, evicted)
			s.mu.Unlock()
			if old != nil {
				log.Info().Str("id", evicted).Msg("Evicting oldest client")
				old.Disconnect(true)
			}
		}

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushState(client)
			s.pushLibrary(client)
			s.pushSettings(client)
		}()

		// Handle disconnect
		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		// Connection lifecycle events
		client.On("connectServer", func(args ...any) {
			cfg := parseConfig(args)
			log.Debug().Str("id", clientID).Str("baseUrl", cfg.BaseURL).Msg("connectServer")

			go func() {
				if err := s.sess.Connect(context.Background(), cfg); err != nil {
					client.Emit("pushConnectionError", map[string]interface{}{
						"message": session.ExplainConnectionError(err, cfg),
					})
				}
			}()
		})

		client.On("disconnectServer", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("disconnectServer")
			s.sess.Disconnect()
		})

		client.On("refresh", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("refresh")
			go func() {
				if err := s.sess.Refresh(context.Background()); err != nil {
					client.Emit("pushToast", map[string]interface{}{
						"type":    "error",
						"message": "Refresh failed: " + err.Error(),
					})
				}
			}()
		})

		// View events
		client.On("search", func(args ...any) {
			if len(args) > 0 {
				if m, ok := args[0].(map[string]interface{}); ok {
					if term, ok := m["value"].(string); ok {
						log.Debug().Str("id", clientID).Str("term", term).Msg("search")
						s.sess.SetSearch(term)
					}
				}
			}
		})

		client.On("setSort", func(args ...any) {
			if len(args) > 0 {
				if m, ok := args[0].(map[string]interface{}); ok {
					key, _ := m["key"].(string)
					dir, _ := m["direction"].(string)
					log.Debug().Str("id", clientID).Str("key", key).Str("direction", dir).Msg("setSort")
					s.sess.SetSort(view.SortKey(key), view.Direction(dir))
				}
			}
		})

		client.On("selectPlaylist", func(args ...any) {
			if len(args) > 0 {
				if m, ok := args[0].(map[string]interface{}); ok {
					if id, ok := m["id"].(string); ok {
						log.Debug().Str("id", clientID).Str("playlist", id).Msg("selectPlaylist")
						s.sess.SelectPlaylist(id)
					}
				}
			}
		})

		client.On("selectTrack", func(args ...any) {
			if len(args) > 0 {
				if m, ok := args[0].(map[string]interface{}); ok {
					if id, ok := m["id"].(string); ok {
						log.Debug().Str("id", clientID).Str("track", id).Msg("selectTrack")
						s.sess.SelectTrack(id)
					}
				}
			}
		})

		// Playback control events
		client.On("playPause", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("playPause")
			s.sess.Controller().PlayPause()
		})

		client.On("next", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("next")
			s.sess.Controller().Next(false)
		})

		client.On("prev", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("prev")
			s.sess.Controller().Previous()
		})

		client.On("seek", func(args ...any) {
			if len(args) > 0 {
				if pos, ok := args[0].(float64); ok {
					log.Debug().Str("id", clientID).Float64("pos", pos).Msg("seek")
					s.sess.Controller().Seek(pos)
				}
			}
		})

		client.On("volume", func(args ...any) {
			if len(args) > 0 {
				if vol, ok := args[0].(float64); ok {
					log.Debug().Str("id", clientID).Float64("vol", vol).Msg("volume")
					s.sess.Controller().SetVolume(vol)
				}
			}
		})

		client.On("toggleShuffle", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("toggleShuffle")
			s.sess.Controller().ToggleShuffle()
		})

		client.On("cycleRepeat", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("cycleRepeat")
			s.sess.Controller().CycleRepeat()
		})

		// Snapshot requests
		client.On("getState", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getState")
			s.pushState(client)
		})

		client.On("getTracks", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getTracks")
			client.Emit("pushTracks", s.sess.VisibleTracks())
		})

		client.On("getPlaylists", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getPlaylists")
			client.Emit("pushPlaylists", s.playlistPayload())
		})

		client.On("getSettings", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getSettings")
			s.pushSettings(client)
		})
	})
}

// statePayload assembles the combined session and playback snapshot.
func (s *Server) statePayload() map[string]interface{} {
	cfg := s.sess.Config()
	st := s.sess.Controller().State()
	vw := s.sess.View()

	return map[string]interface{}{
		"connected": s.sess.Connected(),
		"loading":   s.sess.Loading(),
		"enriching": s.sess.EnrichmentRunning(),
		"server": map[string]interface{}{
			"baseUrl":  cfg.BaseURL,
			"username": cfg.Username,
			"rootPath": cfg.RootPath,
		},
		"view":     vw,
		"playback": st,
	}
}

// playlistPayload flattens playlists for the wire.
func (s *Server) playlistPayload() []map[string]interface{} {
	lists := s.sess.Playlists()
	out := make([]map[string]interface{}, 0, len(lists))
	for _, p := range lists {
		out = append(out, map[string]interface{}{
			"id":     p.ID,
			"label":  p.Label,
			"count":  p.Count(),
			"tracks": p.TrackIDs,
		})
	}
	return out
}

// pushState sends the combined snapshot to a client.
func (s *Server) pushState(client *socket.Socket) {
	client.Emit("pushState", s.statePayload())
}

// pushLibrary sends tracks and playlists to a client.
func (s *Server) pushLibrary(client *socket.Socket) {
	client.Emit("pushTracks", s.sess.VisibleTracks())
	client.Emit("pushPlaylists", s.playlistPayload())
}

// pushSettings sends the persisted connection settings to a client.
func (s *Server) pushSettings(client *socket.Socket) {
	cfg, err := s.sess.SavedSettings()
	if err != nil {
		log.Warn().Err(err).Msg("Loading saved settings failed")
		return
	}
	if cfg == nil {
		client.Emit("pushSettings", nil)
		return
	}
	client.Emit("pushSettings", map[string]interface{}{
		"baseUrl":   cfg.BaseURL,
		"username":  cfg.Username,
		"rootPath":  cfg.RootPath,
		"recursive": cfg.Recursive,
	})
}

// BroadcastState sends the combined snapshot to all connected clients.
func (s *Server) BroadcastState() {
	payload := s.statePayload()
	s.io.Emit("pushState", payload)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(payload)
		s.mu.RLock()
		clientCount := len(s.clients)
		s.mu.RUnlock()
		log.Debug().RawJSON("state", data).Int("clients", clientCount).Msg("Broadcast state")
	}
}

// BroadcastLibrary sends tracks and playlists to all connected clients.
func (s *Server) BroadcastLibrary() {
	s.io.Emit("pushTracks", s.sess.VisibleTracks())
	s.io.Emit("pushPlaylists", s.playlistPayload())
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}
