package socketio_test

import (
	"testing"

	"github.com/pe200012/Syrinx/internal/domain/playback"
	"github.com/pe200012/Syrinx/internal/domain/session"
	"github.com/pe200012/Syrinx/internal/transport/socketio"
)

// nullDevice implements playback.Device for testing
type nullDevice struct {
	events chan playback.Event
}

func (d *nullDevice) Load(url string) error        { return nil }
func (d *nullDevice) Play() error                  { return nil }
func (d *nullDevice) Pause() error                 { return nil }
func (d *nullDevice) Stop() error                  { return nil }
func (d *nullDevice) SeekTo(seconds float64) error { return nil }
func (d *nullDevice) SetVolume(v float64) error    { return nil }
func (d *nullDevice) Subscribe() (<-chan playback.Event, func()) {
	return d.events, func() {}
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	device := &nullDevice{events: make(chan playback.Event, 1)}
	sess := session.New(device, func(session.Config) session.Client { return nil }, nil)
	t.Cleanup(sess.Close)
	return sess
}

func TestNewServer(t *testing.T) {
	server, err := socketio.NewServer(newTestSession(t))
	if err != nil {
		t.Errorf("NewServer should not return error: %v", err)
	}

	if server == nil {
		t.Error("NewServer should return a non-nil server")
	}
}

func TestServerClose(t *testing.T) {
	server, err := socketio.NewServer(newTestSession(t))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if err := server.Close(); err != nil {
		t.Errorf("Close should not error: %v", err)
	}
}

func TestServerBroadcastStateWithoutClients(t *testing.T) {
	server, err := socketio.NewServer(newTestSession(t))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	// BroadcastState should not panic with no clients
	server.BroadcastState()
}

func TestServerBroadcastLibraryWithoutClients(t *testing.T) {
	server, err := socketio.NewServer(newTestSession(t))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	// BroadcastLibrary should not panic with no clients
	server.BroadcastLibrary()
}
