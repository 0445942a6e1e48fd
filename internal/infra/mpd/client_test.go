package mpd_test

import (
	"testing"

	"github.com/pe200012/Syrinx/internal/infra/mpd"
)

func TestNewClient(t *testing.T) {
	client := mpd.NewClient("localhost", 6600, "")

	if client == nil {
		t.Error("NewClient should return a non-nil client")
	}
}

func TestClientConnectFailure(t *testing.T) {
	// Test connection to non-existent server
	client := mpd.NewClient("localhost", 16600, "") // Wrong port

	err := client.Connect()
	if err == nil {
		t.Error("Connect should fail for non-existent server")
		client.Close()
	}
}

func TestClientPingWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 6600, "")

	err := client.Ping()
	if err == nil {
		t.Error("Ping should fail when not connected")
	}
}

func TestDeviceSubscribeAndRelease(t *testing.T) {
	device := mpd.NewDevice(mpd.NewClient("localhost", 6600, ""))

	events, release := device.Subscribe()
	if events == nil {
		t.Fatal("Subscribe should return a non-nil channel")
	}

	release()
	if _, ok := <-events; ok {
		t.Error("release should close the event channel")
	}

	// Releasing twice must be safe.
	release()
}
