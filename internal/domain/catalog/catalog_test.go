package catalog

import (
	"testing"
	"time"
)

func TestIsAudioEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{"mp3 by extension", Entry{Name: "song.mp3"}, true},
		{"flac uppercase extension", Entry{Name: "SONG.FLAC"}, true},
		{"opus by extension", Entry{Name: "song.opus"}, true},
		{"unknown extension with audio mime", Entry{Name: "song.xyz", ContentType: "audio/x-custom"}, true},
		{"unknown extension without mime", Entry{Name: "notes.txt"}, false},
		{"image file", Entry{Name: "cover.jpg", ContentType: "image/jpeg"}, false},
		{"directory named like audio", Entry{Name: "album.mp3", Dir: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAudioEntry(tt.entry); got != tt.want {
				t.Errorf("IsAudioEntry(%q) = %v, want %v", tt.entry.Name, got, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"  ", "/"},
		{"music", "/music"},
		{"/music/", "/music/"},
		{"music\\flac", "/music/flac"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuild(t *testing.T) {
	mod := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Path: "/music/album/01 track.mp3", Name: "01 track.mp3", Size: 1024, ContentType: "audio/mpeg", ETag: "etag-1", ModTime: mod},
		{Path: "/music/album", Name: "album", Dir: true},
		{Path: "/music/readme.txt", Name: "readme.txt", ContentType: "text/plain"},
		{Path: "/music/loose.flac", Name: "loose.flac", Size: 2048},
	}

	tracks := Build(entries, "/music")

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	first := tracks[0]
	if first.ID != "etag-1" {
		t.Errorf("expected etag-based id, got %q", first.ID)
	}
	if first.DisplayPath != "album/01 track.mp3" {
		t.Errorf("unexpected displayPath %q", first.DisplayPath)
	}
	if !first.LastModified.Equal(mod) {
		t.Errorf("unexpected lastModified %v", first.LastModified)
	}

	second := tracks[1]
	if second.ID != "/music/loose.flac" {
		t.Errorf("expected path-based id fallback, got %q", second.ID)
	}
	if second.DisplayPath != "loose.flac" {
		t.Errorf("unexpected displayPath %q", second.DisplayPath)
	}
}

func TestBuildDisplayPathFallsBackToName(t *testing.T) {
	entries := []Entry{
		{Path: "/music", Name: "music.mp3"},
	}

	tracks := Build(entries, "/music")
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if tracks[0].DisplayPath != "music.mp3" {
		t.Errorf("expected basename fallback, got %q", tracks[0].DisplayPath)
	}
}

func TestDisplayTitle(t *testing.T) {
	track := Track{Name: "file.mp3"}
	if track.DisplayTitle() != "file.mp3" {
		t.Errorf("expected filename fallback, got %q", track.DisplayTitle())
	}

	track.Meta = &Metadata{Title: "Real Title"}
	if track.DisplayTitle() != "Real Title" {
		t.Errorf("expected tag title, got %q", track.DisplayTitle())
	}

	track.Meta = &Metadata{Artist: "Someone"}
	if track.DisplayTitle() != "file.mp3" {
		t.Errorf("expected filename fallback for empty title, got %q", track.DisplayTitle())
	}
}

func TestMetadataEmpty(t *testing.T) {
	var m *Metadata
	if !m.Empty() {
		t.Error("nil metadata should be empty")
	}
	if !(&Metadata{}).Empty() {
		t.Error("zero metadata should be empty")
	}
	if (&Metadata{Album: "X"}).Empty() {
		t.Error("metadata with album should not be empty")
	}
}
