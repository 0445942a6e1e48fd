// Package catalog builds the track catalog from raw WebDAV directory entries.
package catalog

import (
	"path"
	"strings"
	"time"
)

// Metadata holds tag-derived track information. A Track with a nil Metadata
// pointer but MetaRequested set has been enriched and yielded nothing.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	TrackNumber int    `json:"trackNumber,omitempty"`
}

// Empty reports whether no field carries information.
func (m *Metadata) Empty() bool {
	if m == nil {
		return true
	}
	return m.Title == "" && m.Artist == "" && m.Album == "" && m.TrackNumber == 0
}

// Track is one playable audio file resolved from the remote catalog.
type Track struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	DisplayPath  string    `json:"displayPath"`
	Size         int64     `json:"size"` // -1 when the server did not report one
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified,omitempty"`

	// Meta is nil until enrichment resolves it. MetaRequested distinguishes
	// "never requested" from "requested, found nothing".
	Meta          *Metadata `json:"metadata,omitempty"`
	MetaRequested bool      `json:"metaRequested"`
}

// DisplayTitle returns the tag title, falling back to the filename.
func (t Track) DisplayTitle() string {
	if t.Meta != nil && t.Meta.Title != "" {
		return t.Meta.Title
	}
	return t.Name
}

// Entry is a raw WebDAV directory entry before classification.
type Entry struct {
	Path        string
	Name        string
	Dir         bool
	Size        int64
	ContentType string
	ETag        string
	ModTime     time.Time
}

// audioExtensions is the allow-list of file extensions treated as audio.
var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".flac": {},
	".m4a":  {},
	".aac":  {},
	".wav":  {},
	".ogg":  {},
	".oga":  {},
	".opus": {},
	".weba": {},
	".alac": {},
}

// IsAudioEntry classifies an entry as audio by extension, with the MIME type
// prefix "audio/" as fallback.
func IsAudioEntry(e Entry) bool {
	if e.Dir {
		return false
	}
	ext := strings.ToLower(path.Ext(e.Name))
	if _, ok := audioExtensions[ext]; ok {
		return true
	}
	return strings.HasPrefix(e.ContentType, "audio/")
}

// NormalizePath cleans up a user-supplied WebDAV path: backslashes become
// slashes, a leading slash is guaranteed, blank input means the root.
func NormalizePath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" || trimmed == "/" {
		return "/"
	}
	sanitized := strings.ReplaceAll(trimmed, "\\", "/")
	if !strings.HasPrefix(sanitized, "/") {
		sanitized = "/" + sanitized
	}
	return sanitized
}

// Build maps raw entries to tracks, keeping only audio files. The display
// path is the entry path relative to rootPath with no leading slash; when
// that comes out empty the basename is used instead. Pure: no network, no
// mutation of the input.
func Build(entries []Entry, rootPath string) []Track {
	root := NormalizePath(rootPath)

	tracks := make([]Track, 0, len(entries))
	for _, e := range entries {
		if !IsAudioEntry(e) {
			continue
		}

		display := e.Path
		if strings.HasPrefix(display, root) {
			display = display[len(root):]
		}
		display = strings.TrimLeft(display, "/")
		if display == "" {
			display = e.Name
		}

		id := e.ETag
		if id == "" {
			id = e.Path
		}

		size := e.Size
		if size < 0 {
			size = -1
		}

		tracks = append(tracks, Track{
			ID:           id,
			Name:         e.Name,
			Path:         e.Path,
			DisplayPath:  display,
			Size:         size,
			ContentType:  e.ContentType,
			LastModified: e.ModTime,
		})
	}
	return tracks
}
