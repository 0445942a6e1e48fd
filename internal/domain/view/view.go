// Package view derives the visible track sequence from the catalog.
//
// The pipeline is pure: playlist scope, then text filter, then sort. Its
// output is the working order for all playback navigation.
package view

import (
	"sort"
	"strings"

	"github.com/pe200012/Syrinx/internal/domain/catalog"
	"github.com/pe200012/Syrinx/internal/domain/playlist"
)

// SortKey selects which field the visible sequence is ordered by.
type SortKey string

const (
	SortTitle  SortKey = "title"
	SortArtist SortKey = "artist"
	SortAlbum  SortKey = "album"
	SortName   SortKey = "name"
)

// Direction is the sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// State holds the UI parameters that drive the pipeline.
type State struct {
	Search     string    `json:"search"`
	Key        SortKey   `json:"sortKey"`
	Dir        Direction `json:"sortDirection"`
	PlaylistID string    `json:"playlistId"`
}

// DefaultState is the state applied on connect: full catalog, sorted by
// title ascending, no filter.
func DefaultState() State {
	return State{
		Key:        SortTitle,
		Dir:        Ascending,
		PlaylistID: playlist.AllID,
	}
}

// Filter keeps tracks whose metadata title/artist/album, filename, or
// display path contains the term, case-insensitively. A blank term is the
// identity.
func Filter(tracks []catalog.Track, term string) []catalog.Track {
	out := make([]catalog.Track, 0, len(tracks))
	if strings.TrimSpace(term) == "" {
		return append(out, tracks...)
	}

	needle := strings.ToLower(term)
	for _, t := range tracks {
		fields := []string{t.Name, t.DisplayPath}
		if t.Meta != nil {
			fields = append(fields, t.Meta.Title, t.Meta.Artist, t.Meta.Album)
		}
		haystack := strings.ToLower(strings.Join(fields, " "))
		if strings.Contains(haystack, needle) {
			out = append(out, t)
		}
	}
	return out
}

// sortValue extracts the comparison value for a track under the given key.
// Title falls back to the filename; artist and album fall back to empty.
func sortValue(t catalog.Track, key SortKey) string {
	switch key {
	case SortArtist:
		if t.Meta != nil {
			return t.Meta.Artist
		}
		return ""
	case SortAlbum:
		if t.Meta != nil {
			return t.Meta.Album
		}
		return ""
	case SortName:
		return t.Name
	default:
		return t.DisplayTitle()
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Sort orders tracks by the chosen key, case-insensitively, breaking ties by
// display path and then filename. Descending inverts the composed comparison.
func Sort(tracks []catalog.Track, key SortKey, dir Direction) []catalog.Track {
	out := append(make([]catalog.Track, 0, len(tracks)), tracks...)

	sort.SliceStable(out, func(i, j int) bool {
		c := compareFold(sortValue(out[i], key), sortValue(out[j], key))
		if c == 0 {
			c = compareFold(out[i].DisplayPath, out[j].DisplayPath)
		}
		if c == 0 {
			c = compareFold(out[i].Name, out[j].Name)
		}
		if dir == Descending {
			c = -c
		}
		return c < 0
	})
	return out
}

// scope keeps only tracks belonging to the selected playlist. The playlist
// snapshot is the one derived alongside the catalog, so membership cannot
// drift from what the sidebar shows.
func scope(tracks []catalog.Track, lists []playlist.Playlist, id string) []catalog.Track {
	if id == "" || id == playlist.AllID {
		return tracks
	}
	pl := playlist.Find(lists, id)
	if pl == nil {
		return tracks
	}

	out := make([]catalog.Track, 0, len(tracks))
	for _, t := range tracks {
		if pl.Contains(t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// Apply runs the full pipeline: playlist scope, text filter, sort.
func Apply(tracks []catalog.Track, lists []playlist.Playlist, st State) []catalog.Track {
	key := st.Key
	if key == "" {
		key = SortTitle
	}
	dir := st.Dir
	if dir == "" {
		dir = Ascending
	}
	return Sort(Filter(scope(tracks, lists, st.PlaylistID), st.Search), key, dir)
}
