// Package playlist derives virtual playlists from the track catalog.
//
// Playlists are never persisted: they are recomputed wholesale every time the
// catalog changes. Tracks with an album tag group by album; the rest group by
// their top-level folder, or into "Loose tracks" when they sit at the root.
package playlist

import (
	"sort"
	"strings"

	"github.com/pe200012/Syrinx/internal/domain/catalog"
)

// AllID is the id of the synthetic playlist containing the full catalog.
// It always exists and always sorts first.
const AllID = "all"

// AllLabel is the display label of the synthetic full-catalog playlist.
const AllLabel = "All tracks"

// LooseLabel is the label for root-level tracks without an album tag.
const LooseLabel = "Loose tracks"

// Playlist is a derived grouping of tracks.
type Playlist struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	TrackIDs []string `json:"trackIds"`

	members map[string]struct{}
}

// Count returns the number of member tracks.
func (p *Playlist) Count() int {
	return len(p.TrackIDs)
}

// Contains reports whether the given track id is a member.
func (p *Playlist) Contains(id string) bool {
	_, ok := p.members[id]
	return ok
}

// groupKey derives the grouping key and label for a track. Album metadata
// wins; otherwise the first path segment names the folder playlist.
func groupKey(t catalog.Track) (key, label string) {
	if t.Meta != nil {
		if album := strings.TrimSpace(t.Meta.Album); album != "" {
			return "album::" + strings.ToLower(album), album
		}
	}

	p := t.DisplayPath
	if p == "" {
		p = t.Name
	}
	segments := strings.Split(p, "/")
	if len(segments) > 1 {
		return "folder::" + strings.ToLower(segments[0]), segments[0]
	}
	return "folder::" + strings.ToLower(LooseLabel), LooseLabel
}

// Derive recomputes all playlists from the catalog. The result starts with
// the synthetic "all" playlist followed by the groupings sorted by label,
// case-insensitively.
func Derive(tracks []catalog.Track) []Playlist {
	byKey := make(map[string]*Playlist)
	var order []string

	all := &Playlist{
		ID:      AllID,
		Label:   AllLabel,
		members: make(map[string]struct{}, len(tracks)),
	}

	for _, t := range tracks {
		all.TrackIDs = append(all.TrackIDs, t.ID)
		all.members[t.ID] = struct{}{}

		key, label := groupKey(t)
		pl, ok := byKey[key]
		if !ok {
			pl = &Playlist{
				ID:      key,
				Label:   label,
				members: make(map[string]struct{}),
			}
			byKey[key] = pl
			order = append(order, key)
		}
		pl.TrackIDs = append(pl.TrackIDs, t.ID)
		pl.members[t.ID] = struct{}{}
	}

	grouped := make([]Playlist, 0, len(order))
	for _, key := range order {
		grouped = append(grouped, *byKey[key])
	}
	sort.SliceStable(grouped, func(i, j int) bool {
		return strings.ToLower(grouped[i].Label) < strings.ToLower(grouped[j].Label)
	})

	return append([]Playlist{*all}, grouped...)
}

// Find returns the playlist with the given id, or nil.
func Find(lists []Playlist, id string) *Playlist {
	for i := range lists {
		if lists[i].ID == id {
			return &lists[i]
		}
	}
	return nil
}

// Revalidate checks a selected playlist id against the current set and falls
// back to the first playlist when it no longer exists.
func Revalidate(lists []Playlist, selected string) string {
	if Find(lists, selected) != nil {
		return selected
	}
	if len(lists) > 0 {
		return lists[0].ID
	}
	return AllID
}
