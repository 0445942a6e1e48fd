package webdav

import (
	"bytes"
	"context"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog/log"

	"github.com/pe200012/Syrinx/internal/domain/catalog"
)

// metadataReadLimit bounds how much of a file is fetched for tag parsing.
// ID3v2 and Vorbis headers sit at the front of the file.
const metadataReadLimit = 512 * 1024

// FetchMetadata reads the head of the file and parses embedded tags, falling
// back to filename heuristics when the file carries none. Results, including
// misses, are cached per path; transport failures are returned uncached so a
// later attempt can retry.
func (c *Client) FetchMetadata(ctx context.Context, trackPath string) (*catalog.Metadata, error) {
	c.mu.Lock()
	if meta, ok := c.metaCache[trackPath]; ok {
		c.mu.Unlock()
		return meta, nil
	}
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream, err := c.dav.ReadStreamRange(trackPath, 0, metadataReadLimit)
	if err != nil {
		return nil, wrapStatus(err)
	}
	data, err := io.ReadAll(io.LimitReader(stream, metadataReadLimit))
	stream.Close()
	if err != nil {
		return nil, err
	}

	meta := parseTags(data)
	if meta == nil || meta.Empty() {
		meta = InferMetadata(trackPath)
	}

	c.mu.Lock()
	c.metaCache[trackPath] = meta
	c.mu.Unlock()
	return meta, nil
}

// parseTags extracts embedded metadata from the head of an audio file.
// Returns nil when the file has no recognizable tags.
func parseTags(data []byte) *catalog.Metadata {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		if err != tag.ErrNoTagsFound {
			log.Debug().Err(err).Msg("Tag parsing failed")
		}
		return nil
	}

	num, _ := m.Track()
	meta := &catalog.Metadata{
		Title:       strings.TrimSpace(m.Title()),
		Artist:      strings.TrimSpace(m.Artist()),
		Album:       strings.TrimSpace(m.Album()),
		TrackNumber: num,
	}
	if meta.Empty() {
		return nil
	}
	return meta
}

var leadingTrackNumber = regexp.MustCompile(`^(\d{1,3})[\s.\-_]+(.*)$`)

// InferMetadata derives best-effort metadata from the filename alone, for
// files that carry no embedded tags. A pattern like "07 - Artist - Title.mp3"
// yields track number, artist, and title. Album is never invented. Returns
// nil when the name gives nothing away.
func InferMetadata(trackPath string) *catalog.Metadata {
	name := path.Base(trackPath)
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.TrimSpace(name)

	meta := &catalog.Metadata{}

	if m := leadingTrackNumber.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			meta.TrackNumber = n
			name = strings.TrimSpace(m[2])
		}
	}

	if parts := strings.Split(name, " - "); len(parts) >= 2 {
		meta.Artist = strings.TrimSpace(parts[0])
		meta.Title = strings.TrimSpace(strings.Join(parts[1:], " - "))
	} else if meta.TrackNumber > 0 && name != "" {
		meta.Title = name
	}

	if meta.Empty() {
		return nil
	}
	return meta
}
