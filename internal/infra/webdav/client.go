package webdav

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/studio-b12/gowebdav"

	"github.com/pe200012/Syrinx/internal/domain/catalog"
)

// coverCandidates are probed in order inside a track's directory.
var coverCandidates = []string{"folder.jpg", "folder.png", "cover.jpg", "cover.png"}

// Options configures a WebDAV connection.
type Options struct {
	BaseURL  string
	Username string
	Password string
}

// Client wraps a gowebdav connection and implements the session's view of a
// music server: listing, stream URLs, cover art, and embedded metadata.
type Client struct {
	dav  *gowebdav.Client
	opts Options

	mu        sync.Mutex
	coverDirs map[string]string
	metaCache map[string]*catalog.Metadata
}

// New creates a client for the given endpoint. No network traffic happens
// until the first operation.
func New(opts Options) *Client {
	return &Client{
		dav:       gowebdav.NewClient(opts.BaseURL, opts.Username, opts.Password),
		opts:      opts,
		coverDirs: make(map[string]string),
		metaCache: make(map[string]*catalog.Metadata),
	}
}

// statusError carries the HTTP status of a failed WebDAV request.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webdav: status %d: %v", e.code, e.err)
}

func (e *statusError) StatusCode() int { return e.code }
func (e *statusError) Unwrap() error   { return e.err }

var knownStatusCodes = []int{401, 403, 404, 405, 500, 502, 503}

// wrapStatus attaches a StatusCode accessor when the error maps to a known
// HTTP status.
func wrapStatus(err error) error {
	if err == nil {
		return nil
	}
	for _, code := range knownStatusCodes {
		if gowebdav.IsErrCode(err, code) {
			return &statusError{code: code, err: err}
		}
	}
	return err
}

// ListTracks walks the tree under root and returns every audio entry found.
// With recursive false only root's direct children are considered.
func (c *Client) ListTracks(ctx context.Context, root string, recursive bool) ([]catalog.Entry, error) {
	root = catalog.NormalizePath(root)

	var entries []catalog.Entry
	queue := []string{root}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := queue[0]
		queue = queue[1:]

		infos, err := c.dav.ReadDir(dir)
		if err != nil {
			// Subdirectories that fail mid-walk are skipped; the root must list.
			if dir != root {
				log.Debug().Err(err).Str("dir", dir).Msg("Skipping unlistable directory")
				continue
			}
			return nil, wrapStatus(err)
		}

		for _, info := range infos {
			full := path.Join(dir, info.Name())
			if info.IsDir() {
				if recursive {
					queue = append(queue, full)
				}
				continue
			}

			entry := catalog.Entry{
				Path:    full,
				Name:    info.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}
			if f, ok := info.(*gowebdav.File); ok {
				entry.ContentType = f.ContentType()
				entry.ETag = f.ETag()
			}
			if catalog.IsAudioEntry(entry) {
				entries = append(entries, entry)
			}
		}
	}

	log.Debug().Int("entries", len(entries)).Str("root", root).Bool("recursive", recursive).Msg("WebDAV listing complete")
	return entries, nil
}

// StreamURL builds an absolute, credentialed URL for the player device to
// fetch the track from.
func (c *Client) StreamURL(ctx context.Context, trackPath string) (string, error) {
	u, err := url.Parse(c.opts.BaseURL)
	if err != nil {
		return "", fmt.Errorf("webdav: invalid base url: %w", err)
	}
	if c.opts.Username != "" {
		u.User = url.UserPassword(c.opts.Username, c.opts.Password)
	}
	u.Path = path.Join(u.Path, trackPath)
	return u.String(), nil
}

// CoverArtURL probes the track's directory for a well-known cover file and
// returns a local artwork URL for it, or "" when there is none. Probe
// results are cached per directory.
func (c *Client) CoverArtURL(ctx context.Context, trackPath string) (string, error) {
	dir := path.Dir(trackPath)

	c.mu.Lock()
	cached, ok := c.coverDirs[dir]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	found := ""
	for _, name := range coverCandidates {
		candidate := path.Join(dir, name)
		if _, err := c.dav.Stat(candidate); err == nil {
			found = "/albumart?path=" + url.QueryEscape(candidate)
			break
		}
	}

	c.mu.Lock()
	c.coverDirs[dir] = found
	c.mu.Unlock()
	return found, nil
}

// ReadCoverArt fetches the raw bytes of a cover file.
func (c *Client) ReadCoverArt(ctx context.Context, coverPath string) ([]byte, error) {
	if !isCoverPath(coverPath) {
		return nil, fmt.Errorf("webdav: not an artwork path: %s", coverPath)
	}
	data, err := c.dav.Read(coverPath)
	if err != nil {
		return nil, wrapStatus(err)
	}
	return data, nil
}

// isCoverPath restricts artwork reads to the probed cover filenames so the
// artwork endpoint cannot be used to fetch arbitrary server files.
func isCoverPath(p string) bool {
	base := strings.ToLower(path.Base(p))
	for _, name := range coverCandidates {
		if base == name {
			return true
		}
	}
	return false
}
