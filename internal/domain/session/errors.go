package session

import (
	"errors"
	"net/url"
	"strings"
)

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// ExplainConnectionError turns a connection failure into a message the user
// can act on, without leaking transport internals.
func ExplainConnectionError(err error, cfg Config) string {
	if err == nil {
		return ""
	}

	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return "Enter the WebDAV server URL before connecting."
	}
	if u, perr := url.Parse(base); perr != nil || u.Scheme == "" {
		return "The server URL looks invalid. Include the scheme, e.g. https://dav.example.com."
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch code := sc.StatusCode(); {
		case code == 401 || code == 403:
			if strings.TrimSpace(cfg.Username) == "" {
				return "The server rejected the request. It may require a username and password."
			}
			return "Authentication failed. Check the username and password."
		case code == 404:
			return "The folder \"" + cfg.RootPath + "\" was not found on the server. Check the start path."
		case code >= 500:
			return "The server reported an internal error. Try again later."
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "certificate") || strings.Contains(msg, "x509") || strings.Contains(msg, "tls"):
		return "The server's TLS certificate could not be verified."
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return "Could not reach the server. Check the URL and your network connection."
	}

	return "Connection failed: " + err.Error()
}
