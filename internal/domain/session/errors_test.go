package session

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type httpError struct {
	code int
}

func (e *httpError) Error() string   { return fmt.Sprintf("http status %d", e.code) }
func (e *httpError) StatusCode() int { return e.code }

func TestExplainConnectionError(t *testing.T) {
	cfg := Config{BaseURL: "https://dav.example.com", Username: "anna", RootPath: "/music"}

	cases := []struct {
		name string
		err  error
		cfg  Config
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			cfg:  cfg,
			want: "",
		},
		{
			name: "blank url",
			err:  errors.New("whatever"),
			cfg:  Config{},
			want: "Enter the WebDAV server URL",
		},
		{
			name: "missing scheme",
			err:  errors.New("whatever"),
			cfg:  Config{BaseURL: "dav.example.com"},
			want: "Include the scheme",
		},
		{
			name: "unauthorized with credentials",
			err:  &httpError{code: 401},
			cfg:  cfg,
			want: "Check the username and password",
		},
		{
			name: "unauthorized without credentials",
			err:  &httpError{code: 401},
			cfg:  Config{BaseURL: "https://dav.example.com"},
			want: "may require a username and password",
		},
		{
			name: "forbidden",
			err:  &httpError{code: 403},
			cfg:  cfg,
			want: "Check the username and password",
		},
		{
			name: "not found names the path",
			err:  &httpError{code: 404},
			cfg:  cfg,
			want: "\"/music\" was not found",
		},
		{
			name: "server error",
			err:  &httpError{code: 503},
			cfg:  cfg,
			want: "internal error",
		},
		{
			name: "wrapped status error",
			err:  fmt.Errorf("listing failed: %w", &httpError{code: 404}),
			cfg:  cfg,
			want: "was not found",
		},
		{
			name: "tls failure",
			err:  errors.New("x509: certificate signed by unknown authority"),
			cfg:  cfg,
			want: "TLS certificate",
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 10.0.0.1:443: connect: connection refused"),
			cfg:  cfg,
			want: "Could not reach the server",
		},
		{
			name: "unknown host",
			err:  errors.New("dial tcp: lookup dav.example.com: no such host"),
			cfg:  cfg,
			want: "Could not reach the server",
		},
		{
			name: "timeout",
			err:  errors.New("context deadline exceeded"),
			cfg:  cfg,
			want: "Could not reach the server",
		},
		{
			name: "fallback includes cause",
			err:  errors.New("something odd"),
			cfg:  cfg,
			want: "something odd",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExplainConnectionError(tc.err, tc.cfg)
			if tc.want == "" {
				if got != "" {
					t.Errorf("expected empty message, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tc.want) {
				t.Errorf("expected message containing %q, got %q", tc.want, got)
			}
		})
	}
}
