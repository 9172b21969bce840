// Package llm holds the transport helpers and sentinel errors shared by the
// concrete provider implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
	"unicode/utf8"
)

// Sentinel errors for provider failures. Every one of them triggers fallback.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrProviderAuth        = errors.New("ai provider rejected credentials")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
)

const dialTimeout = 5 * time.Second

// NewHTTPClient returns the client used for provider calls. Overall request
// deadlines come from the caller's context.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: dialTimeout,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// ClassifyError maps transport-level errors to sentinel errors.
func ClassifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

// StatusError maps a non-200 provider response to a sentinel error, including
// a bounded excerpt of the body.
func StatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	excerpt := Truncate(string(body), 256)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrProviderAuth, resp.StatusCode, excerpt)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, excerpt)
	}
}

// Truncate truncates s to maxBytes without splitting UTF-8 runes.
func Truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
