// Package browser provides the browser capabilities the session relies on,
// backed by chrome (chromedp) or by canned pages for tests.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/jakopako/autoclock/internal/config"
	"github.com/jakopako/autoclock/internal/cookies"
)

// ErrTimeout is returned when a bounded wait elapses. Other failures (e.g. a
// crashed browser or an invalid selector) are returned as different errors.
var ErrTimeout = errors.New("timed out")

// A Driver controls one page in an isolated browsing context.
type Driver interface {
	// SetCookies injects cookies into the browsing context. Should be called
	// before the first navigation.
	SetCookies(ctx context.Context, cs []cookies.Cookie) error
	Navigate(ctx context.Context, url string) error
	// WaitVisible waits until an element matching selector is visible.
	// It returns an error wrapping ErrTimeout if that does not happen within timeout.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	// Cookies returns all cookies of the browsing context.
	Cookies(ctx context.Context) ([]cookies.Cookie, error)
	// Screenshot captures the full page as png.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// A Launcher starts a browser and returns a driver for a fresh browsing context.
type Launcher func(ctx context.Context, c *config.Config) (Driver, error)
