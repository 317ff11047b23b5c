// Package session drives one browser session through the portal login and the
// attendance toggle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jakopako/autoclock/internal/attendance"
	"github.com/jakopako/autoclock/internal/browser"
	"github.com/jakopako/autoclock/internal/config"
	"github.com/jakopako/autoclock/internal/cookies"
	"github.com/jakopako/autoclock/internal/log"
	"github.com/spf13/afero"
)

var (
	// ErrLoginTimeout is returned when the logged-in marker does not show up
	// within the confirmation timeout after submitting the credentials.
	ErrLoginTimeout = errors.New("login not confirmed in time")
	// ErrLoginFailed covers every other failure of the login sequence.
	ErrLoginFailed = errors.New("login failed")
	// ErrToggle is returned when the attendance toggle cannot be read or clicked.
	ErrToggle = errors.New("attendance toggle failed")
)

// Result reports the outcome of a Run.
type Result struct {
	AlreadyLoggedIn bool
	LoggedIn        bool
	State           attendance.State
	Clicked         bool
	Screenshot      string
	LoginErr        error
	ToggleErr       error
}

// Success is false only if the login failed. A failing toggle is reported in
// ToggleErr but does not fail the run.
func (r *Result) Success() bool {
	return r.LoggedIn
}

// Manager owns the configuration, the cookie store and the browser launcher.
type Manager struct {
	config *config.Config
	launch browser.Launcher
	fs     afero.Fs
	store  *cookies.Store
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(c *config.Config, launch browser.Launcher, fs afero.Fs) *Manager {
	return &Manager{
		config: c,
		launch: launch,
		fs:     fs,
		store:  cookies.NewStore(fs, c.CookiesFile),
		sleep:  sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run restores the session, logs in if needed, toggles the attendance and
// writes the proof screenshot. Failures of the login or the toggle are
// reported in the Result; errors are only returned for unexpected failures
// such as an unreadable cookie file or an unwritable screenshot.
func (m *Manager) Run(ctx context.Context) (*Result, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String("url", m.config.BaseURL))
	ctx = log.ContextWithLogger(ctx, logger)

	saved, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	d, err := m.launch(ctx, m.config)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn(fmt.Sprintf("failed to close browser: %v", err))
		}
	}()

	if len(saved) > 0 {
		logger.Debug(fmt.Sprintf("restoring %d cookies", len(saved)))
		if err := d.SetCookies(ctx, saved); err != nil {
			logger.Warn(fmt.Sprintf("failed to restore cookies: %v", err))
		}
	}

	res := &Result{}
	if err := d.Navigate(ctx, m.config.BaseURL); err != nil {
		res.LoginErr = fmt.Errorf("%w: navigation: %w", ErrLoginFailed, err)
		logger.Error(res.LoginErr.Error())
		return res, nil
	}

	if m.IsLoggedIn(ctx, d) {
		logger.Info("Already logged in")
		res.AlreadyLoggedIn = true
	} else {
		logger.Info("Not logged in. Attempting login...")
		if err := m.Login(ctx, d); err != nil {
			logger.Error(err.Error())
			res.LoginErr = err
			return res, nil
		}
		logger.Info("Manual login successful")
	}
	res.LoggedIn = true

	state, clicked, err := m.ToggleAttendance(ctx, d)
	res.State, res.Clicked = state, clicked
	if err != nil {
		logger.Error(err.Error())
		res.ToggleErr = err
	}

	if err := m.screenshot(ctx, d); err != nil {
		return res, err
	}
	res.Screenshot = m.config.ScreenshotFile
	return res, nil
}

// IsLoggedIn reports whether the logout marker shows up within the login
// check timeout. Any failure counts as not logged in.
func (m *Manager) IsLoggedIn(ctx context.Context, d browser.Driver) bool {
	err := d.WaitVisible(ctx, m.config.Selectors.LogoutMarker, m.config.Timeouts.LoginCheck)
	if err != nil {
		log.LoggerFromContext(ctx).Debug(fmt.Sprintf("logout marker not found: %v", err))
		return false
	}
	return true
}

// Login fills in the credentials, submits the form, waits for the logout
// marker and persists the cookies of the new session.
func (m *Manager) Login(ctx context.Context, d browser.Driver) error {
	sel := m.config.Selectors
	steps := []struct {
		name string
		do   func() error
	}{
		{"fill username", func() error { return d.Fill(ctx, sel.Username, m.config.Username) }},
		{"pause", func() error { return m.sleep(ctx, m.config.Pacing.Pause) }},
		{"fill password", func() error { return d.Fill(ctx, sel.Password, m.config.Password) }},
		{"pause", func() error { return m.sleep(ctx, m.config.Pacing.Pause) }},
		{"submit", func() error { return d.Click(ctx, sel.Submit) }},
	}
	for _, s := range steps {
		if err := s.do(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrLoginFailed, s.name, err)
		}
	}

	if err := d.WaitVisible(ctx, sel.LogoutMarker, m.config.Timeouts.LoginConfirm); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return fmt.Errorf("%w: %w", ErrLoginTimeout, err)
		}
		return fmt.Errorf("%w: confirm: %w", ErrLoginFailed, err)
	}

	cs, err := d.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("%w: read cookies: %w", ErrLoginFailed, err)
	}
	if err := m.store.Save(cs); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	return nil
}

// ToggleAttendance reads the toggle label and clicks it unless the user is
// already clocked in. It returns the state found before clicking and whether
// a click was issued.
func (m *Manager) ToggleAttendance(ctx context.Context, d browser.Driver) (attendance.State, bool, error) {
	logger := log.LoggerFromContext(ctx)
	sel := m.config.Selectors.Toggle

	if err := d.WaitVisible(ctx, sel, m.config.Timeouts.Action); err != nil {
		return attendance.NotClockedIn, false, fmt.Errorf("%w: %w", ErrToggle, err)
	}
	label, err := d.Text(ctx, sel)
	if err != nil {
		return attendance.NotClockedIn, false, fmt.Errorf("%w: read label: %w", ErrToggle, err)
	}
	state := attendance.Classify(label)
	logger.Info(fmt.Sprintf("Clock up status: %s", state))

	if state == attendance.ClockedIn {
		logger.Info("Skipping the click...")
		return state, false, nil
	}

	logger.Info("Clicking the sign in button...")
	if err := m.sleep(ctx, m.config.Pacing.Pause); err != nil {
		return state, false, fmt.Errorf("%w: %w", ErrToggle, err)
	}
	if err := d.Click(ctx, sel); err != nil {
		return state, false, fmt.Errorf("%w: click: %w", ErrToggle, err)
	}
	if err := d.WaitNetworkIdle(ctx, m.config.Timeouts.NetworkIdle); err != nil {
		return state, true, fmt.Errorf("%w: network idle: %w", ErrToggle, err)
	}
	if err := m.sleep(ctx, m.config.Pacing.Settle); err != nil {
		return state, true, fmt.Errorf("%w: %w", ErrToggle, err)
	}
	return state, true, nil
}

func (m *Manager) screenshot(ctx context.Context, d browser.Driver) error {
	buf, err := d.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := afero.WriteFile(m.fs, m.config.ScreenshotFile, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	log.LoggerFromContext(ctx).Info(fmt.Sprintf("wrote screenshot to file %s", m.config.ScreenshotFile))
	return nil
}
