// Package config loads the autoclock configuration from a .env file, an optional
// yaml file and the process environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jakopako/autoclock/internal/credentials"
	"github.com/joho/godotenv"
)

// ErrMissing is returned by Validate when a required setting is empty.
var ErrMissing = errors.New("missing required setting")

// Schedule defines the work window during which a run is permitted.
// Days and Hours are cron fields (day-of-week and hour).
type Schedule struct {
	Timezone string `yaml:"timezone" env:"SCHEDULE_TIMEZONE" env-default:"Asia/Kolkata" env-description:"IANA time zone the work window is evaluated in"`
	Days     string `yaml:"days" env:"SCHEDULE_DAYS" env-default:"1-5" env-description:"cron day-of-week field of the work window"`
	Hours    string `yaml:"hours" env:"SCHEDULE_HOURS" env-default:"8-12" env-description:"cron hour field of the work window"`
	Language string `yaml:"language" env:"SCHEDULE_LANGUAGE" env-default:"en_US" env-description:"locale used for day names in the status report"`
}

// Browser configures the headless chrome instance.
type Browser struct {
	Headless     bool   `yaml:"headless" env:"BROWSER_HEADLESS" env-description:"run chrome without a window (default true)"`
	ExecPath     string `yaml:"exec_path" env:"BROWSER_EXEC_PATH" env-description:"chrome/chromium executable, looked up in PATH if empty"`
	UserAgent    string `yaml:"user_agent" env:"BROWSER_USER_AGENT" env-description:"user agent override"`
	WindowWidth  int    `yaml:"window_width" env:"BROWSER_WINDOW_WIDTH" env-default:"1920"`
	WindowHeight int    `yaml:"window_height" env:"BROWSER_WINDOW_HEIGHT" env-default:"1080"`
}

// Timeouts bound every wait on the page.
type Timeouts struct {
	LoginCheck   time.Duration `yaml:"login_check" env:"TIMEOUT_LOGIN_CHECK" env-default:"5s" env-description:"how long to look for the logout marker after navigating"`
	LoginConfirm time.Duration `yaml:"login_confirm" env:"TIMEOUT_LOGIN_CONFIRM" env-default:"60s" env-description:"how long to wait for the logout marker after submitting credentials"`
	Action       time.Duration `yaml:"action" env:"TIMEOUT_ACTION" env-default:"30s" env-description:"timeout for navigation, fills and clicks"`
	NetworkIdle  time.Duration `yaml:"network_idle" env:"TIMEOUT_NETWORK_IDLE" env-default:"30s" env-description:"how long to wait for the network to settle after clicking the toggle"`
}

// Pacing holds the pauses between page interactions.
type Pacing struct {
	Pause  time.Duration `yaml:"keystroke_pause" env:"PACING_PAUSE" env-default:"1s" env-description:"pause between form interactions"`
	Settle time.Duration `yaml:"settle" env:"PACING_SETTLE" env-default:"410ms" env-description:"pause after the toggle click for UI transitions"`
}

// Selectors locate the elements the session interacts with.
type Selectors struct {
	LogoutMarker string `yaml:"logout_marker" env:"SELECTOR_LOGOUT" env-default:"a[title=\"Logout\"]"`
	Username     string `yaml:"username" env:"SELECTOR_USERNAME" env-default:"input[name=\"username\"]"`
	Password     string `yaml:"password" env:"SELECTOR_PASSWORD" env-default:"input[name=\"password\"]"`
	Submit       string `yaml:"submit" env:"SELECTOR_SUBMIT" env-default:"button[type=\"submit\"]"`
	Toggle       string `yaml:"toggle" env:"SELECTOR_TOGGLE" env-default:"button[name=\"primary\"][type=\"button\"]"`
}

// Config is the complete configuration of a run. It is read once at startup
// and passed explicitly to the components that need it.
type Config struct {
	Username       string    `yaml:"username" env:"username" env-description:"portal user name"`
	Password       string    `yaml:"password" env:"password" env-description:"portal password"`
	BaseURL        string    `yaml:"base_url" env:"base_url" env-description:"login page of the portal, e.g. https://company.greythr.com/"`
	CookiesFile    string    `yaml:"cookies_file" env:"COOKIES_FILE" env-default:"cookies.json" env-description:"where session cookies are persisted"`
	ScreenshotFile string    `yaml:"screenshot_file" env:"SCREENSHOT_FILE" env-default:"login_proof.png" env-description:"where the proof screenshot is written"`
	KeyringService string    `yaml:"keyring_service" env:"KEYRING_SERVICE" env-description:"read the password from this OS keyring service if password is empty"`
	Schedule       Schedule  `yaml:"schedule"`
	Browser        Browser   `yaml:"browser"`
	Timeouts       Timeouts  `yaml:"timeouts"`
	Pacing         Pacing    `yaml:"pacing"`
	Selectors      Selectors `yaml:"selectors"`
}

// NewConfig loads the .env file (if any), then the config file at path (if it
// exists) and finally the environment, which takes precedence over the file.
func NewConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// headless has no env-default so that the config file can switch it off
	config := Config{Browser: Browser{Headless: true}}
	if _, err := os.Stat(path); path != "" && err == nil {
		slog.Debug(fmt.Sprintf("reading config file %s", path))
		if err := cleanenv.ReadConfig(path, &config); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&config); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return &config, nil
}

// ResolvePassword reads the password from the OS keyring if it is not set and
// a keyring service is configured.
func (c *Config) ResolvePassword() error {
	if c.Password != "" || c.KeyringService == "" {
		return nil
	}
	pw, err := credentials.NewKeyring(c.KeyringService, c.Username).Get()
	if err != nil {
		return err
	}
	c.Password = pw
	return nil
}

// Validate checks that the credentials and the portal url are set.
func (c *Config) Validate() error {
	missing := []string{}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if c.BaseURL == "" {
		missing = append(missing, "base_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Redacted returns a copy of the config that is safe to print.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "********"
	}
	return c
}

// Description returns the documentation of all environment variables.
func Description() (string, error) {
	header := "autoclock reads the following environment variables:"
	return cleanenv.GetDescription(&Config{}, &header)
}
