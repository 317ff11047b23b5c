// Package cookies persists the browser session cookies between runs.
package cookies

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/spf13/afero"
)

// Cookie is a browser cookie as stored in the cookie file. The field names
// follow the format written by common browser automation tools, so existing
// cookie files can be reused.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // seconds since epoch, -1 for session cookies
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Store reads and writes a cookie set as a json array.
type Store struct {
	fs   afero.Fs
	path string
}

func NewStore(fs afero.Fs, path string) *Store {
	return &Store{
		fs:   fs,
		path: path,
	}
}

// Load returns the stored cookies. A missing or malformed file yields no
// cookies and no error; any other read error is returned.
func (s *Store) Load() ([]Cookie, error) {
	logger := slog.With(slog.String("cookies", s.path))
	b, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("no cookie file found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file %s: %w", s.path, err)
	}
	var cookies []Cookie
	if err := json.Unmarshal(b, &cookies); err != nil {
		logger.Debug(fmt.Sprintf("ignoring malformed cookie file: %v", err))
		return nil, nil
	}
	logger.Debug(fmt.Sprintf("loaded %d cookies", len(cookies)))
	return cookies, nil
}

// Save overwrites the cookie file with the given cookies.
func (s *Store) Save(cookies []Cookie) error {
	if cookies == nil {
		cookies = []Cookie{}
	}
	// cookie values may contain characters that json.Marshal would escape
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cookies); err != nil {
		return fmt.Errorf("error while encoding cookies: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, buffer.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write cookie file %s: %w", s.path, err)
	}
	slog.Debug(fmt.Sprintf("wrote %d cookies to file %s", len(cookies), s.path))
	return nil
}
