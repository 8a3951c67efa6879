// Package authstore persists authenticated browser state (cookies) per
// session id so restarts can skip the login form. Stored state is advisory:
// loading never fails hard, and a stale or corrupt file is treated the same
// as no file at all.
package authstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
)

// AuthState is the on-disk snapshot of an authenticated session.
type AuthState struct {
	SessionID string            `json:"session_id"`
	Username  string            `json:"username,omitempty"`
	SavedAt   time.Time         `json:"saved_at"`
	Cookies   []*network.Cookie `json:"cookies"`
}

// Store reads and writes AuthState files under a base directory, one JSON
// file per session id.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(sessionID string) string {
	// Session ids come from user config; keep them filesystem-safe.
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.', ' ':
			return '_'
		}
		return r
	}, sessionID)
	return filepath.Join(s.dir, safe+".json")
}

// Save writes the state atomically (temp file + rename) so a crash mid-write
// never leaves a truncated file that would poison the next restore.
func (s *Store) Save(state *AuthState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("auth state requires a session id")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	state.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal auth state: %w", err)
	}

	final := s.path(state.SessionID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write auth state: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit auth state: %w", err)
	}
	return nil
}

// Load returns the stored state for a session id, or nil if none exists.
// A corrupt file is logged and discarded rather than surfaced as an error;
// callers fall back to a fresh login either way.
func (s *Store) Load(sessionID string) *AuthState {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		return nil
	}
	var state AuthState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("discarding corrupt auth state", "session_id", sessionID, "error", err)
		s.Delete(sessionID)
		return nil
	}
	if len(state.Cookies) == 0 {
		return nil
	}
	return &state
}

// Delete removes stored state for a session id. Missing files are not errors.
func (s *Store) Delete(sessionID string) {
	if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to delete auth state", "session_id", sessionID, "error", err)
	}
}

// Age returns how long ago the state was saved.
func (a *AuthState) Age() time.Duration {
	return time.Since(a.SavedAt)
}

// CookieParams converts stored cookies into the form Network.setCookies
// accepts when replaying them into a fresh browser context.
func (a *AuthState) CookieParams() []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(a.Cookies))
	for _, c := range a.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(0, int64(c.Expires*float64(time.Second))))
			p.Expires = &exp
		}
		params = append(params, p)
	}
	return params
}
