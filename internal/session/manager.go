// Package session manages parallel browser sessions: one Chromium process
// per session, each with its own profile, CDP port, navigator and screenshot
// directory, plus window placement so sessions tile across the screen.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/dgnsrekt/sc_agent/internal/authstore"
	"github.com/dgnsrekt/sc_agent/internal/browser"
	"github.com/dgnsrekt/sc_agent/internal/config"
	"github.com/dgnsrekt/sc_agent/internal/navigator"
	"github.com/dgnsrekt/sc_agent/internal/orchestrator"
	"github.com/dgnsrekt/sc_agent/internal/relay"
	"github.com/dgnsrekt/sc_agent/internal/snapshot"
)

// Session is one managed browser instance. Nav and Orch are nil until
// InitializeSession succeeds.
type Session struct {
	ID       string
	Position *browser.Rect

	// mu is held across the whole browser launch so concurrent init calls
	// for the same id serialize instead of racing two Chromium processes.
	mu          sync.Mutex
	launcher    *browser.Launcher
	conn        *navigator.Browser
	store       *snapshot.Store
	Nav         *navigator.Navigator
	Orch        *orchestrator.Orchestrator
	initialized bool
}

// Manager owns all sessions. Each session has its own navigator and
// therefore its own ChartList cache; nothing is shared between them.
type Manager struct {
	cfg    *config.Config
	auth   *authstore.Store
	broker *relay.Broker

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
	nextPort int
}

// NewManager creates a session manager. auth and broker may be nil.
func NewManager(cfg *config.Config, auth *authstore.Store, broker *relay.Broker) *Manager {
	return &Manager{
		cfg:      cfg,
		auth:     auth,
		broker:   broker,
		sessions: make(map[string]*Session),
		nextPort: cfg.CDPPort,
	}
}

// CreateSession registers a session. Idempotent: an existing id returns the
// existing session with a warning rather than an error.
func (m *Manager) CreateSession(id string, pos *browser.Rect) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[id]; ok {
		slog.Warn("session already exists, returning existing", "session_id", id)
		return existing
	}

	s := &Session{ID: id, Position: pos}
	m.sessions[id] = s
	m.order = append(m.order, id)
	slog.Info("session created", "session_id", id)
	if m.broker != nil {
		m.broker.PublishJSON(relay.FeedSession, map[string]string{"session_id": id, "state": "created"})
	}
	return s
}

// allocPort hands each session the next CDP port after the configured base.
func (m *Manager) allocPort() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	port := m.nextPort
	m.nextPort++
	return port
}

// InitializeSession launches the session's browser, connects over CDP and
// optionally logs in. Window placement is applied via launch flags; a
// placement that cannot be honored is not fatal.
func (m *Manager) InitializeSession(ctx context.Context, id string, autoLogin bool) error {
	s, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		slog.Warn("session already initialized", "session_id", id)
		return nil
	}

	port := m.allocPort()
	s.launcher = browser.NewLauncher(browser.Config{
		CDPAddress: m.cfg.CDPAddress,
		CDPPort:    port,
		ProfileDir: filepath.Join(m.cfg.SessionDir, id),
		Headless:   m.cfg.Headless,
		Kiosk:      m.cfg.Kiosk,
		Window:     s.Position,
	})
	if err := s.launcher.Launch(ctx); err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}

	conn, err := navigator.Connect(ctx, s.launcher.CDPURL())
	if err != nil {
		s.launcher.Stop()
		return fmt.Errorf("session %s: %w", id, err)
	}
	s.conn = conn

	store, err := snapshot.NewStore(filepath.Join(m.cfg.ScreenshotDir, id))
	if err != nil {
		conn.Close()
		s.launcher.Stop()
		return fmt.Errorf("session %s: %w", id, err)
	}

	s.store = store
	s.Nav = navigator.New(m.cfg, m.auth, id)
	s.Orch = orchestrator.New(m.cfg, s.Nav, store, m.broker, id)

	if autoLogin {
		if err := s.Nav.Login(ctx, conn.FirstTab()); err != nil {
			conn.Close()
			s.launcher.Stop()
			s.conn = nil
			return fmt.Errorf("session %s: %w", id, err)
		}
	}

	s.initialized = true
	slog.Info("session initialized", "session_id", id, "cdp_port", port, "auto_login", autoLogin)
	if m.broker != nil {
		m.broker.PublishJSON(relay.FeedSession, map[string]string{"session_id": id, "state": "initialized"})
	}
	return nil
}

// Tabs returns the session's browser connection for orchestrator use.
func (s *Session) Tabs() orchestrator.TabSource { return s.conn }

// Initialized reports whether InitializeSession has completed.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Store returns the session's capture store, nil until initialized.
func (s *Session) Store() *snapshot.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns session ids in creation order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// CloseSession tears down one session's connection and browser process.
func (m *Manager) CloseSession(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		for i, sid := range m.order {
			if sid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	if s.launcher != nil {
		s.launcher.Stop()
	}
	s.initialized = false
	s.mu.Unlock()
	slog.Info("session closed", "session_id", id)
	if m.broker != nil {
		m.broker.PublishJSON(relay.FeedSession, map[string]string{"session_id": id, "state": "closed"})
	}
}

// CloseAllSessions shuts every session down concurrently, best effort.
func (m *Manager) CloseAllSessions() {
	ids := m.List()
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			m.CloseSession(id)
		}(id)
	}
	wg.Wait()
	slog.Info("all sessions closed", "count", len(ids))
}
