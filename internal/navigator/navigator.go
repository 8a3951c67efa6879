// Package navigator drives a single browser tab through login, ticker
// navigation, ChartList selection and timeframe selection against
// stockcharts.com, tracking what it believes the tab currently shows so
// redundant dropdown interactions can be skipped.
package navigator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/sc_agent/internal/authstore"
	"github.com/dgnsrekt/sc_agent/internal/config"
	"github.com/dgnsrekt/sc_agent/internal/selector"
)

// LoginOutcome is the result of probing the page for authentication state.
// The site gives no single reliable signal, so Unknown is a real answer.
type LoginOutcome int

const (
	LoginUnknown LoginOutcome = iota
	LoggedIn
	LoggedOut
)

func (o LoginOutcome) String() string {
	switch o {
	case LoggedIn:
		return "logged_in"
	case LoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Navigator owns one tab's navigation state. Navigation operations are
// sequenced per navigator by callers; State is safe from any goroutine.
type Navigator struct {
	cfg       *config.Config
	resolver  *selector.Resolver
	auth      *authstore.Store
	sessionID string
	log       *slog.Logger

	mu    sync.Mutex
	state NavigationState
}

// New creates a navigator for one session. auth may be nil to disable
// session persistence entirely.
func New(cfg *config.Config, auth *authstore.Store, sessionID string) *Navigator {
	return &Navigator{
		cfg:       cfg,
		resolver:  selector.New(time.Duration(cfg.SelectorTimeoutMS) * time.Millisecond),
		auth:      auth,
		sessionID: sessionID,
		log:       slog.With("session_id", sessionID),
	}
}

// Login authenticates the tab. It first tries to restore a persisted session
// (replaying saved cookies and probing a member page); if that does not
// produce a logged-in state it falls back to the login form. On success the
// fresh cookies are persisted best-effort.
func (n *Navigator) Login(ctx context.Context, tab Tab) error {
	if n.restoreSession(ctx, tab) {
		n.setAuthenticated()
		return nil
	}
	if err := n.formLogin(ctx, tab); err != nil {
		return err
	}
	n.setAuthenticated()
	n.persistSession(ctx, tab)
	return nil
}

// restoreSession replays stored cookies and checks whether they still hold.
// Any failure here is non-fatal; the form login path remains.
func (n *Navigator) restoreSession(ctx context.Context, tab Tab) bool {
	if n.auth == nil {
		return false
	}
	state := n.auth.Load(n.sessionID)
	if state == nil {
		return false
	}
	n.log.Info("restoring persisted session", "saved_at", state.SavedAt, "age", state.Age().Round(time.Second))

	if err := tab.SetCookies(ctx, state.CookieParams()); err != nil {
		n.log.Warn("failed to replay session cookies", "error", err)
		return false
	}
	if err := tab.Navigate(ctx, n.cfg.ChartURL(n.cfg.HubTicker)); err != nil {
		n.log.Warn("failed to open member page for session check", "error", err)
		return false
	}
	outcome := n.probeLoginState(ctx, tab)
	if outcome != LoggedIn {
		n.log.Info("persisted session no longer valid", "outcome", outcome.String())
		n.auth.Delete(n.sessionID)
		return false
	}
	n.log.Info("session restored without login form")
	return true
}

func (n *Navigator) formLogin(ctx context.Context, tab Tab) error {
	if n.cfg.Username == "" || n.cfg.Password == "" {
		return newError(CodeValidation, "credentials not configured", nil)
	}

	loginCtx, cancel := context.WithTimeout(ctx, time.Duration(n.cfg.LoginTimeoutMS)*time.Millisecond)
	defer cancel()

	n.log.Info("logging in via form", "url", n.cfg.LoginURL)
	if err := tab.Navigate(loginCtx, n.cfg.LoginURL); err != nil {
		return newError(CodeNavFailed, "open login page", err)
	}

	if m, err := n.resolver.Fill(loginCtx, tab, usernameStrategies, n.cfg.Username); err != nil {
		return newError(CodeAuthFailed, "username field not found", err)
	} else {
		n.log.Debug("filled username", "strategy", m.Strategy.Name)
	}
	if m, err := n.resolver.Fill(loginCtx, tab, passwordStrategies, n.cfg.Password); err != nil {
		return newError(CodeAuthFailed, "password field not found", err)
	} else {
		n.log.Debug("filled password", "strategy", m.Strategy.Name)
	}
	if m, err := n.resolver.Click(loginCtx, tab, loginSubmitStrategies); err != nil {
		return newError(CodeAuthFailed, "login submit button not found", err)
	} else {
		n.log.Debug("submitted login form", "strategy", m.Strategy.Name)
	}

	outcome := n.probeLoginState(loginCtx, tab)
	if outcome == LoginUnknown {
		// Give the post-submit navigation a moment to settle, then try once more.
		select {
		case <-time.After(2 * time.Second):
		case <-loginCtx.Done():
			return newError(CodeAuthFailed, "login timed out", loginCtx.Err())
		}
		outcome = n.probeLoginState(loginCtx, tab)
	}

	switch outcome {
	case LoggedIn:
		n.log.Info("login successful")
		return nil
	case LoggedOut:
		return newError(CodeAuthFailed, "login rejected: still on login form", nil)
	default:
		return newError(CodeAuthFailed, "login state unresolvable after submit", nil)
	}
}

// probeLoginState classifies the current page. Positive member indicators
// win over the login-form check; an explicit error box forces LoggedOut.
func (n *Navigator) probeLoginState(ctx context.Context, tab Tab) LoginOutcome {
	if _, err := n.resolver.Resolve(ctx, tab, loggedInStrategies, selector.Exists); err == nil {
		return LoggedIn
	}
	if _, err := n.resolver.Resolve(ctx, tab, loginErrorStrategies, selector.Exists); err == nil {
		return LoggedOut
	}
	if _, err := n.resolver.Resolve(ctx, tab, loggedOutStrategies, selector.Exists); err == nil {
		return LoggedOut
	}
	if url, err := tab.Location(ctx); err == nil {
		lower := strings.ToLower(url)
		if strings.Contains(lower, "login") || strings.Contains(lower, "signin") {
			return LoggedOut
		}
	}
	return LoginUnknown
}

func (n *Navigator) persistSession(ctx context.Context, tab Tab) {
	if n.auth == nil {
		return
	}
	cookies, err := tab.Cookies(ctx)
	if err != nil {
		n.log.Warn("session persistence skipped", "code", CodeSessionPersist, "error", err)
		return
	}
	state := &authstore.AuthState{SessionID: n.sessionID, Username: n.cfg.Username, Cookies: cookies}
	if err := n.auth.Save(state); err != nil {
		n.log.Warn("session persistence failed", "code", CodeSessionPersist, "error", err)
		return
	}
	n.log.Info("session cookies persisted", "cookies", len(cookies))
}

// SearchTicker brings the tab to the chart workbench for a ticker via direct
// URL. The chart element check is soft: a miss is logged, not fatal, since
// the dropdowns may still be present.
func (n *Navigator) SearchTicker(ctx context.Context, tab Tab, ticker string) error {
	if ticker == "" {
		return newError(CodeValidation, "ticker must not be empty", nil)
	}
	url := n.cfg.ChartURL(ticker)
	if err := tab.Navigate(ctx, url); err != nil {
		return newError(CodeNavFailed, "open chart page for "+ticker, err)
	}
	if _, err := n.resolver.Resolve(ctx, tab, chartElementStrategies, selector.Exists); err != nil {
		n.log.Warn("chart element not detected after navigation", "ticker", ticker, "error", err)
	}
	n.setTicker(ticker)
	return nil
}

// FallbackToTicker is the degraded path taken when dropdown navigation
// fails: go straight to the ticker URL and drop all cached dropdown state.
func (n *Navigator) FallbackToTicker(ctx context.Context, tab Tab, ticker string) error {
	n.log.Warn("falling back to direct ticker navigation", "ticker", ticker)
	n.setChartList("")
	return n.SearchTicker(ctx, tab, ticker)
}
