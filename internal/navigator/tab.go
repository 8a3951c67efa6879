package navigator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/sc_agent/internal/selector"
)

// Tab is a single browser tab the navigator drives. The chromedp
// implementation lives here; tests substitute fakes.
type Tab interface {
	selector.Page
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	TextAll(ctx context.Context, css string) ([]string, error)
	Evaluate(ctx context.Context, js string, out any) error
	SetCookies(ctx context.Context, cookies []*network.CookieParam) error
	Cookies(ctx context.Context) ([]*network.Cookie, error)
	Close()
}

// Browser owns the CDP connection and hands out tabs. The first tab reuses
// the browser's initial page; subsequent tabs are fresh targets in the same
// browser, sharing its cookie jar.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	first       *chromedpTab

	mu   sync.Mutex
	tabs []*chromedpTab
}

// Connect attaches to a running browser over CDP. The returned Browser is
// usable until Close; a dead endpoint surfaces as CDP_UNAVAILABLE.
func Connect(ctx context.Context, cdpURL string) (*Browser, error) {
	slog.Info("connecting to browser", "url", cdpURL)

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), cdpURL)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, newError(CodeCDPUnavailable, fmt.Sprintf("connect to %s", cdpURL), err)
	}

	b := &Browser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		first:       &chromedpTab{ctx: tabCtx, cancel: tabCancel},
	}
	b.tabs = append(b.tabs, b.first)
	return b, nil
}

// FirstTab returns the tab established at connect time.
func (b *Browser) FirstTab() Tab { return b.first }

// NewTab opens an additional tab in the same browser.
func (b *Browser) NewTab(ctx context.Context) (Tab, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.first.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, newError(CodeCDPUnavailable, "open new tab", err)
	}
	t := &chromedpTab{ctx: tabCtx, cancel: tabCancel}
	b.mu.Lock()
	b.tabs = append(b.tabs, t)
	b.mu.Unlock()
	return t, nil
}

// Close tears down every tab context and the allocator.
func (b *Browser) Close() {
	b.mu.Lock()
	tabs := b.tabs
	b.tabs = nil
	b.mu.Unlock()
	for _, t := range tabs {
		t.Close()
	}
	b.allocCancel()
	slog.Info("browser connection closed")
}

type chromedpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// run executes chromedp actions on the tab's context while honoring the
// caller's deadline and cancellation.
func (t *chromedpTab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		runCtx, dcancel = context.WithDeadline(runCtx, deadline)
		defer dcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func queryOption(s selector.Strategy) chromedp.QueryOption {
	switch s.Kind {
	case selector.CSS:
		return chromedp.ByQuery
	default:
		// XPath and text queries both resolve through DOM search.
		return chromedp.BySearch
	}
}

func (t *chromedpTab) Navigate(ctx context.Context, url string) error {
	return t.run(ctx, chromedp.Navigate(url))
}

func (t *chromedpTab) Location(ctx context.Context) (string, error) {
	var url string
	err := t.run(ctx, chromedp.Location(&url))
	return url, err
}

func (t *chromedpTab) WaitReady(ctx context.Context, s selector.Strategy) error {
	return t.run(ctx, chromedp.WaitReady(s.Query, queryOption(s)))
}

func (t *chromedpTab) WaitVisible(ctx context.Context, s selector.Strategy) error {
	return t.run(ctx, chromedp.WaitVisible(s.Query, queryOption(s)))
}

func (t *chromedpTab) Click(ctx context.Context, s selector.Strategy) error {
	return t.run(ctx, chromedp.Click(s.Query, queryOption(s)))
}

func (t *chromedpTab) Fill(ctx context.Context, s selector.Strategy, value string) error {
	return t.run(ctx,
		chromedp.Clear(s.Query, queryOption(s)),
		chromedp.SendKeys(s.Query, value, queryOption(s)),
	)
}

func (t *chromedpTab) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := t.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (t *chromedpTab) TextAll(ctx context.Context, css string) ([]string, error) {
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(e => e.textContent.trim()).filter(t => t.length > 0)`,
		css)
	var out []string
	if err := t.run(ctx, chromedp.Evaluate(js, &out)); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *chromedpTab) Evaluate(ctx context.Context, js string, out any) error {
	return t.run(ctx, chromedp.Evaluate(js, out))
}

func (t *chromedpTab) SetCookies(ctx context.Context, cookies []*network.CookieParam) error {
	return t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(cookies).Do(ctx)
	}))
}

func (t *chromedpTab) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	return cookies, err
}

func (t *chromedpTab) Close() {
	t.once.Do(t.cancel)
}
