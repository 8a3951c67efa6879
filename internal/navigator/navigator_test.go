package navigator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/network"

	"github.com/dgnsrekt/sc_agent/internal/authstore"
	"github.com/dgnsrekt/sc_agent/internal/config"
	"github.com/dgnsrekt/sc_agent/internal/selector"
)

// fakeTab resolves strategies by name and counts every interaction so tests
// can assert exactly how much UI work an operation performed.
type fakeTab struct {
	present    map[string]bool
	entries    []string
	clicks     map[string]int
	filled     map[string]string
	navigated  []string
	location   string
	cookies    []*network.Cookie
	setCookies int
}

func newFakeTab(present ...string) *fakeTab {
	p := make(map[string]bool, len(present))
	for _, name := range present {
		p[name] = true
	}
	return &fakeTab{present: p, clicks: make(map[string]int), filled: make(map[string]string)}
}

func (f *fakeTab) probe(s selector.Strategy) error {
	if f.present[s.Name] {
		return nil
	}
	return errors.New("absent")
}

func (f *fakeTab) WaitReady(ctx context.Context, s selector.Strategy) error   { return f.probe(s) }
func (f *fakeTab) WaitVisible(ctx context.Context, s selector.Strategy) error { return f.probe(s) }

func (f *fakeTab) Click(ctx context.Context, s selector.Strategy) error {
	f.clicks[s.Name]++
	return nil
}

func (f *fakeTab) Fill(ctx context.Context, s selector.Strategy, value string) error {
	f.filled[s.Name] = value
	return nil
}

func (f *fakeTab) Navigate(ctx context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	f.location = url
	return nil
}

func (f *fakeTab) Location(ctx context.Context) (string, error) { return f.location, nil }
func (f *fakeTab) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (f *fakeTab) TextAll(ctx context.Context, css string) ([]string, error) {
	return f.entries, nil
}

func (f *fakeTab) Evaluate(ctx context.Context, js string, out any) error { return nil }

func (f *fakeTab) SetCookies(ctx context.Context, cookies []*network.CookieParam) error {
	f.setCookies += len(cookies)
	return nil
}

func (f *fakeTab) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	return f.cookies, nil
}

func (f *fakeTab) Close() {}

func testConfig() *config.Config {
	return &config.Config{
		Username:          "trader1",
		Password:          "hunter2",
		BaseURL:           "https://stockcharts.com",
		LoginURL:          "https://stockcharts.com/login/",
		HubTicker:         "SPY",
		SelectorTimeoutMS: 100,
		NavTimeoutMS:      2000,
		LoginTimeoutMS:    2000,
	}
}

// dropdownTab is a tab where the chartlist dropdown machinery resolves.
func dropdownTab(entries ...string) *fakeTab {
	tab := newFakeTab("chartlist-toggle", "chart-toggle", "entry-text")
	tab.entries = entries
	return tab
}

func TestSelectChartListSecondCallIsCacheHit(t *testing.T) {
	nav := New(testConfig(), nil, "main")
	tab := dropdownTab("Swing Trades", "Long Term")

	hit, err := nav.SelectChartList(context.Background(), tab, "Swing Trades")
	if err != nil {
		t.Fatalf("SelectChartList() error = %v", err)
	}
	if hit {
		t.Fatal("first selection reported as cache hit")
	}
	if tab.clicks["chartlist-toggle"] != 1 || tab.clicks["entry-text"] != 1 {
		t.Fatalf("clicks = %v, want one toggle and one entry click", tab.clicks)
	}

	hit, err = nav.SelectChartList(context.Background(), tab, "Swing Trades")
	if err != nil {
		t.Fatalf("SelectChartList() repeat error = %v", err)
	}
	if !hit {
		t.Fatal("repeat selection not reported as cache hit")
	}
	if tab.clicks["chartlist-toggle"] != 1 || tab.clicks["entry-text"] != 1 {
		t.Fatalf("clicks after repeat = %v, want no additional UI interaction", tab.clicks)
	}
}

func TestResetBatchInvalidatesCache(t *testing.T) {
	nav := New(testConfig(), nil, "main")
	tab := dropdownTab("Swing Trades")

	if _, err := nav.SelectChartList(context.Background(), tab, "Swing Trades"); err != nil {
		t.Fatalf("SelectChartList() error = %v", err)
	}
	nav.ResetBatch()
	if got := nav.State().CurrentChartList; got != "" {
		t.Fatalf("CurrentChartList after reset = %q, want empty", got)
	}

	hit, err := nav.SelectChartList(context.Background(), tab, "Swing Trades")
	if err != nil {
		t.Fatalf("SelectChartList() after reset error = %v", err)
	}
	if hit {
		t.Fatal("selection after reset reported as cache hit")
	}
	if tab.clicks["chartlist-toggle"] != 2 {
		t.Fatalf("toggle clicks = %d, want 2 (cache invalidated)", tab.clicks["chartlist-toggle"])
	}
}

func TestSelectChartListNotFound(t *testing.T) {
	nav := New(testConfig(), nil, "main")
	tab := dropdownTab("Swing Trades", "Long Term")

	_, err := nav.SelectChartList(context.Background(), tab, "Crypto")
	var coded *CodedError
	if !errors.As(err, &coded) || coded.Code != CodeChartListNotFound {
		t.Fatalf("SelectChartList() error = %v, want %s", err, CodeChartListNotFound)
	}
	if got := nav.State().CurrentChartList; got != "" {
		t.Fatalf("cache set to %q on failed selection, want empty", got)
	}
}

func TestFallbackToTickerClearsCacheAndNavigates(t *testing.T) {
	cfg := testConfig()
	nav := New(cfg, nil, "main")
	tab := dropdownTab("Swing Trades")

	if _, err := nav.SelectChartList(context.Background(), tab, "Swing Trades"); err != nil {
		t.Fatalf("SelectChartList() error = %v", err)
	}
	if err := nav.FallbackToTicker(context.Background(), tab, "AAPL"); err != nil {
		t.Fatalf("FallbackToTicker() error = %v", err)
	}
	if got := nav.State().CurrentChartList; got != "" {
		t.Fatalf("CurrentChartList after fallback = %q, want empty", got)
	}
	if len(tab.navigated) != 1 || !strings.Contains(tab.navigated[0], "s=AAPL") {
		t.Fatalf("navigated = %v, want direct AAPL chart URL", tab.navigated)
	}
}

func TestStateReadsConcurrentWithSelection(t *testing.T) {
	// The controller lists sessions (reading State) while a batch is driving
	// the same navigator through ChartList switches in another goroutine.
	nav := New(testConfig(), nil, "main")
	tab := dropdownTab("Swing Trades", "Long Term")

	done := make(chan struct{})
	go func() {
		defer close(done)
		names := []string{"Swing Trades", "Long Term"}
		for i := 0; i < 200; i++ {
			if _, err := nav.SelectChartList(context.Background(), tab, names[i%2]); err != nil {
				t.Errorf("SelectChartList() error = %v", err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			got := nav.State().CurrentChartList
			if got != "Swing Trades" && got != "Long Term" {
				t.Fatalf("CurrentChartList = %q, want one of the selected lists", got)
			}
			return
		default:
			_ = nav.State()
		}
	}
}

func TestMatchEntryExactBeatsSubstring(t *testing.T) {
	entries := []string{"My Watchlist Archive", "My Watchlist"}

	got, ok := matchEntry(entries, "My Watchlist")
	if !ok || got != "My Watchlist" {
		t.Fatalf("matchEntry() = %q/%v, want exact match preferred", got, ok)
	}

	got, ok = matchEntry(entries, "watchlist arch")
	if !ok || got != "My Watchlist Archive" {
		t.Fatalf("matchEntry() = %q/%v, want case-insensitive substring match", got, ok)
	}

	if _, ok = matchEntry(entries, "Crypto"); ok {
		t.Fatal("matchEntry() matched an absent name")
	}
}

func TestSelectTimeframeBoxValidatesRange(t *testing.T) {
	nav := New(testConfig(), nil, "main")
	tab := newFakeTab("style-boxes-nth")

	for _, box := range []int{0, 13, -1} {
		err := nav.SelectTimeframeBox(context.Background(), tab, box)
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Code != CodeValidation {
			t.Fatalf("SelectTimeframeBox(%d) error = %v, want %s", box, err, CodeValidation)
		}
	}

	if err := nav.SelectTimeframeBox(context.Background(), tab, 4); err != nil {
		t.Fatalf("SelectTimeframeBox(4) error = %v", err)
	}
	if tab.clicks["style-boxes-nth"] != 1 {
		t.Fatalf("clicks = %v, want one style box click", tab.clicks)
	}
}

func TestSelectTimeframeBoxMissIsNonFatal(t *testing.T) {
	nav := New(testConfig(), nil, "main")
	tab := newFakeTab() // no style box resolves

	if err := nav.SelectTimeframeBox(context.Background(), tab, 7); err != nil {
		t.Fatalf("SelectTimeframeBox() error = %v, want nil (keep active style)", err)
	}
	if len(tab.clicks) != 0 {
		t.Fatalf("clicks = %v, want none", tab.clicks)
	}
}

func TestLoginRestoresPersistedSession(t *testing.T) {
	store := authstore.New(t.TempDir())
	saved := &authstore.AuthState{
		SessionID: "main",
		Cookies:   []*network.Cookie{{Name: "SCSESSID", Value: "abc", Domain: ".stockcharts.com"}},
	}
	if err := store.Save(saved); err != nil {
		t.Fatal(err)
	}

	nav := New(testConfig(), store, "main")
	tab := newFakeTab("logout-link") // member indicator present after cookie replay

	if err := nav.Login(context.Background(), tab); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !nav.State().Authenticated {
		t.Fatal("not marked authenticated after restore")
	}
	if tab.setCookies == 0 {
		t.Fatal("no cookies replayed into the tab")
	}
	if len(tab.filled) != 0 {
		t.Fatalf("filled = %v, want no form interaction on restored session", tab.filled)
	}
}

func TestLoginFormRejectionFailsLoud(t *testing.T) {
	nav := New(testConfig(), nil, "main")
	// Form resolves, but after submit the password field is still present
	// and no member indicator ever shows up.
	tab := newFakeTab("name=username", "name=password", "button-submit", "password-field")

	err := nav.Login(context.Background(), tab)
	var coded *CodedError
	if !errors.As(err, &coded) || coded.Code != CodeAuthFailed {
		t.Fatalf("Login() error = %v, want %s", err, CodeAuthFailed)
	}
	if nav.State().Authenticated {
		t.Fatal("marked authenticated after rejected login")
	}
	if tab.filled["name=username"] != "trader1" || tab.filled["name=password"] != "hunter2" {
		t.Fatalf("filled = %v, want credentials submitted", tab.filled)
	}
}

func TestLoginFormSuccessPersistsCookies(t *testing.T) {
	dir := t.TempDir()
	store := authstore.New(dir)
	nav := New(testConfig(), store, "main")
	tab := newFakeTab("name=username", "name=password", "button-submit", "logout-link")
	tab.cookies = []*network.Cookie{{Name: "SCSESSID", Value: "fresh", Domain: ".stockcharts.com"}}

	if err := nav.Login(context.Background(), tab); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	restored := store.Load("main")
	if restored == nil || len(restored.Cookies) != 1 {
		t.Fatalf("persisted state = %+v, want 1 cookie saved", restored)
	}
}
