package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/cdproto/network"

	"github.com/dgnsrekt/sc_agent/internal/chartconfig"
	"github.com/dgnsrekt/sc_agent/internal/config"
	"github.com/dgnsrekt/sc_agent/internal/navigator"
	"github.com/dgnsrekt/sc_agent/internal/selector"
	"github.com/dgnsrekt/sc_agent/internal/snapshot"
)

// fakeTab implements navigator.Tab; strategies resolve by name and every
// interaction is counted on the shared counters so a test can total UI work
// across all tabs in a batch.
type fakeTab struct {
	present  map[string]bool
	entries  []string
	counters *counters
}

type counters struct {
	clicks    map[string]int
	navigated []string
}

func newCounters() *counters {
	return &counters{clicks: make(map[string]int)}
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
	f.counters.clicks[s.Name]++
	return nil
}

func (f *fakeTab) Fill(ctx context.Context, s selector.Strategy, value string) error { return nil }

func (f *fakeTab) Navigate(ctx context.Context, url string) error {
	f.counters.navigated = append(f.counters.navigated, url)
	return nil
}

func (f *fakeTab) Location(ctx context.Context) (string, error)   { return "", nil }
func (f *fakeTab) Screenshot(ctx context.Context) ([]byte, error) { return []byte("png"), nil }

func (f *fakeTab) TextAll(ctx context.Context, css string) ([]string, error) {
	return f.entries, nil
}

func (f *fakeTab) Evaluate(ctx context.Context, js string, out any) error { return nil }
func (f *fakeTab) SetCookies(ctx context.Context, c []*network.CookieParam) error {
	return nil
}
func (f *fakeTab) Cookies(ctx context.Context) ([]*network.Cookie, error) { return nil, nil }
func (f *fakeTab) Close()                                                 {}

// fakeTabs hands out tabs that share one counter set and dropdown contents.
type fakeTabs struct {
	present   []string
	entries   []string
	counters  *counters
	opened    int
	newTabErr error
}

func newFakeTabs(entries []string, present ...string) *fakeTabs {
	return &fakeTabs{present: present, entries: entries, counters: newCounters()}
}

func (f *fakeTabs) makeTab() *fakeTab {
	p := make(map[string]bool, len(f.present))
	for _, name := range f.present {
		p[name] = true
	}
	return &fakeTab{present: p, entries: f.entries, counters: f.counters}
}

func (f *fakeTabs) FirstTab() navigator.Tab { return f.makeTab() }

func (f *fakeTabs) NewTab(ctx context.Context) (navigator.Tab, error) {
	if f.newTabErr != nil {
		return nil, f.newTabErr
	}
	f.opened++
	return f.makeTab(), nil
}

func testSetup(t *testing.T) *Orchestrator {
	t.Helper()
	cfg := &config.Config{
		BaseURL:           "https://stockcharts.com",
		HubTicker:         "SPY",
		SelectorTimeoutMS: 100,
		NavTimeoutMS:      5000,
	}
	nav := navigator.New(cfg, nil, "main")
	store, err := snapshot.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(cfg, nav, store, nil, "main")
}

func batchRequests() []chartconfig.ChartRequest {
	return []chartconfig.ChartRequest{
		{ChartList: "A", ChartName: "X", TabOrder: 1},
		{ChartList: "A", ChartName: "Y", TabOrder: 2},
		{ChartList: "B", ChartName: "Z", TabOrder: 3},
	}
}

func TestOpenBatchSharesCacheAcrossTabs(t *testing.T) {
	tabs := newFakeTabs([]string{"A", "B"}, "chartlist-toggle", "chart-toggle", "entry-text")
	o := testSetup(t)

	summary, err := o.OpenBatch(context.Background(), tabs, batchRequests())
	if err != nil {
		t.Fatalf("OpenBatch() error = %v", err)
	}

	// Requests 1 and 2 share ChartList A: exactly two dropdown opens total.
	if got := tabs.counters.clicks["chartlist-toggle"]; got != 2 {
		t.Fatalf("chartlist dropdown opened %d times, want 2", got)
	}
	if summary.CacheHits != 1 || summary.CacheMisses != 2 {
		t.Fatalf("cache hits/misses = %d/%d, want 1/2", summary.CacheHits, summary.CacheMisses)
	}
	if summary.Succeeded != 3 || summary.Failed != 0 {
		t.Fatalf("succeeded/failed = %d/%d, want 3/0", summary.Succeeded, summary.Failed)
	}
}

func TestOpenBatchResultsKeyedByTabOrder(t *testing.T) {
	tabs := newFakeTabs([]string{"A", "B"}, "chartlist-toggle", "chart-toggle", "entry-text")
	o := testSetup(t)

	summary, err := o.OpenBatch(context.Background(), tabs, batchRequests())
	if err != nil {
		t.Fatalf("OpenBatch() error = %v", err)
	}
	for _, order := range []int{1, 2, 3} {
		result, ok := summary.Results[order]
		if !ok {
			t.Fatalf("no result for tab order %d", order)
		}
		if result.TabOrder != order || !result.Success {
			t.Fatalf("result[%d] = %+v", order, result)
		}
		if result.CaptureID == "" || result.Screenshot == "" {
			t.Fatalf("result[%d] missing capture: %+v", order, result)
		}
	}
	// One hub tab reused plus two new tabs.
	if tabs.opened != 2 {
		t.Fatalf("opened %d new tabs, want 2", tabs.opened)
	}
}

func TestOpenBatchFallsBackWhenChartListMissing(t *testing.T) {
	tabs := newFakeTabs([]string{"Other"}, "chartlist-toggle", "chart-toggle", "entry-text")
	o := testSetup(t)

	summary, err := o.OpenBatch(context.Background(), tabs, []chartconfig.ChartRequest{
		{ChartList: "A", ChartName: "TSLA", TabOrder: 1},
	})
	if err != nil {
		t.Fatalf("OpenBatch() error = %v", err)
	}
	result := summary.Results[1]
	if !result.FellBack || !result.Success {
		t.Fatalf("result = %+v, want successful fallback", result)
	}

	var sawDirect bool
	for _, url := range tabs.counters.navigated {
		if url == "https://stockcharts.com/h-sc/ui?s=TSLA" {
			sawDirect = true
		}
	}
	if !sawDirect {
		t.Fatalf("navigated = %v, want direct TSLA URL", tabs.counters.navigated)
	}
}

func TestOpenBatchTabFailureCarriesNoCacheVerdict(t *testing.T) {
	tabs := newFakeTabs([]string{"A"}, "chartlist-toggle", "chart-toggle", "entry-text")
	tabs.newTabErr = errors.New("browser gone")
	o := testSetup(t)

	summary, err := o.OpenBatch(context.Background(), tabs, []chartconfig.ChartRequest{
		{ChartList: "A", ChartName: "X", TabOrder: 1},
		{ChartList: "A", ChartName: "Y", TabOrder: 2},
	})
	if err != nil {
		t.Fatalf("OpenBatch() error = %v", err)
	}
	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("succeeded/failed = %d/%d, want 1/1", summary.Succeeded, summary.Failed)
	}
	// The second request never reached a ChartList lookup, so the tally only
	// reflects the first one.
	if summary.CacheHits != 0 || summary.CacheMisses != 1 {
		t.Fatalf("cache hits/misses = %d/%d, want 0/1", summary.CacheHits, summary.CacheMisses)
	}
}

func TestOpenBatchRejectsEmpty(t *testing.T) {
	tabs := newFakeTabs(nil)
	o := testSetup(t)

	_, err := o.OpenBatch(context.Background(), tabs, nil)
	var coded *navigator.CodedError
	if !errors.As(err, &coded) || coded.Code != navigator.CodeValidation {
		t.Fatalf("OpenBatch() error = %v, want %s", err, navigator.CodeValidation)
	}
}

func TestOpenBatchScreenshotsFailedRequests(t *testing.T) {
	// No dropdown machinery at all: chartlist toggle never resolves, and the
	// element-not-found fallback takes the direct URL path, so the request
	// still succeeds degraded and still gets captured.
	tabs := newFakeTabs(nil)
	o := testSetup(t)

	summary, err := o.OpenBatch(context.Background(), tabs, []chartconfig.ChartRequest{
		{ChartList: "A", ChartName: "X", TabOrder: 1},
	})
	if err != nil {
		t.Fatalf("OpenBatch() error = %v", err)
	}
	result := summary.Results[1]
	if result.CaptureID == "" {
		t.Fatalf("result = %+v, want screenshot captured regardless of outcome", result)
	}
	if !result.FellBack {
		t.Fatalf("result = %+v, want fallback on missing dropdown", result)
	}
}

func TestOpenMultiTimeframeDefaultsBoxes(t *testing.T) {
	tabs := newFakeTabs(nil, "style-boxes-nth")
	o := testSetup(t)

	captures, err := o.OpenMultiTimeframe(context.Background(), tabs, "AAPL", nil)
	if err != nil {
		t.Fatalf("OpenMultiTimeframe() error = %v", err)
	}
	if len(captures) != len(DefaultTimeframeBoxes) {
		t.Fatalf("captures = %d, want %d", len(captures), len(DefaultTimeframeBoxes))
	}
	for i, c := range captures {
		if c.Box != DefaultTimeframeBoxes[i] || !c.Success || c.CaptureID == "" {
			t.Fatalf("capture[%d] = %+v", i, c)
		}
	}
	// Hub tab plus one tab per remaining box.
	if tabs.opened != len(DefaultTimeframeBoxes)-1 {
		t.Fatalf("opened %d tabs, want %d", tabs.opened, len(DefaultTimeframeBoxes)-1)
	}
}

func TestOpenMultiTimeframeValidatesBoxes(t *testing.T) {
	tabs := newFakeTabs(nil)
	o := testSetup(t)

	_, err := o.OpenMultiTimeframe(context.Background(), tabs, "AAPL", []int{1, 13})
	var coded *navigator.CodedError
	if !errors.As(err, &coded) || coded.Code != navigator.CodeValidation {
		t.Fatalf("OpenMultiTimeframe() error = %v, want %s", err, navigator.CodeValidation)
	}
}
