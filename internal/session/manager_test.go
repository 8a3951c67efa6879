package session

import (
	"context"
	"sync"
	"testing"

	"github.com/dgnsrekt/sc_agent/internal/browser"
	"github.com/dgnsrekt/sc_agent/internal/chartconfig"
	"github.com/dgnsrekt/sc_agent/internal/config"
)

func testManager() *Manager {
	cfg := &config.Config{
		CDPAddress:    "127.0.0.1",
		CDPPort:       9222,
		SessionDir:    "browser_sessions",
		ScreenshotDir: "screenshots",
	}
	return NewManager(cfg, nil, nil)
}

func TestCreateSessionIdempotent(t *testing.T) {
	m := testManager()
	first := m.CreateSession("main", &browser.Rect{Width: 960, Height: 1080})
	second := m.CreateSession("main", nil)

	if first != second {
		t.Fatal("CreateSession() with same id returned a different session")
	}
	if got := m.List(); len(got) != 1 || got[0] != "main" {
		t.Fatalf("List() = %v, want [main]", got)
	}
	// Position from the original registration survives.
	if second.Position == nil || second.Position.Width != 960 {
		t.Fatalf("Position = %+v, want original placement kept", second.Position)
	}
}

func TestListPreservesCreationOrder(t *testing.T) {
	m := testManager()
	for _, id := range []string{"c", "a", "b"} {
		m.CreateSession(id, nil)
	}
	got := m.List()
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
}

func TestAllocPortIncrements(t *testing.T) {
	m := testManager()
	if p := m.allocPort(); p != 9222 {
		t.Fatalf("first port = %d, want 9222", p)
	}
	if p := m.allocPort(); p != 9223 {
		t.Fatalf("second port = %d, want 9223", p)
	}
}

func markInitialized(s *Session) {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
}

func TestInitializeSessionAlreadyInitializedIsNoOp(t *testing.T) {
	m := testManager()
	s := m.CreateSession("main", nil)
	markInitialized(s)

	if err := m.InitializeSession(context.Background(), "main", true); err != nil {
		t.Fatalf("InitializeSession() error = %v", err)
	}
	if s.launcher != nil {
		t.Fatal("repeat initialization launched a browser")
	}
}

func TestInitializeSessionConcurrentCallsLaunchNothingTwice(t *testing.T) {
	m := testManager()
	s := m.CreateSession("main", nil)
	markInitialized(s)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.InitializeSession(context.Background(), "main", true); err != nil {
				t.Errorf("InitializeSession() error = %v", err)
			}
			if !s.Initialized() {
				t.Error("Initialized() = false after init returned")
			}
		}()
	}
	wg.Wait()

	if s.launcher != nil {
		t.Fatal("initialization guard let a second launch through")
	}
}

func TestCloseSessionRemovesFromList(t *testing.T) {
	m := testManager()
	m.CreateSession("a", nil)
	m.CreateSession("b", nil)
	m.CloseSession("a")

	if _, ok := m.Get("a"); ok {
		t.Fatal("Get() found closed session")
	}
	if got := m.List(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("List() = %v, want [b]", got)
	}
	// Closing an unknown id is a no-op.
	m.CloseSession("missing")
}

func TestRunParallelTasksReportsPerSessionOutcomes(t *testing.T) {
	m := testManager()
	m.CreateSession("known", nil) // registered but never initialized

	results := m.RunParallelTasks(context.Background(), []Task{
		{SessionID: "missing", Type: TaskMultiTimeframe, Ticker: "AAPL"},
		{SessionID: "known", Type: TaskMultiTimeframe, Ticker: "AAPL"},
	})

	if len(results) != 2 {
		t.Fatalf("results = %v, want outcomes keyed by session id", results)
	}
	if results["missing"].Success || results["missing"].Error != "session not found" {
		t.Fatalf("missing outcome = %+v", results["missing"])
	}
	if results["known"].Success || results["known"].Error != "session not initialized" {
		t.Fatalf("known outcome = %+v", results["known"])
	}
}

func TestViewerRequestsCollapsePerChartList(t *testing.T) {
	requests := []chartconfig.ChartRequest{
		{ChartList: "A", ChartName: "X", TabOrder: 1},
		{ChartList: "A", ChartName: "Y", TabOrder: 2},
		{ChartList: "B", ChartName: "Z", TabOrder: 3},
	}
	got := ViewerRequests(requests)
	if len(got) != 2 {
		t.Fatalf("ViewerRequests() = %d entries, want one per chartlist", len(got))
	}
	if got[0].ChartList != "A" || got[0].ChartName != "X" || got[0].TabOrder != 1 {
		t.Fatalf("got[0] = %+v", got[0])
	}
	if got[1].ChartList != "B" || got[1].TabOrder != 2 {
		t.Fatalf("got[1] = %+v", got[1])
	}
}
