package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/sc_agent/internal/chartconfig"
)

// Task types accepted by RunParallelTasks.
const (
	TaskChartListBatch  = "chartlist-batch"
	TaskChartListViewer = "chartlist-viewer"
	TaskMultiTimeframe  = "multi-timeframe"
)

// Task assigns work to one session.
type Task struct {
	SessionID  string
	Type       string
	ConfigPath string // chartlist-batch / chartlist-viewer
	Ticker     string // multi-timeframe
	Boxes      []int  // multi-timeframe, empty means defaults
}

// TaskOutcome is an explicit per-task result; parallel failures never hide
// behind a shared error.
type TaskOutcome struct {
	SessionID  string `json:"session_id"`
	Type       string `json:"type"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	TabsOpened int    `json:"tabs_opened"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
}

// RunParallelTasks runs each task on its own session concurrently. Safe
// because sessions share nothing: separate browsers, navigators and caches.
// The result map is keyed by session id.
func (m *Manager) RunParallelTasks(ctx context.Context, tasks []Task) map[string]TaskOutcome {
	results := make(map[string]TaskOutcome, len(tasks))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			outcome := m.runTask(ctx, task)
			resultsMu.Lock()
			results[task.SessionID] = outcome
			resultsMu.Unlock()
		}(task)
	}
	wg.Wait()

	for id, outcome := range results {
		if outcome.Success {
			slog.Info("parallel task finished", "session_id", id, "type", outcome.Type, "tabs", outcome.TabsOpened)
		} else {
			slog.Error("parallel task failed", "session_id", id, "type", outcome.Type, "error", outcome.Error)
		}
	}
	return results
}

func (m *Manager) runTask(ctx context.Context, task Task) TaskOutcome {
	outcome := TaskOutcome{SessionID: task.SessionID, Type: task.Type}

	s, ok := m.Get(task.SessionID)
	if !ok {
		outcome.Error = "session not found"
		return outcome
	}
	if !s.Initialized() {
		outcome.Error = "session not initialized"
		return outcome
	}

	switch task.Type {
	case TaskChartListBatch:
		requests, err := chartconfig.Load(task.ConfigPath)
		if err != nil {
			outcome.Error = err.Error()
			return outcome
		}
		summary, err := s.Orch.OpenBatch(ctx, s.conn, requests)
		if err != nil {
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Success = true
		outcome.TabsOpened = summary.Total
		outcome.Succeeded = summary.Succeeded
		outcome.Failed = summary.Failed

	case TaskChartListViewer:
		requests, err := chartconfig.Load(task.ConfigPath)
		if err != nil {
			outcome.Error = err.Error()
			return outcome
		}
		summary, err := s.Orch.OpenBatch(ctx, s.conn, ViewerRequests(requests))
		if err != nil {
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Success = true
		outcome.TabsOpened = summary.Total
		outcome.Succeeded = summary.Succeeded
		outcome.Failed = summary.Failed

	case TaskMultiTimeframe:
		captures, err := s.Orch.OpenMultiTimeframe(ctx, s.conn, task.Ticker, task.Boxes)
		if err != nil {
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Success = true
		outcome.TabsOpened = len(captures)
		for _, c := range captures {
			if c.Success {
				outcome.Succeeded++
			} else {
				outcome.Failed++
			}
		}

	default:
		outcome.Error = fmt.Sprintf("unknown task type: %s", task.Type)
	}
	return outcome
}

// ViewerRequests collapses a batch config to one tab per distinct ChartList,
// keeping the first chart of each list as the landing chart.
func ViewerRequests(requests []chartconfig.ChartRequest) []chartconfig.ChartRequest {
	seen := make(map[string]bool)
	out := make([]chartconfig.ChartRequest, 0, len(requests))
	for _, r := range requests {
		if seen[r.ChartList] {
			continue
		}
		seen[r.ChartList] = true
		r.TabOrder = len(out) + 1
		out = append(out, r)
	}
	return out
}
