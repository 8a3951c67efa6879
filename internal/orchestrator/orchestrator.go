// Package orchestrator turns an ordered list of chart requests into browser
// work: one tab per request, the first tab reused as the hub, each request
// fed sequentially through the navigator with results collected per tab.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgnsrekt/sc_agent/internal/chartconfig"
	"github.com/dgnsrekt/sc_agent/internal/config"
	"github.com/dgnsrekt/sc_agent/internal/navigator"
	"github.com/dgnsrekt/sc_agent/internal/relay"
	"github.com/dgnsrekt/sc_agent/internal/snapshot"
)

// TabSource hands out browser tabs. Satisfied by *navigator.Browser.
type TabSource interface {
	FirstTab() navigator.Tab
	NewTab(ctx context.Context) (navigator.Tab, error)
}

// TabResult records the outcome of one chart request.
type TabResult struct {
	TabOrder     int           `json:"tab_order"`
	ChartList    string        `json:"chartlist"`
	ChartName    string        `json:"chart_name"`
	TimeframeBox int           `json:"timeframe_box,omitempty"`
	Success      bool          `json:"success"`
	CacheHit     bool          `json:"cache_hit"`
	FellBack     bool          `json:"fell_back"`
	Error        string        `json:"error,omitempty"`
	CaptureID    string        `json:"capture_id,omitempty"`
	Screenshot   string        `json:"screenshot,omitempty"`
	Elapsed      time.Duration `json:"elapsed_ns"`

	// reachedLookup marks that the request got as far as ChartList
	// selection; requests that die earlier carry no cache verdict.
	reachedLookup bool
}

// Summary aggregates a whole batch for the operator.
type Summary struct {
	SessionID   string            `json:"session_id"`
	Total       int               `json:"total"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	CacheHits   int               `json:"cache_hits"`
	CacheMisses int               `json:"cache_misses"`
	Elapsed     time.Duration     `json:"elapsed_ns"`
	Results     map[int]TabResult `json:"results"`
}

// Orchestrator runs batches against one navigator. Batches are strictly
// sequential: all requests share the navigator's ChartList cache, so
// concurrent tab work would invalidate each other's assumptions.
type Orchestrator struct {
	cfg       *config.Config
	nav       *navigator.Navigator
	store     *snapshot.Store
	broker    *relay.Broker
	sessionID string
	log       *slog.Logger
}

// New creates an orchestrator. broker may be nil to disable progress events.
func New(cfg *config.Config, nav *navigator.Navigator, store *snapshot.Store, broker *relay.Broker, sessionID string) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		nav:       nav,
		store:     store,
		broker:    broker,
		sessionID: sessionID,
		log:       slog.With("session_id", sessionID),
	}
}

// OpenBatch processes requests in order. Request #1 reuses the hub tab;
// every later request gets a fresh tab navigated to the hub chart first.
// Individual request failures are isolated: they are recorded and the batch
// moves on. Only setup failures (no requests, hub unreachable) abort.
func (o *Orchestrator) OpenBatch(ctx context.Context, tabs TabSource, requests []chartconfig.ChartRequest) (*Summary, error) {
	if len(requests) == 0 {
		return nil, &navigator.CodedError{Code: navigator.CodeValidation, Message: "batch has no requests"}
	}

	start := time.Now()
	summary := &Summary{
		SessionID: o.sessionID,
		Total:     len(requests),
		Results:   make(map[int]TabResult, len(requests)),
	}

	// Prior dropdown state is not trusted across batches.
	o.nav.ResetBatch()

	hub := tabs.FirstTab()
	if err := o.nav.SearchTicker(ctx, hub, o.cfg.HubTicker); err != nil {
		return nil, fmt.Errorf("open hub ticker %s: %w", o.cfg.HubTicker, err)
	}

	for i, req := range requests {
		tab := hub
		if i > 0 {
			newTab, err := tabs.NewTab(ctx)
			if err != nil {
				o.record(summary, TabResult{
					TabOrder:  req.TabOrder,
					ChartList: req.ChartList,
					ChartName: req.ChartName,
					Error:     fmt.Sprintf("open tab: %v", err),
				})
				continue
			}
			tab = newTab
			if err := o.nav.SearchTicker(ctx, tab, o.cfg.HubTicker); err != nil {
				o.record(summary, TabResult{
					TabOrder:  req.TabOrder,
					ChartList: req.ChartList,
					ChartName: req.ChartName,
					Error:     fmt.Sprintf("prepare tab: %v", err),
				})
				continue
			}
		}

		result := o.processRequest(ctx, tab, req)
		o.record(summary, result)
	}

	summary.Elapsed = time.Since(start)
	o.log.Info("batch complete",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"cache_hits", summary.CacheHits,
		"cache_misses", summary.CacheMisses,
		"elapsed", summary.Elapsed.Round(time.Millisecond))
	if o.broker != nil {
		o.broker.PublishJSON(relay.FeedBatch, summary)
	}
	return summary, nil
}

func (o *Orchestrator) record(summary *Summary, result TabResult) {
	if _, dup := summary.Results[result.TabOrder]; dup {
		o.log.Warn("duplicate tab order in batch, keeping first result", "tab_order", result.TabOrder)
	} else {
		summary.Results[result.TabOrder] = result
	}
	if result.Success {
		summary.Succeeded++
	} else {
		summary.Failed++
	}
	if result.CacheHit {
		summary.CacheHits++
	} else if result.reachedLookup {
		summary.CacheMisses++
	}
	if o.broker != nil {
		o.broker.PublishJSON(relay.FeedBatch, result)
	}
}

// processRequest drives one request through chartlist, chart and timeframe
// selection, falling back to direct ticker navigation when dropdown entries
// are missing, and always finishing with a screenshot.
func (o *Orchestrator) processRequest(ctx context.Context, tab navigator.Tab, req chartconfig.ChartRequest) TabResult {
	reqStart := time.Now()
	result := TabResult{
		TabOrder:     req.TabOrder,
		ChartList:    req.ChartList,
		ChartName:    req.ChartName,
		TimeframeBox: req.TimeframeBox,
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.NavTimeoutMS)*time.Millisecond)
	defer cancel()

	err := o.navigate(reqCtx, tab, req, &result)
	if err != nil {
		result.Error = err.Error()
		o.log.Error("request failed", "tab_order", req.TabOrder, "chart", req.ChartName, "error", err)
	} else {
		result.Success = true
	}

	o.capture(reqCtx, tab, req, &result)
	result.Elapsed = time.Since(reqStart)
	return result
}

func (o *Orchestrator) navigate(ctx context.Context, tab navigator.Tab, req chartconfig.ChartRequest, result *TabResult) error {
	result.reachedLookup = true
	cacheHit, err := o.nav.SelectChartList(ctx, tab, req.ChartList)
	result.CacheHit = cacheHit
	if err != nil {
		if isFallbackCode(err) {
			result.FellBack = true
			return o.nav.FallbackToTicker(ctx, tab, req.ChartName)
		}
		return err
	}

	if err := o.nav.SelectChart(ctx, tab, req.ChartName); err != nil {
		if isFallbackCode(err) {
			result.FellBack = true
			return o.nav.FallbackToTicker(ctx, tab, req.ChartName)
		}
		return err
	}

	if req.TimeframeBox != 0 {
		if err := o.nav.SelectTimeframeBox(ctx, tab, req.TimeframeBox); err != nil {
			return err
		}
	}

	if o.cfg.Kiosk {
		o.nav.ApplyKioskView(ctx, tab)
	}
	return nil
}

// capture screenshots the tab regardless of navigation outcome; failed
// requests still leave visual evidence of what the page looked like.
func (o *Orchestrator) capture(ctx context.Context, tab navigator.Tab, req chartconfig.ChartRequest, result *TabResult) {
	if o.store == nil {
		return
	}
	img, err := tab.Screenshot(ctx)
	if err != nil {
		o.log.Warn("screenshot failed", "tab_order", req.TabOrder, "error", err)
		return
	}
	phase := "batch"
	if !result.Success {
		phase = "batch-error"
	}
	meta, err := o.store.Save(snapshot.CaptureMeta{
		SessionID:    o.sessionID,
		Ticker:       req.ChartName,
		ChartList:    req.ChartList,
		Chart:        req.ChartName,
		TimeframeBox: req.TimeframeBox,
		Phase:        phase,
		Notes:        req.Notes,
	}, img)
	if err != nil {
		o.log.Warn("screenshot store failed", "tab_order", req.TabOrder, "error", err)
		return
	}
	result.CaptureID = meta.ID
	result.Screenshot = o.store.ImagePath(meta)
}

// isFallbackCode reports whether the error is a missing dropdown element,
// the class of failure the direct-URL degraded path exists for.
func isFallbackCode(err error) bool {
	var coded *navigator.CodedError
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code {
	case navigator.CodeChartListNotFound, navigator.CodeChartNotFound, navigator.CodeElementNotFound:
		return true
	}
	return false
}
