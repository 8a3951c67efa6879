package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dgnsrekt/sc_agent/internal/analyzer"
	"github.com/dgnsrekt/sc_agent/internal/authstore"
	"github.com/dgnsrekt/sc_agent/internal/browser"
	"github.com/dgnsrekt/sc_agent/internal/chartconfig"
	"github.com/dgnsrekt/sc_agent/internal/config"
	"github.com/dgnsrekt/sc_agent/internal/notify"
	"github.com/dgnsrekt/sc_agent/internal/session"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	mode := flag.String("mode", "batch", "Run mode: batch, viewer, analysis, parallel, template, diagnose")
	configPath := flag.String("config", "chart_config.xlsx", "Chart batch spreadsheet (batch/viewer modes)")
	parallelPath := flag.String("parallel-config", "parallel_config.yaml", "Parallel session YAML (parallel mode)")
	ticker := flag.String("ticker", "", "Ticker symbol (analysis mode)")
	boxesFlag := flag.String("boxes", "", "Comma-separated timeframe boxes 1-12, empty for defaults (analysis mode)")
	templateOut := flag.String("out", "chart_config.xlsx", "Template output path (template mode)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, "logger setup failed:", err)
		os.Exit(1)
	}

	slog.Info("sc_agent starting",
		"mode", *mode,
		"base_url", cfg.BaseURL,
		"hub_ticker", cfg.HubTicker,
		"headless", cfg.Headless,
		"kiosk", cfg.Kiosk,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "template":
		err = runTemplate(*templateOut)
	case "batch":
		err = runBatch(ctx, cfg, *configPath, false)
	case "viewer":
		err = runBatch(ctx, cfg, *configPath, true)
	case "analysis":
		err = runAnalysis(ctx, cfg, *ticker, *boxesFlag)
	case "parallel":
		err = runParallel(ctx, cfg, *parallelPath)
	case "diagnose":
		err = runDiagnose(ctx, cfg)
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}
	if err != nil {
		slog.Error("run failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
}

func runTemplate(path string) error {
	if err := chartconfig.WriteTemplate(path); err != nil {
		return err
	}
	slog.Info("template written", "path", path)
	return nil
}

// startSession brings up one logged-in browser session through the manager.
// The caller must CloseAllSessions when done.
func startSession(ctx context.Context, cfg *config.Config, id string) (*session.Manager, *session.Session, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, nil, err
	}
	auth := authstore.New(filepath.Join(cfg.SessionDir, "auth"))
	mgr := session.NewManager(cfg, auth, nil)
	mgr.CreateSession(id, nil)
	if err := mgr.InitializeSession(ctx, id, true); err != nil {
		mgr.CloseAllSessions()
		return nil, nil, err
	}
	s, _ := mgr.Get(id)
	return mgr, s, nil
}

func runBatch(ctx context.Context, cfg *config.Config, configPath string, viewer bool) error {
	requests, err := chartconfig.Load(configPath)
	if err != nil {
		return err
	}

	mgr, s, err := startSession(ctx, cfg, "main")
	if err != nil {
		return err
	}
	defer mgr.CloseAllSessions()

	if viewer {
		requests = session.ViewerRequests(requests)
	}

	summary, err := s.Orch.OpenBatch(ctx, s.Tabs(), requests)
	if err != nil {
		return err
	}

	if err := notify.SendBatchSummary(ctx, nil, cfg.NotifyEndpoint, summary); err != nil {
		slog.Warn("batch notification failed", "error", err)
	}
	if summary.Succeeded == 0 {
		return fmt.Errorf("batch finished with no successful tabs (%d failed)", summary.Failed)
	}

	slog.Info("leaving browser open for review, press Ctrl+C to exit")
	<-ctx.Done()
	return nil
}

func runAnalysis(ctx context.Context, cfg *config.Config, ticker, boxesFlag string) error {
	if ticker == "" {
		return fmt.Errorf("analysis mode requires -ticker")
	}
	if err := cfg.RequireAnalysisKey(); err != nil {
		return err
	}
	boxes, err := parseBoxes(boxesFlag)
	if err != nil {
		return err
	}

	mgr, s, err := startSession(ctx, cfg, "main")
	if err != nil {
		return err
	}
	defer mgr.CloseAllSessions()

	captures, err := s.Orch.OpenMultiTimeframe(ctx, s.Tabs(), ticker, boxes)
	if err != nil {
		return err
	}

	screenshots := make(map[string]string, len(captures))
	for _, c := range captures {
		if c.Success && c.Screenshot != "" {
			screenshots[analyzer.TimeframeName(c.Box)] = c.Screenshot
		}
	}
	if len(screenshots) == 0 {
		return fmt.Errorf("no timeframe screenshots captured for %s", ticker)
	}

	client := analyzer.NewClient(cfg)
	analysis, err := client.AnalyzeMultiTimeframe(ctx, ticker, screenshots)
	if err != nil {
		return err
	}

	jsonPath, txtPath, err := analyzer.SaveResults(cfg.ResultDir, analysis)
	if err != nil {
		return err
	}
	slog.Info("analysis saved", "json", jsonPath, "txt", txtPath)
	fmt.Println(analyzer.RenderReport(analysis))
	return nil
}

func runParallel(ctx context.Context, cfg *config.Config, path string) error {
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}
	pcfg, err := config.LoadParallel(path)
	if err != nil {
		return err
	}

	monitor := session.Monitor{
		X:      pcfg.MonitorX,
		Y:      pcfg.MonitorY,
		Width:  pcfg.MonitorWidth,
		Height: pcfg.MonitorHeight,
	}
	positions := session.SplitScreenPositions(len(pcfg.Sessions), monitor)

	auth := authstore.New(filepath.Join(cfg.SessionDir, "auth"))
	mgr := session.NewManager(cfg, auth, nil)
	defer mgr.CloseAllSessions()

	tasks := make([]session.Task, 0, len(pcfg.Sessions))
	for i, entry := range pcfg.Sessions {
		pos := positions[i]
		mgr.CreateSession(entry.ID, &browser.Rect{X: pos.X, Y: pos.Y, Width: pos.Width, Height: pos.Height})
		if err := mgr.InitializeSession(ctx, entry.ID, true); err != nil {
			return err
		}
		tasks = append(tasks, session.Task{
			SessionID:  entry.ID,
			Type:       entry.TaskType,
			ConfigPath: entry.ConfigPath,
			Ticker:     entry.Ticker,
		})
	}

	outcomes := mgr.RunParallelTasks(ctx, tasks)
	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Success {
			failed++
		}
	}
	if failed == len(outcomes) {
		return fmt.Errorf("all %d parallel tasks failed", failed)
	}

	slog.Info("parallel tasks finished, press Ctrl+C to close sessions", "failed", failed)
	<-ctx.Done()
	return nil
}

func runDiagnose(ctx context.Context, cfg *config.Config) error {
	mgr, s, err := startSession(ctx, cfg, "main")
	if err != nil {
		return err
	}
	defer mgr.CloseAllSessions()

	if err := s.Nav.SearchTicker(ctx, s.Tabs().FirstTab(), cfg.HubTicker); err != nil {
		return err
	}
	lists, err := s.Nav.ListChartLists(ctx, s.Tabs().FirstTab())
	if err != nil {
		return err
	}

	fmt.Printf("Found %d ChartLists:\n", len(lists))
	for i, name := range lists {
		fmt.Printf("  %2d. %s\n", i+1, name)
	}
	return nil
}

func parseBoxes(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	var boxes []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		box, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid box %q: %w", part, err)
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
