package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/sc_agent/internal/api"
	"github.com/dgnsrekt/sc_agent/internal/authstore"
	"github.com/dgnsrekt/sc_agent/internal/config"
	"github.com/dgnsrekt/sc_agent/internal/netutil"
	"github.com/dgnsrekt/sc_agent/internal/relay"
	"github.com/dgnsrekt/sc_agent/internal/session"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	ctrlCfg, err := config.LoadController()
	if err != nil {
		slog.Error("failed to load controller config", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load agent config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(ctrlCfg.LogLevel, ctrlCfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("sc_controller config loaded",
		"bind_addr", ctrlCfg.BindAddr,
		"port_auto_fallback", ctrlCfg.PortAutoFallback,
		"port_candidates", ctrlCfg.PortCandidates,
		"log_level", ctrlCfg.LogLevel,
		"log_file", ctrlCfg.LogFile,
		"screenshot_dir", ctrlCfg.ScreenshotDir,
	)

	bindAddr, err := netutil.SelectBindAddr(ctrlCfg.BindAddr, ctrlCfg.PortCandidates, ctrlCfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", ctrlCfg.BindAddr, "error", err)
		os.Exit(1)
	}

	broker := relay.NewBroker()
	auth := authstore.New(filepath.Join(cfg.SessionDir, "auth"))
	mgr := session.NewManager(cfg, auth, broker)
	defer mgr.CloseAllSessions()

	svc := api.NewManagerService(mgr)
	h := api.NewServer(svc, broker)

	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("sc_controller listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("sc_controller server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("sc_controller shutdown failed", "error", err)
	}
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
