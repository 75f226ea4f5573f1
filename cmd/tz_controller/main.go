package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/api"
	"github.com/dgnsrekt/tz_agent/internal/browser"
	"github.com/dgnsrekt/tz_agent/internal/cdp"
	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
	"github.com/dgnsrekt/tz_agent/internal/config"
	"github.com/dgnsrekt/tz_agent/internal/controller"
	"github.com/dgnsrekt/tz_agent/internal/netutil"
	"github.com/dgnsrekt/tz_agent/internal/notify"
	"github.com/dgnsrekt/tz_agent/internal/relay"
	"github.com/dgnsrekt/tz_agent/internal/snapshot"
	"github.com/dgnsrekt/tz_agent/internal/storage"
	"github.com/dgnsrekt/tz_agent/internal/tradezero"
	"gopkg.in/natefinch/lumberjack.v2"
)

type driver interface {
	controller.Browser
	Connect(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.LoadController()
	if err != nil {
		slog.Error("failed to load controller config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("tz_controller config loaded",
		"bind_addr", cfg.BindAddr,
		"page_url_filter", cfg.PageURLFilter,
		"driver", cfg.Driver,
		"eval_timeout", cfg.EvalTimeout,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
		"snapshot_dir", cfg.SnapshotDir,
		"snapshot_max_count", cfg.SnapshotMaxCount,
		"journal_dir", cfg.JournalDir,
		"launch_browser", cfg.LaunchBrowser,
		"ntfy", cfg.NtfyURL != "",
	)

	var launcher *browser.Launcher
	if cfg.LaunchBrowser {
		launcher = browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.HomeURL,
			ProfileDir: cfg.BrowserProfileDir,
			Headless:   cfg.BrowserHeadless,
		})
		if err := launcher.Launch(context.Background()); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	var page driver
	switch cfg.Driver {
	case config.DriverChromedp:
		page = cdp.NewPage(cfg.ControllerCDPURL(), cfg.PageURLFilter, cfg.EvalTimeout)
	default:
		page = cdpcontrol.NewClient(cfg.ControllerCDPURL(), cfg.PageURLFilter, cfg.EvalTimeout)
	}
	if err := page.Connect(context.Background()); err != nil {
		slog.Error("failed to connect CDP controller", "cdp_url", cfg.ControllerCDPURL(), "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := page.Close(); err != nil {
			slog.Debug("CDP driver close failed", "error", err)
		}
	}()

	hide := cfg.HideAttributes
	if cfg.HideAll() {
		hide = tradezero.AccountAttributes()
	}
	tz := tradezero.New(page, tradezero.Options{
		UserName:       cfg.UserName,
		Password:       cfg.Password,
		HideAttributes: hide,
		HomeURL:        cfg.HomeURL,
		Loader: tradezero.LoaderConfig{
			MaxAttempts:  cfg.LoaderMaxAttempts,
			PollInterval: cfg.LoaderPollInterval,
			SettleDelay:  cfg.LoaderSettleDelay,
		},
	})

	snapStore, err := snapshot.NewStore(cfg.SnapshotDir, cfg.SnapshotMaxCount)
	if err != nil {
		slog.Error("failed to create snapshot store", "dir", cfg.SnapshotDir, "error", err)
		os.Exit(1)
	}
	journals := storage.NewRegistry(cfg.JournalDir, 256, cfg.JournalMaxSizeMB)
	defer func() {
		if err := journals.Close(); err != nil {
			slog.Warn("journal close failed", "error", err)
		}
	}()

	broker := relay.NewBroker()
	notifier := notify.New(&http.Client{Timeout: 10 * time.Second}, cfg.NtfyURL)
	svc := controller.NewService(page, tz, snapStore, journals, notifier, broker)

	loginCtx, cancelLogin := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := startSession(loginCtx, svc); err != nil {
		cancelLogin()
		slog.Error("tradezero login failed", "error", err)
		os.Exit(1)
	}
	seedWatchlist(loginCtx, svc, cfg.WatchlistPath)
	cancelLogin()

	poller := relay.NewPoller(svc, broker, journals.Journal(storage.StreamNotifications), cfg.RelayPollInterval)
	poller.Start(context.Background())
	defer poller.Stop()

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}
	addr := ln.Addr().String()
	srv := &http.Server{Handler: api.NewServer(svc, broker)}

	go func() {
		slog.Info("tz_controller listening", "addr", addr, "docs", "http://"+addr+"/docs")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("tz_controller server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("tz_controller shutdown failed", "error", err)
	}
}

// startSession logs in, or reuses the session when a persistent profile left
// the trading UI already open.
func startSession(ctx context.Context, svc *controller.Service) error {
	err := svc.Login(ctx)
	if !cdpcontrol.IsElementNotFound(err) {
		return err
	}
	slog.Info("login form not present, checking existing session")
	return svc.Conn(ctx)
}

// seedWatchlist adds the configured symbols. A missing file is not an error.
func seedWatchlist(ctx context.Context, svc *controller.Service, path string) {
	wl, err := config.LoadWatchlist(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no watchlist config", "path", path)
		return
	}
	if err != nil {
		slog.Warn("watchlist config ignored", "path", path, "error", err)
		return
	}
	if len(wl.Symbols) == 0 {
		return
	}
	tracked, err := svc.AddWatchlistSymbols(ctx, wl.Symbols)
	if err != nil {
		slog.Warn("watchlist seed incomplete", "tracked", tracked, "error", err)
		return
	}
	slog.Info("watchlist seeded", "symbols", tracked)
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
