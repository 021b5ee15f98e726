package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/freqdash/freqdash/internal/apiclient"
	"github.com/freqdash/freqdash/internal/dashboard"
	"github.com/freqdash/freqdash/internal/dashboard/tui"
	"github.com/freqdash/freqdash/internal/metrics"
	"github.com/freqdash/freqdash/pkg/config"
	"github.com/freqdash/freqdash/pkg/logger"
	"github.com/freqdash/freqdash/pkg/shutdown"
	"github.com/freqdash/freqdash/pkg/snapshotstore"
)

const gracefulShutdownPeriod = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "freqdash:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "config file (.yaml, .yml or .json)")
	apiURL := flag.String("api", "", "backend base URL (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *apiURL != "" {
		cfg.Dashboard.APIBaseURL = *apiURL
	}
	if err := cfg.Dashboard.Validate(); err != nil {
		return fmt.Errorf("invalid dashboard config: %w", err)
	}

	// the TUI owns the terminal, so logs only go to a file
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join("logs", "dashboard.log")
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: logFile,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		Quiet:      true,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdowns := shutdown.NewManager()

	var (
		opts  []dashboard.Option
		store *snapshotstore.Store
	)
	if cfg.Dashboard.SnapshotDir != "" {
		store, err = snapshotstore.Open(snapshotstore.OpenOptions{Path: cfg.Dashboard.SnapshotDir})
		if err != nil {
			// warm start is optional
			logger.Warnf("snapshot store disabled: %v", err)
			store = nil
		} else {
			opts = append(opts, dashboard.WithSnapshotStore(store))
		}
	}

	if cfg.Dashboard.MetricsListen != "" {
		if _, err := metrics.StartAsync(ctx, cfg.Dashboard.MetricsListen); err != nil {
			logger.Warnf("metrics server disabled: %v", err)
		}
	}

	client := apiclient.New(cfg.Dashboard.APIBaseURL, cfg.Dashboard.RequestTimeout)
	dash := dashboard.New(client, opts...)
	if dash.Warm() {
		logger.Debugf("showing saved snapshot from %s until the first refresh", cfg.Dashboard.SnapshotDir)
	}

	poller := dashboard.NewPoller(dash, cfg.Dashboard.RefreshInterval)
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		_ = poller.Run(ctx)
	}()
	// the store closes only after the last refresh has persisted
	shutdowns.OnShutdown("poller", func(sctx context.Context) error {
		cancel()
		select {
		case <-pollDone:
		case <-sctx.Done():
			return sctx.Err()
		}
		return store.Close()
	})

	logger.WithFields(logrus.Fields{
		"api":      client.BaseURL(),
		"interval": poller.Interval().String(),
	}).Info("dashboard starting")

	theme := tui.DefaultTheme()
	board := tui.NewBoard(ctx, dash, poller.Kick, theme)
	shell := tui.NewShell("Freqtrade Dashboard", board, tui.WithTheme(theme), tui.WithOnQuit(cancel))

	_, runErr := tea.NewProgram(shell, tea.WithAltScreen(), tea.WithContext(ctx)).Run()

	sctx, scancel := context.WithTimeout(context.Background(), gracefulShutdownPeriod)
	defer scancel()
	shutdowns.Shutdown(sctx)

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
