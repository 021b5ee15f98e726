package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/freqdash/freqdash/internal/controlplane/server"
	"github.com/freqdash/freqdash/pkg/config"
	"github.com/freqdash/freqdash/pkg/logger"
	"github.com/freqdash/freqdash/pkg/shutdown"
)

const gracefulShutdownPeriod = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "config file (.yaml, .yml or .json)")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	flag.Parse()

	if err := logger.InitDefault(); err != nil {
		logrus.Fatalf("init logger: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if err := cfg.Server.Validate(); err != nil {
		logrus.Fatalf("invalid server config: %v", err)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		logrus.Fatalf("init logger: %v", err)
	}
	defer logger.Close()

	srv, err := server.New(server.Config{
		FreqtradeBin:   cfg.Server.FreqtradeBin,
		StrategiesDir:  cfg.Server.StrategiesDir,
		TradesExport:   cfg.Server.TradesExport,
		BaseConfig:     cfg.Server.BaseConfig,
		StopArgs:       cfg.Server.StopArgs,
		DBPath:         cfg.Server.DBPath,
		DataDir:        cfg.Server.DataDir,
		LogsDir:        cfg.Server.LogsDir,
		CORSOrigin:     cfg.Server.CORSOrigin,
		StatusCacheTTL: cfg.Server.StatusCacheTTL,
		StopTimeout:    cfg.Server.StopTimeout,
		CommandRate:    cfg.Server.CommandRate,
		CommandBurst:   cfg.Server.CommandBurst,
	})
	if err != nil {
		logrus.Fatalf("init server: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdowns := shutdown.NewManager()
	shutdowns.OnShutdown("http", httpSrv.Shutdown)
	shutdowns.OnShutdown("store", func(context.Context) error { return srv.Close() })

	go func() {
		logger.Infof("api listening on %s", cfg.Server.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server error: %v", err)
			os.Exit(1)
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownPeriod)
	defer cancel()
	if failed := shutdowns.Shutdown(ctx); failed > 0 {
		logger.Warnf("%d component(s) failed to stop cleanly", failed)
	}
	logger.Info("server stopped")
}
