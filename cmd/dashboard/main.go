package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/splax/cubedash/internal/cube"
	"github.com/splax/cubedash/internal/dashboard"
	httpx "github.com/splax/cubedash/internal/http"
	"github.com/splax/cubedash/internal/metric"
	"github.com/splax/cubedash/internal/server"
	"github.com/splax/cubedash/pkg/config"
	"github.com/splax/cubedash/pkg/logger"
)

func main() {
	cfg := config.LoadDashboardConfig()
	log := logger.New("dashboard", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if strings.TrimSpace(cfg.CubeConnectionString) == "" {
		log.Error("CUBE_CONNECTION_STRING must be configured")
		os.Exit(1)
	}
	cubeClient, err := cube.Open(ctx, cube.Options{
		ConnString:     cfg.CubeConnectionString,
		SimpleProtocol: cfg.CubeSimpleProtocol,
		MaxOpenConns:   cfg.CubeMaxOpenConns,
	})
	if err != nil {
		log.Error("failed to connect to cube", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cubeClient.Close(); err != nil {
			log.Warn("closing cube connection failed", "error", err)
		}
	}()

	svc := dashboard.New(metric.Default(), cubeClient, log)
	page, err := server.New(svc, log)
	if err != nil {
		log.Error("failed to build dashboard page", "error", err)
		os.Exit(1)
	}

	budget := httpx.NewMemoryBudget(cfg.QueryBudget, cfg.QueryBudgetWindow)
	if addr := strings.TrimSpace(cfg.BudgetRedisAddr); addr != "" {
		shared, err := httpx.NewRedisBudget(addr, cfg.BudgetRedisPass, cfg.BudgetRedisDB, cfg.QueryBudget, cfg.QueryBudgetWindow, log)
		if err != nil {
			log.Warn("shared query budget unavailable, metering per process", "error", err)
		} else {
			budget = shared
		}
	}

	router := httpx.NewRouter(httpx.Options{
		Logger:     log,
		Service:    svc,
		Page:       page,
		Budget:     budget,
		CubeHealth: cubeClient.Ping,
	})
	defer func() {
		if err := router.Close(); err != nil {
			log.Warn("closing query budget failed", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("dashboard server starting", "addr", cfg.Addr, "env", cfg.Environment, "query_budget", cfg.QueryBudget, "budget_window", cfg.QueryBudgetWindow)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("dashboard server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
