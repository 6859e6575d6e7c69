package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/news-comb/app/api"
	"github.com/lysyi3m/news-comb/app/catalog"
	"github.com/lysyi3m/news-comb/app/cfg"
	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/provider"
	"github.com/lysyi3m/news-comb/app/ranking"
	"github.com/lysyi3m/news-comb/app/serving"
	"github.com/lysyi3m/news-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if !appCfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Info("Starting News Comb server", "version", appCfg.Version)

	store, closeStore, err := openStore(appCfg)
	if err != nil {
		slog.Error("Failed to open interaction store", "store", appCfg.Store, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	registry := provider.DefaultRegistry()
	configCache := provider.NewConfigCache(appCfg.ProvidersDir, registry, appCfg.FetchTimeout)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load provider configurations", "dir", appCfg.ProvidersDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Provider configurations loaded", "count", configCache.GetConfigCount(), "enabled", len(configCache.GetEnabledConfigs()))

	// Per-provider deadlines come from the request context.
	httpClient := &http.Client{}
	prober := provider.NewImageProber(httpClient, appCfg.ImageProbeTimeout, appCfg.UserAgent)
	pipeline := provider.NewPipeline(configCache, registry, httpClient, prober, appCfg.UserAgent)

	articles := catalog.New(pipeline)
	ranker := ranking.NewRanker(articles, store)
	service := serving.NewService(articles, ranker, store, appCfg.MaxPageSize)

	scheduler := tasks.NewScheduler(articles, store, tasks.Options{
		RefreshInterval:    appCfg.RefreshInterval,
		WorkerCount:        appCfg.WorkerCount,
		RebuildPreferences: appCfg.RebuildPreferences,
	})
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(service, articles, configCache, store, scheduler, appCfg.DefaultPageSize)
	router := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "api_enabled", appCfg.APIAccessKey != "")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

func openStore(appCfg *cfg.Cfg) (database.InteractionStore, func(), error) {
	if appCfg.Store == "memory" {
		slog.Warn("Using in-memory interaction store, interactions are lost on restart")
		return database.NewMemoryStore(), func() {}, nil
	}

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	slog.Info("Database ready", "path", db.Path(), "schema_version", version, "dirty", dirty)

	return database.NewInteractionRepository(db), func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}, nil
}
