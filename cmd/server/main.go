package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobsboard-backend/internal/app"
	"jobsboard-backend/internal/config"
	"jobsboard-backend/internal/handlers"
	"jobsboard-backend/internal/router"
	"jobsboard-backend/internal/services"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	if err := config.LoadConfig(*configPath); err != nil {
		logrus.WithField("error", err.Error()).Fatal("Failed to load configuration")
	}
	cfg := config.AppConfig

	container, err := app.InitializeContainer()
	if err != nil {
		logrus.WithField("error", err.Error()).Fatal("Failed to initialize services")
	}
	defer container.Cleanup()

	var publisher services.EventPublisher
	if container.Publisher != nil {
		publisher = container.Publisher
	}

	h := &router.Handlers{
		Jobs: handlers.NewJobsHandler(
			container.JobStore,
			container.Reconciler,
			container.TokenStore,
			publisher,
			container.Writer.SenderAddress(),
		),
		Stats:     handlers.NewStatsHandler(container.JobStore, container.Resolver),
		Agents:    handlers.NewAgentHandler(container.Resolver, container.Writer.SenderAddress()),
		Workflows: handlers.NewWorkflowHandler(container.Workflows),
		Manifest:  handlers.NewManifestHandler(cfg),
		WebSocket: handlers.NewWebSocketHandler(container.Push),
		Admin:     handlers.NewAdminHandler(container.Indexer),
	}

	engine := router.SetupRouter(cfg, h)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // workflow endpoints block until tx confirmation
	}

	go func() {
		logrus.WithField("addr", addr).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("error", err.Error()).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithField("error", err.Error()).Error("Forced shutdown")
	}
}
