package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/firebridge/internal/config"
	"github.com/dropDatabas3/firebridge/internal/http/server"
	"github.com/dropDatabas3/firebridge/internal/observability/logger"
)

var version = "dev"

func main() {
	// .env si existe; en producción todo viene del entorno real.
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "ruta del config YAML")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// logger todavía no inicializado
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "firebridge",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx := context.Background()
	handler, cleanup, err := server.Build(ctx, cfg)
	if err != nil {
		log.Fatal("wiring failed", logger.Err(err))
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Warn("cleanup error", logger.Err(err))
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("server listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("project_id", cfg.Firebase.ProjectID),
			logger.String("storage_driver", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", logger.Err(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", logger.Err(err))
	}
}
