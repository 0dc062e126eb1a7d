// stubserver runs the in-memory contract stub of the supply service.
// Data lives for the lifetime of the process.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/config"
	"github.com/iliyamo/construction-supply-tracker/internal/handler"
	"github.com/iliyamo/construction-supply-tracker/internal/logger"
	"github.com/iliyamo/construction-supply-tracker/internal/metrics"
	"github.com/iliyamo/construction-supply-tracker/internal/router"
)

func main() {
	cfg, err := config.LoadStub()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log, err := logger.Init(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "supply-stub",
	})
	if err != nil {
		zap.NewExample().Fatal("init logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	repos := handler.NewRepos()
	if cfg.OwnerUsername != "" {
		owner, err := handler.SeedOwner(cfg, repos)
		if err != nil {
			log.Fatal("seed owner", zap.Error(err))
		}
		log.Info("seeded owner", zap.String("username", owner.Username), zap.Int64("id", owner.ID))
	}

	e := router.New(cfg, repos, log, metrics.NewServer(nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
