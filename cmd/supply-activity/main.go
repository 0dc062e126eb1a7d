// supply-activity drains the activity queue into a local audit log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/config"
	"github.com/iliyamo/construction-supply-tracker/internal/logger"
	"github.com/iliyamo/construction-supply-tracker/internal/queue"
)

func main() {
	cfg, err := config.LoadActivity()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log, err := logger.Init(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "supply-activity",
	})
	if err != nil {
		zap.NewExample().Fatal("init logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.AMQPURL, Dir: cfg.LogDir, Log: log}
	log.Info("consuming activity", zap.String("queue", queue.ActivityQueueName), zap.String("dir", cfg.LogDir))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("consumer stopped", zap.Error(err))
	}
}
