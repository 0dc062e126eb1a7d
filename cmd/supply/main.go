// supply is the command line client of the construction supply
// service.  Each invocation restores the persisted session, loads the
// data its role's screen needs and runs one command against it.
//
//	supply login -u wren -p secret --role worker
//	supply create --item Cement --quantity 10 --project "Site A"
//	supply requests
//	supply accept-invite 'https://supply.example.com/#accept-invite=...' --password x --confirm x
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/app"
	"github.com/iliyamo/construction-supply-tracker/internal/client"
	"github.com/iliyamo/construction-supply-tracker/internal/config"
	"github.com/iliyamo/construction-supply-tracker/internal/database"
	"github.com/iliyamo/construction-supply-tracker/internal/events"
	"github.com/iliyamo/construction-supply-tracker/internal/logger"
	"github.com/iliyamo/construction-supply-tracker/internal/metrics"
	"github.com/iliyamo/construction-supply-tracker/internal/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var link string
	global := pflag.NewFlagSet("supply", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.StringVar(&link, "link", "", "URL or fragment the client was opened with (an invite link takes precedence)")
	global.Usage = func() { printUsage(global) }
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(global)
		return pflag.ErrHelp
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		printUsage(global)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.Init(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "supply",
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer closeStore()

	m := metrics.NewClient(nil)
	if cfg.MetricsFile != "" {
		defer func() {
			if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
				log.Warn("write metrics textfile", zap.Error(err))
			}
		}()
	}

	var pub events.Publisher = events.Nop{}
	if cfg.EventsEnabled {
		pub = events.NewAMQPPublisher(cfg.AMQPURL, log)
	}

	sess := session.New(store, log)
	api := client.New(cfg.APIURL, sess,
		client.WithLogger(log),
		client.WithHTTPClient(newHTTPClient(cfg)),
		client.WithMetrics(m),
	)
	a := app.New(sess, api, app.Options{
		Origin:    cfg.Origin,
		Publisher: pub,
		Metrics:   m,
		Log:       log,
	})

	// Preload failures are not fatal: the command may not need the
	// failed dataset, and the lists are already reset to empty.
	if err := a.Start(ctx, link); err != nil {
		if !sess.Authenticated() {
			return err
		}
		log.Warn("preload", zap.Error(err))
	}
	return cmd.run(ctx, a, rest[1:])
}

// openStore builds the configured session backend and a function that
// releases it.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (session.Store, func(), error) {
	nop := func() {}
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return session.NewMemoryStore(), nop, nil
	case config.BackendRedis:
		rdb, err := config.NewRedisClient(ctx)
		if err != nil {
			return nil, nop, err
		}
		return session.NewRedisStore(rdb, cfg.SessionPrefix), func() { _ = rdb.Close() }, nil
	case config.BackendMySQL:
		db, err := database.Open(ctx, cfg.DB)
		if err != nil {
			return nil, nop, err
		}
		st := session.NewSQLStore(db, cfg.SessionPrefix)
		if err := st.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nop, err
		}
		return st, func() { _ = db.Close() }, nil
	default:
		log.Debug("file session store", zap.String("path", cfg.SessionFile))
		return session.NewFileStore(cfg.SessionFile), nop, nil
	}
}
