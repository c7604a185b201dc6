// Command search-indexer drains search indexing payloads addressed to the
// management nodes and writes them into OpenSearch.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/apimgmt/pkg/config"
	"github.com/dmitrymomot/apimgmt/pkg/httpserver"
	"github.com/dmitrymomot/apimgmt/pkg/indexer"
	"github.com/dmitrymomot/apimgmt/pkg/logger"
	"github.com/dmitrymomot/apimgmt/pkg/message"
	"github.com/dmitrymomot/apimgmt/pkg/message/mongostore"
	"github.com/dmitrymomot/apimgmt/pkg/mongo"
	"github.com/dmitrymomot/apimgmt/pkg/node"
	"github.com/dmitrymomot/apimgmt/pkg/opensearch"
	"github.com/dmitrymomot/apimgmt/pkg/scheduler"
	"github.com/dmitrymomot/apimgmt/pkg/search"
)

type appConfig struct {
	Env                 string        `env:"APP_ENV" envDefault:"development"`
	LogLevel            string        `env:"LOG_LEVEL"`
	MessageStore        string        `env:"MESSAGE_STORE" envDefault:"mongo"`    // mongo or memory
	SearchSink          string        `env:"SEARCH_SINK" envDefault:"opensearch"` // opensearch or memory
	OpsEnabled          bool          `env:"OPS_ENABLED" envDefault:"true"`
	HealthcheckInterval time.Duration `env:"HEALTHCHECK_INTERVAL" envDefault:"30s"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("search-indexer stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	var nodeCfg node.Config
	if err := config.Load(&nodeCfg); err != nil {
		return err
	}
	n := node.FromConfig(nodeCfg)

	opts := []logger.Option{logger.WithEnvironment(cfg.Env, "search-indexer"), logger.WithNode(n.ID())}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	var checks []httpserver.Probe

	store, storeChecks, closeStore, err := openStore(ctx, cfg.MessageStore, log)
	if err != nil {
		return err
	}
	defer closeStore()
	checks = append(checks, storeChecks...)

	sink, sinkChecks, err := openSink(ctx, cfg.SearchSink, log)
	if err != nil {
		return err
	}
	checks = append(checks, sinkChecks...)

	var idxCfg indexer.Config
	if err := config.Load(&idxCfg); err != nil {
		return err
	}

	metrics, err := indexer.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	messages := message.NewService(store, n, message.WithLogger(log))
	sched := scheduler.New(scheduler.WithLogger(log))

	ix := indexer.New(messages, sink, idxCfg, indexer.WithLogger(log), indexer.WithMetrics(metrics))
	if err := ix.Start(ctx, sched); err != nil {
		return err
	}

	if err := sched.Add("healthcheck", scheduler.Every(cfg.HealthcheckInterval), probe(log, checks)); err != nil {
		return err
	}

	log.InfoContext(ctx, "search-indexer started",
		slog.String("message_store", cfg.MessageStore),
		slog.String("search_sink", cfg.SearchSink),
		slog.String("indexer_state", ix.State().String()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Start(ctx)
	})
	if cfg.OpsEnabled {
		var opsCfg httpserver.Config
		if err := config.Load(&opsCfg); err != nil {
			return err
		}
		ops := httpserver.NewFromConfig(opsCfg, httpserver.WithLogger(log))
		handler := httpserver.OpsHandler(log, prometheus.DefaultGatherer, checks...)
		g.Go(func() error {
			return ops.Run(ctx, handler)
		})
	}
	return g.Wait()
}

func openStore(ctx context.Context, backend string, log *slog.Logger) (message.Store, []httpserver.Probe, func(), error) {
	switch backend {
	case "memory":
		log.WarnContext(ctx, "using in-memory message store, messages are lost on restart")
		return message.NewMemoryStore(), nil, func() {}, nil
	case "mongo", "":
	default:
		return nil, nil, nil, fmt.Errorf("unknown message store %q", backend)
	}

	var mcfg mongo.Config
	if err := config.Load(&mcfg); err != nil {
		return nil, nil, nil, err
	}
	db, err := mongo.NewWithDatabase(ctx, mcfg)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(ctx); err != nil {
			log.Error("failed to disconnect from mongodb", logger.Error(err))
		}
	}

	store := mongostore.New(db, mongostore.DefaultCollection)
	if err := store.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, nil, err
	}

	return store, []httpserver.Probe{{Name: "mongodb", Check: mongo.Healthcheck(db.Client())}}, closeFn, nil
}

func openSink(ctx context.Context, backend string, log *slog.Logger) (search.Sink, []httpserver.Probe, error) {
	var throttle search.ThrottleConfig
	if err := config.Load(&throttle); err != nil {
		return nil, nil, err
	}

	switch backend {
	case "memory":
		log.WarnContext(ctx, "using in-memory search sink")
		return search.Throttled(search.NewMemorySink(), throttle), nil, nil
	case "opensearch", "":
	default:
		return nil, nil, fmt.Errorf("unknown search sink %q", backend)
	}

	var ocfg opensearch.Config
	if err := config.Load(&ocfg); err != nil {
		return nil, nil, err
	}
	var scfg search.Config
	if err := config.Load(&scfg); err != nil {
		return nil, nil, err
	}

	client, err := opensearch.New(ctx, ocfg)
	if err != nil {
		return nil, nil, err
	}

	sink := search.Throttled(search.NewOpenSearchSink(client, scfg, search.WithLogger(log)), throttle)
	return sink, []httpserver.Probe{{Name: "opensearch", Check: opensearch.Healthcheck(client)}}, nil
}

func probe(log *slog.Logger, checks []httpserver.Probe) scheduler.Job {
	return func(ctx context.Context) error {
		var errs []error
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				log.WarnContext(ctx, "dependency unhealthy", slog.String("dependency", c.Name), logger.Error(err))
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
