// Command notify resolves the audience of a communication from the
// management database and hands it to the configured dispatcher.
//
//	notify -scope APPLICATION -roles OWNER -api 5f1c... -title "Maintenance" -text "..."
//	notify -scope MANAGEMENT -roles ADMIN,API_PUBLISHER -title "..." -text "..."
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dmitrymomot/apimgmt/pkg/communication"
	"github.com/dmitrymomot/apimgmt/pkg/communication/amqpdispatch"
	"github.com/dmitrymomot/apimgmt/pkg/config"
	"github.com/dmitrymomot/apimgmt/pkg/directory"
	"github.com/dmitrymomot/apimgmt/pkg/logger"
	"github.com/dmitrymomot/apimgmt/pkg/pg"
	"github.com/dmitrymomot/apimgmt/pkg/redis"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`
}

type request struct {
	apiID   string
	scope   string
	roles   string
	channel string
	title   string
	text    string
}

func main() {
	var req request
	flag.StringVar(&req.apiID, "api", "", "API id; empty sends a global communication")
	flag.StringVar(&req.scope, "scope", "", "role scope: API, APPLICATION, PORTAL or MANAGEMENT")
	flag.StringVar(&req.roles, "roles", "", "comma separated role names")
	flag.StringVar(&req.channel, "channel", string(communication.ChannelMail), "delivery channel")
	flag.StringVar(&req.title, "title", "", "communication title")
	flag.StringVar(&req.text, "text", "", "communication body")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, req); err != nil {
		slog.Error("notify failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, req request) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	opts := []logger.Option{logger.WithEnvironment(cfg.Env, "notify")}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	comm, err := req.communication()
	if err != nil {
		return err
	}

	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if pgCfg.AutoMigrate {
		if err := pg.Migrate(ctx, pool, directory.Migrations, directory.MigrationsDir, pgCfg, log); err != nil {
			return err
		}
	}

	dir := directory.NewPostgres(pool)
	apis, closeCache, err := cachedAPIs(ctx, dir, log)
	if err != nil {
		return err
	}
	defer closeCache()

	dispatcher, closeDispatcher, err := openDispatcher(log)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	svc := communication.NewService(
		communication.NewResolver(dir, apis, dir, communication.WithResolverLogger(log)),
		apis,
		communication.WithDispatcher(dispatcher),
		communication.WithLogger(log),
	)

	var n int
	if req.apiID == "" {
		n, err = svc.CreateGlobal(ctx, comm)
	} else {
		n, err = svc.Create(ctx, req.apiID, comm)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%d recipient(s)\n", n)
	return nil
}

func (r request) communication() (*communication.Communication, error) {
	scope, err := directory.ParseRoleScope(strings.ToUpper(strings.TrimSpace(r.scope)))
	if err != nil {
		return nil, err
	}

	var roles []string
	for role := range strings.SplitSeq(r.roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}

	return &communication.Communication{
		Recipient: &communication.RecipientFilter{RoleScope: scope, RoleValues: roles},
		Channel:   communication.Channel(strings.ToUpper(r.channel)),
		Title:     r.title,
		Text:      r.text,
	}, nil
}

func cachedAPIs(ctx context.Context, next directory.APILookup, log *slog.Logger) (directory.APILookup, func(), error) {
	var cacheCfg directory.CacheConfig
	if err := config.Load(&cacheCfg); err != nil {
		return nil, nil, err
	}

	switch cacheCfg.Backend {
	case "none", "":
		return next, func() {}, nil
	case "lru":
		return directory.NewCachedAPIs(next, directory.NewLRUCache(cacheCfg.Capacity, cacheCfg.TTL), directory.WithCacheLogger(log)), func() {}, nil
	case "redis":
	default:
		return nil, nil, fmt.Errorf("unknown directory cache %q", cacheCfg.Backend)
	}

	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return nil, nil, err
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return nil, nil, err
	}
	if err := redis.Healthcheck(client)(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	rc := directory.NewRedisCache(client, cacheCfg.TTL,
		directory.WithRedisKeyPrefix(redisCfg.KeyPrefix),
		directory.WithRedisLogger(log),
	)
	return directory.NewCachedAPIs(next, rc, directory.WithCacheLogger(log)), func() { _ = client.Close() }, nil
}

func openDispatcher(log *slog.Logger) (communication.Dispatcher, func(), error) {
	var amqpCfg amqpdispatch.Config
	if err := config.Load(&amqpCfg); err != nil {
		return nil, nil, err
	}
	if amqpCfg.URL == "" {
		log.Warn("AMQP_URL is not set, communications are resolved but not handed off")
		return communication.NoOpDispatcher{}, func() {}, nil
	}

	pub, err := amqpdispatch.Dial(amqpCfg.URL, amqpCfg.Exchange)
	if err != nil {
		return nil, nil, err
	}
	return amqpdispatch.New(pub, amqpCfg.Exchange, amqpdispatch.WithLogger(log)), func() { _ = pub.Close() }, nil
}
