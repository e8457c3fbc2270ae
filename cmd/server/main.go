package main

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-users"
	"github.com/goliatone/go-users/cmd/server/config"
	"github.com/goliatone/go-users/repository"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("users"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	if err := cfg.Raw().Validate(); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	store := repository.NewUsersRepository(app.bunDB)
	authCfg := app.Config().GetAuth()

	cache := buildCache(app)

	service := users.NewService(store, cache).
		WithLogger(app.GetLogger("users:service"))

	tokens, err := users.NewTokenService(
		[]byte(authCfg.GetSigningKey()),
		app.Config().GetApp().GetName(),
		app.GetLogger("users:tokens"),
	)
	if err != nil {
		panic(err)
	}

	auther := users.NewAuthenticator(service, tokens).
		WithLogger(app.GetLogger("users:auth"))

	// the service stays up while the bootstrap retries against a store
	// that may not be reachable yet
	bootCtx, cancelBoot := context.WithCancel(ctx)
	defer cancelBoot()
	go func() {
		boot := users.NewAdminBootstrap(store, authCfg.GetAdminUsername(), authCfg.GetAdminPassword()).
			WithRetryInterval(authCfg.GetBootstrapRetryInterval()).
			WithLogger(app.GetLogger("users:bootstrap"))
		if _, err := boot.Run(bootCtx); err != nil {
			app.GetLogger("users:bootstrap").Error("admin bootstrap aborted", "error", err)
		}
	}()

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	controller := users.NewController(service, auther,
		users.WithControllerLogger(app.GetLogger("users:ctrl")),
		users.WithServiceInfo(
			app.Config().GetApp().GetName(),
			app.Config().GetApp().GetVersion(),
		),
	)

	users.RegisterRoutes(srv.Router(), controller, users.Protected(authCfg, tokens, service))

	app.srv = srv
	srv.Serve(app.Config().GetApp().GetAddress())

	WaitExitSignal()

	cancelBoot()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*users.User)(nil))

	dialect := sqlitedialect.New()
	client, err := persistence.New(app.Config().GetPersistence(), db, dialect)
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(users.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	return nil
}

func buildCache(app *App) users.UserCache {
	ttl := app.Config().GetAuth().GetCacheTTL()
	ccfg := app.Config().GetCache()

	if !ccfg.UseRedis() {
		return users.NewMemoryCache(ttl)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     ccfg.GetRedisAddr(),
		Password: ccfg.GetRedisPassword(),
		DB:       ccfg.GetRedisDB(),
	})

	return users.NewRedisCache(client, ttl).
		WithLogger(app.GetLogger("users:cache"))
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
