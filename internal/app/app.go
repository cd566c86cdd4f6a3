// Package app assembles the notifier from configuration. Every backend has a
// local fallback so a bare environment runs entirely in memory.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/example/ride-notify/internal/auth"
	"github.com/example/ride-notify/internal/chat"
	"github.com/example/ride-notify/internal/config"
	"github.com/example/ride-notify/internal/dispatch"
	"github.com/example/ride-notify/internal/events"
	"github.com/example/ride-notify/internal/fanout"
	"github.com/example/ride-notify/internal/geo"
	httpapi "github.com/example/ride-notify/internal/http"
	"github.com/example/ride-notify/internal/logging"
	"github.com/example/ride-notify/internal/notify"
	"github.com/example/ride-notify/internal/share"
	"github.com/example/ride-notify/internal/storage"
)

// DriverIndex is the driver-location index the selector scans and the
// location endpoint writes.
type DriverIndex interface {
	storage.DriverLocationStore
}

type App struct {
	Config   config.ServerConfig
	Logger   *slog.Logger
	Store    storage.Store
	Drivers  DriverIndex
	Redis    *redis.Client
	WSReg    *dispatch.WSRegistry
	Sink     dispatch.Sink
	Verifier auth.Verifier
	Router   *events.Router
	Issuer   *share.Issuer

	firebase *firebase.App
	closers  []func() error
}

func New(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewLogger(cfg.LogLevel)
	}
	a := &App{Config: cfg, Logger: logger, WSReg: dispatch.NewWSRegistry()}

	if err := a.openFirebase(ctx); err != nil {
		return nil, err
	}
	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openDriverIndex(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildSink(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildVerifier(ctx); err != nil {
		a.Close()
		return nil, err
	}

	dispatcher := &fanout.Dispatcher{
		Selector: geo.NewSelector(a.Drivers, cfg.PrefixPrecision, cfg.CandidateLimit),
		Store:    a.Store,
		Sink:     a.Sink,
		Composer: notify.NewComposer(nil),
		Limit:    cfg.CandidateLimit,
		Logger:   logging.Component(logger, "fanout"),
	}
	mirror := &chat.Mirror{Rides: a.Store, Logger: logging.Component(logger, "chat")}
	a.Router = &events.Router{Rides: dispatcher, Messages: mirror, Logger: logging.Component(logger, "events")}
	a.Issuer = &share.Issuer{Links: a.Store, BaseURL: cfg.ShareBaseURL, Logger: logging.Component(logger, "share")}
	return a, nil
}

func (a *App) openFirebase(ctx context.Context) error {
	if a.Config.FirestoreProjectID == "" {
		return nil
	}
	var opts []option.ClientOption
	if a.Config.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(a.Config.FirebaseCredentialsFile))
	}
	fb, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: a.Config.FirestoreProjectID}, opts...)
	if err != nil {
		return fmt.Errorf("init firebase: %w", err)
	}
	a.firebase = fb
	return nil
}

func (a *App) openStore(ctx context.Context) error {
	switch {
	case a.Config.PGDSN != "":
		pg, err := storage.NewPostgresStore(ctx, a.Config.PGDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		a.Store, a.Drivers = pg, pg
		a.closers = append(a.closers, pg.Close)
		if a.Config.RunMigrations {
			applied, err := pg.Migrate(ctx, a.Config.MigrationsDir)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			a.Logger.Info("migrations applied", "files", applied)
		}
		a.Logger.Info("store ready", "backend", "postgres")
	case a.firebase != nil:
		client, err := a.firebase.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("open firestore: %w", err)
		}
		fs := storage.NewFirestoreStore(client)
		a.Store, a.Drivers = fs, fs
		a.closers = append(a.closers, fs.Close)
		a.Logger.Info("store ready", "backend", "firestore", "project", a.Config.FirestoreProjectID)
	default:
		a.Store = storage.NewMemoryStore()
		a.Logger.Warn("store ready", "backend", "memory")
	}
	return nil
}

// openDriverIndex prefers Redis over the store's own driver collection.
func (a *App) openDriverIndex(ctx context.Context) error {
	if a.Config.RedisURL != "" {
		opts, err := redis.ParseURL(a.Config.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.Redis = redis.NewClient(opts)
		a.closers = append(a.closers, a.Redis.Close)
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		a.Drivers = geo.NewRedisIndex(a.Redis, a.Config.RedisDriverKey)
		return nil
	}
	if a.Drivers == nil {
		a.Drivers = geo.NewIndex()
	}
	return nil
}

// buildSink chains the push transports: a live websocket first, then FCM,
// then the webhook, and the log as the last resort.
func (a *App) buildSink(ctx context.Context) error {
	chain := dispatch.Fallback{Sinks: []dispatch.Named{{Name: "ws", Sink: a.WSReg}}}
	if a.firebase != nil {
		m, err := a.firebase.Messaging(ctx)
		if err != nil {
			return fmt.Errorf("init messaging: %w", err)
		}
		chain.Sinks = append(chain.Sinks, dispatch.Named{Name: "fcm", Sink: dispatch.NewFCMSink(m)})
	}
	if a.Config.PushWebhookURL != "" {
		chain.Sinks = append(chain.Sinks, dispatch.Named{Name: "webhook", Sink: dispatch.NewWebhookSink(a.Config.PushWebhookURL)})
	}
	chain.Sinks = append(chain.Sinks, dispatch.Named{Name: "log", Sink: dispatch.LogSink{Logger: logging.Component(a.Logger, "push")}})

	a.Sink = chain
	if a.Redis != nil {
		a.Sink = &dispatch.DedupSink{Next: chain, Client: a.Redis, TTL: a.Config.PushDedupTTL, Logger: a.Logger}
	}
	return nil
}

func (a *App) buildVerifier(ctx context.Context) error {
	switch {
	case a.firebase != nil:
		client, err := a.firebase.Auth(ctx)
		if err != nil {
			return fmt.Errorf("init firebase auth: %w", err)
		}
		a.Verifier = &auth.FirebaseVerifier{Client: client}
	case a.Config.JWTSecret != "":
		a.Verifier = auth.NewJWTVerifier(a.Config.JWTSecret)
	default:
		a.Logger.Warn("no identity provider configured, authenticated routes will reject every caller")
		a.Verifier = denyAll{}
	}
	return nil
}

type denyAll struct{}

func (denyAll) Verify(context.Context, string) (auth.Identity, error) {
	return auth.Identity{}, auth.ErrInvalidToken
}

// HTTPServer builds the HTTP surface. A non-nil publisher makes the event
// webhook enqueue instead of handling inline.
func (a *App) HTTPServer(publisher httpapi.EventPublisher) *httpapi.Server {
	return httpapi.NewServer(httpapi.Deps{
		Events:    a.Router,
		Publisher: publisher,
		Shares:    a.Issuer,
		Verifier:  a.Verifier,
		Drivers:   a.Drivers,
		WSReg:     a.WSReg,
		Ready:     a.Ready,
	}, logging.Component(a.Logger, "http"))
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ready reports whether the configured backends answer.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.Store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
