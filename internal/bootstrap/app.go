package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"studymate/internal/ai"
	appsvc "studymate/internal/app"
	"studymate/internal/cache"
	"studymate/internal/capability"
	"studymate/internal/config"
	"studymate/internal/persist"
	mysqlClient "studymate/internal/platform/mysql"
	rabbitmqClient "studymate/internal/platform/rabbitmq"
	redisClient "studymate/internal/platform/redis"
	"studymate/internal/render"
	"studymate/internal/repository"
	"studymate/internal/store"
	"studymate/internal/worker"
)

type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Store        *store.Store
	Capabilities *capability.Set

	Auth          *appsvc.AuthService
	Chat          *appsvc.ChatService
	Conversations *appsvc.ConversationService
	Library       *appsvc.LibraryService
	Render        *appsvc.RenderService
	Preferences   *appsvc.PreferenceService
	Archive       *repository.ArchiveRepository

	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	ArchiveWorker *worker.ArchiveWorker

	backend   persist.Backend
	StartedAt time.Time
}

type Option func(*options)

type options struct {
	completer ai.Completer
	logger    *zap.Logger
}

// WithCompleter replaces the remote model client.
func WithCompleter(c ai.Completer) Option {
	return func(o *options) { o.completer = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New loads configuration from the environment and builds the App.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg, WithLogger(logger))
}

// Build wires every component for cfg. Optional infrastructure (redis,
// rabbitmq, mysql) is connected only when the configuration asks for it.
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	a := &App{Config: cfg, Logger: o.logger, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if err := a.connect(ctx); err != nil {
		return nil, err
	}

	backend, err := a.openBackend()
	if err != nil {
		return nil, err
	}
	a.backend = backend

	snap := persist.NewSnapshotter(backend, cfg.Storage.Namespace, a.Logger)
	st, err := store.Open(ctx, snap, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("load state failed: %w", err)
	}
	a.Store = st
	a.Capabilities = capabilities(cfg)

	completer := o.completer
	if completer == nil {
		completer = ai.NewClient(ai.Config{
			BaseURL:          cfg.LLM.BaseURL,
			APIKey:           cfg.LLM.APIKey,
			Model:            cfg.LLM.Model,
			AllowKeyOverride: cfg.LLM.AllowKeyOverride,
		}, a.Logger.Named("llm"))
	}

	var renderOpts []render.Option
	if cfg.Features.Highlight {
		renderOpts = append(renderOpts, render.WithHighlighting(cfg.Features.HighlightStyle))
	}
	var renderCache appsvc.RenderCache
	if a.Redis != nil {
		renderCache = cache.NewRenderCache(a.Redis, cfg.Storage.Namespace, time.Duration(cfg.Redis.RenderCacheTTLSeconds)*time.Second)
	}
	a.Render = appsvc.NewRenderService(render.New(renderOpts...), renderCache, a.Logger)

	var archiver appsvc.Archiver
	if err := a.startArchive(ctx); err != nil {
		return nil, err
	}
	if a.MQConn != nil {
		archiver = rabbitmqClient.NewArchivePublisher(a.MQConn, cfg.RabbitMQ.ArchiveQueue)
	}

	a.Auth = appsvc.NewAuthService(st, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute)
	a.Library = appsvc.NewLibraryService(st, cfg.Upload.MaxFileBytes, a.Logger)
	a.Conversations = appsvc.NewConversationService(st, a.Render)
	a.Preferences = appsvc.NewPreferenceService(st)
	a.Chat = appsvc.NewChatService(st, completer, a.Render, archiver, a.Capabilities, appsvc.ChatConfig{
		Temperature:         float32(cfg.LLM.Temperature),
		RefineEnabled:       cfg.LLM.RefineEnabled,
		RefineTemperature:   float32(cfg.LLM.RefineTemperature),
		TitleTimeout:        time.Duration(cfg.LLM.TitleTimeoutSeconds) * time.Second,
		MemoryConversations: cfg.LLM.MemoryConversations,
		MemoryTailRunes:     cfg.LLM.MemoryTailRunes,
	}, a.Logger)

	a.Logger.Info("app_ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("redis", a.Redis != nil),
		zap.Bool("archive", a.ArchiveWorker != nil),
		zap.String("model", cfg.LLM.Model),
	)
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config
	if cfg.NeedsMySQL() {
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), a.Logger)
		if err != nil {
			return err
		}
		a.MySQL = db
	}
	if cfg.Redis.Enabled {
		client, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, a.Logger)
		if err != nil {
			return err
		}
		a.Redis = client
	}
	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmqClient.Dial(ctx, cfg.RabbitMQ.URL, a.Logger, cfg.RabbitMQ.ArchiveQueue)
		if err != nil {
			return err
		}
		a.MQConn = conn
	}
	return nil
}

func (a *App) openBackend() (persist.Backend, error) {
	switch a.Config.Storage.Driver {
	case "pebble":
		return persist.OpenPebble(a.Config.Storage.PebblePath, nil, a.Logger)
	case "redis":
		return persist.NewRedisBackend(a.Redis), nil
	case "mysql":
		return persist.NewMySQLBackend(a.MySQL)
	case "memory":
		a.Logger.Warn("memory_storage_selected", zap.String("detail", "state is lost on restart"))
		return persist.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", a.Config.Storage.Driver)
	}
}

func (a *App) startArchive(ctx context.Context) error {
	if a.MQConn == nil {
		return nil
	}
	repo, err := repository.NewArchiveRepository(a.MySQL)
	if err != nil {
		return err
	}
	a.Archive = repo

	w := worker.NewArchiveWorker(a.MQConn, repo, a.Config.RabbitMQ.ArchiveQueue, a.Logger.Named("archive"))
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start archive worker failed: %w", err)
	}
	a.ArchiveWorker = w
	return nil
}

func capabilities(cfg *config.Config) *capability.Set {
	speech := capability.Unavailable(capability.SpeechInput, "disabled")
	if cfg.Features.SpeechInput {
		speech = capability.Available(capability.SpeechInput, cfg.Features.SpeechLocale)
	}
	keyPicker := capability.Unavailable(capability.KeyPicker, "disabled")
	if cfg.Features.KeyPicker && cfg.LLM.AllowKeyOverride {
		keyPicker = capability.Available(capability.KeyPicker, "X-LLM-API-Key")
	}
	return capability.NewSet(speech, keyPicker)
}

// HealthChecks returns a probe per connected dependency.
func (a *App) HealthChecks() map[string]func(ctx context.Context) error {
	checks := make(map[string]func(ctx context.Context) error)
	if a.MySQL != nil {
		checks["mysql"] = func(ctx context.Context) error {
			sqlDB, err := a.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	if a.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if a.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

// Close stops background work and releases connections in reverse order
// of acquisition.
func (a *App) Close() error {
	var errs []error
	if a.Chat != nil {
		a.Chat.Wait()
	}
	if a.ArchiveWorker != nil {
		a.ArchiveWorker.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MySQL != nil {
		if err := mysqlClient.Close(a.MySQL); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}
