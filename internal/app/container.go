// Package app wires the application together. Everything a command needs is
// built once here and handed down explicitly.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"songmail/internal/config"
	"songmail/internal/database"
	"songmail/internal/modules/auth"
	"songmail/internal/modules/catalog"
	"songmail/internal/modules/friend"
	"songmail/internal/modules/search"
	"songmail/internal/modules/share"
	"songmail/internal/notification"
	"songmail/internal/pkg/jwt"
	"songmail/internal/pkg/logger"
	"songmail/internal/repository"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	JWT    *jwt.Service

	UserRepo    *repository.UserRepository
	CatalogRepo *repository.CatalogRepository
	FriendRepo  *repository.FriendRepository

	AuthService    *auth.Service
	CatalogService *catalog.Service
	FriendService  *friend.Service
	ShareService   *share.Service

	Dispatcher notification.Dispatcher
	Mailer     *notification.SMTPMailer

	AuthHandler    *auth.Handler
	CatalogHandler *catalog.Handler
	FriendHandler  *friend.Handler
	ShareHandler   *share.Handler

	pool        *notification.Pool
	asynqClient *asynq.Client
}

// New connects to the stores and builds every service. The notification pool
// is not started; call Start for that.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	log := logger.Component("app")
	c := &Container{Config: cfg}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	c.DB = db
	if err := repository.AutoMigrate(db); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if cfg.Redis.Enabled() {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     10,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := c.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// the search cache degrades without redis; the asynq backend cannot
			if cfg.Notify.Backend == config.NotifyBackendAsynq {
				_ = c.Close()
				return nil, fmt.Errorf("redis ping failed: %w", err)
			}
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, search cache falls back to memory")
			_ = c.Redis.Close()
			c.Redis = nil
		}
	}

	c.JWT = jwt.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	c.UserRepo = repository.NewUserRepository(db)
	c.CatalogRepo = repository.NewCatalogRepository(db)
	c.FriendRepo = repository.NewFriendRepository(db)

	c.AuthService = auth.NewService(c.UserRepo, c.JWT)
	c.CatalogService = catalog.NewService(c.CatalogRepo)
	c.FriendService = friend.NewService(c.FriendRepo)

	c.Mailer = notification.NewSMTPMailer(cfg.Mail)
	switch cfg.Notify.Backend {
	case config.NotifyBackendAsynq:
		c.asynqClient = asynq.NewClient(RedisClientOpt(cfg.Redis))
		c.Dispatcher = notification.NewAsynqDispatcher(c.asynqClient)
	default:
		c.pool = notification.NewPool(c.Mailer, cfg.Notify.Workers, cfg.Notify.QueueSize)
		c.Dispatcher = c.pool
	}

	c.ShareService = share.NewService(
		c.searchAdapter(),
		c.CatalogService,
		c.FriendService,
		c.Dispatcher,
		share.NewTokens(cfg.ShareTokenSecret, cfg.ShareTokenTTL),
		share.OptionsFromConfig(cfg),
	)

	c.AuthHandler = auth.NewHandler(c.AuthService)
	c.CatalogHandler = catalog.NewHandler(c.CatalogService)
	c.FriendHandler = friend.NewHandler(c.FriendService)
	c.ShareHandler = share.NewHandler(c.ShareService)

	log.Info().
		Str("notify_backend", cfg.Notify.Backend).
		Bool("redis", c.Redis != nil).
		Msg("container ready")
	return c, nil
}

// RedisClientOpt is the asynq connection for the configured redis.
func RedisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (c *Container) searchAdapter() search.Adapter {
	var adapter search.Adapter = search.NewITunesClient(c.Config.Search)
	if c.Config.Search.CacheTTL <= 0 {
		return adapter
	}

	var cache search.Cache = search.NewMemoryCache()
	if c.Redis != nil {
		cache = search.NewRedisCache(c.Redis)
	}
	return search.NewCachedAdapter(adapter, cache, c.Config.Search.CacheTTL)
}

// Start launches the in-process notification workers, if that backend is used.
func (c *Container) Start(ctx context.Context) {
	if c.pool != nil {
		c.pool.Start(ctx)
	}
}

// Health pings the database and, when configured, redis.
func (c *Container) Health(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close drains queued notifications first, then releases the stores.
func (c *Container) Close() error {
	if c.pool != nil {
		c.pool.Stop()
	}

	var errs []error
	if c.asynqClient != nil {
		errs = append(errs, c.asynqClient.Close())
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
