package config

import (
	"context"
	"fmt"

	"taskmanager/configs"
	"taskmanager/internal/auth"
	"taskmanager/internal/cache"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"
	"taskmanager/internal/validation"
	"taskmanager/pkg/database"
	"taskmanager/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Dependencies is everything the HTTP layer needs, built once at startup.
type Dependencies struct {
	Config   configs.Config
	Store    repository.Store
	Validate *validator.Validate
	Tokens   *auth.TokenService
	Auth     *auth.Service
	Tasks    *service.TaskService
}

func NewDependencies(ctx context.Context, cfg configs.Config) (*Dependencies, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RedisEnabled {
		client, err := database.ConnectRedis(ctx, cfg)
		if err != nil {
			store.Close()
			return nil, err
		}
		logger.SystemLogger.Info("Redis connected", zap.String("host", cfg.RedisHost), zap.Int("port", cfg.RedisPort))
		store = cache.NewTaskCache(store, client, cfg.CacheTTL)
	}

	validate := validation.New()
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	return &Dependencies{
		Config:   cfg,
		Store:    store,
		Validate: validate,
		Tokens:   tokens,
		Auth:     auth.NewService(store, tokens, auth.NewHasher(cfg.BcryptCost), validate),
		Tasks:    service.NewTaskService(store, validate),
	}, nil
}

// OpenStore opens the backend selected by STORE_DRIVER.
func OpenStore(cfg configs.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := database.ConnectDB(cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.CreateTableIfNotExists(db); err != nil {
			db.Close()
			return nil, err
		}
		logger.SystemLogger.Info("Database connected", zap.String("driver", "postgres"))
		return repository.NewPostgresStore(db), nil

	case "sqlite":
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewSQLiteStore(db)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.Close()
			}
			return nil, err
		}
		logger.SystemLogger.Info("Database connected", zap.String("driver", "sqlite"), zap.String("path", cfg.SQLitePath))
		return store, nil

	case "file", "":
		store, err := repository.NewFileStore(cfg.DataFile)
		if err != nil {
			return nil, err
		}
		logger.SystemLogger.Info("Data file ready", zap.String("path", cfg.DataFile))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Close releases the store and, when enabled, the Redis client.
func (d *Dependencies) Close() error {
	return d.Store.Close()
}
