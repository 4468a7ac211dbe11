// Package bootstrap wires the configured backends into the services the
// server and the seed command share.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"snapgram/internal/account"
	"snapgram/internal/cache"
	"snapgram/internal/config"
	"snapgram/internal/database"
	"snapgram/internal/filestore"
	"snapgram/internal/observability"
	"snapgram/internal/repository"
	"snapgram/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
)

// Runtime holds the connected backends and the services built on them.
type Runtime struct {
	Store    *repository.Store
	Files    filestore.Store
	Disk     *filestore.Disk
	Cache    *cache.Cache
	Accounts *account.Service
	Posts    *service.PostService
	Users    *service.UserService

	mongo *mongo.Client
}

// InitRuntime connects the document store, the file store and Redis
// according to cfg. Redis is optional: when it is unreachable the cache
// is a pass-through.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}

	if err := rt.initDocumentStore(ctx, cfg); err != nil {
		return nil, err
	}
	if err := rt.initFileStore(cfg); err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.Cache = cache.InitRedis(ctx, cfg.RedisURL)

	rt.Accounts = account.NewService(rt.Store.Accounts, rt.Store.Sessions, account.Options{
		Secret:     cfg.JWTSecret,
		SessionTTL: cfg.SessionTTL,
	})
	rt.Posts = service.NewPostService(rt.Store.Posts, rt.Store.Saves, rt.Files, rt.Cache, service.PostOptions{
		MaxUploadSizeMB: cfg.MaxUploadSizeMB,
	})
	rt.Users = service.NewUserService(rt.Store.Users, rt.Accounts, rt.Files, rt.Cache, service.UserOptions{
		AvatarBaseURL:   cfg.AvatarBaseURL,
		MaxUploadSizeMB: cfg.MaxUploadSizeMB,
	})
	return rt, nil
}

func (rt *Runtime) initDocumentStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.DocumentBackend {
	case config.DocumentBackendMemory:
		store, err := repository.NewMemoryStore()
		if err != nil {
			return fmt.Errorf("memory document store: %w", err)
		}
		rt.Store = store
	case config.DocumentBackendMongo, "":
		client, err := database.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		db := client.Database(cfg.MongoDatabase)
		if err := database.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return fmt.Errorf("ensure indexes: %w", err)
		}
		rt.mongo = client
		rt.Store = repository.NewMongoStore(db)
	default:
		return fmt.Errorf("unknown DOCUMENT_BACKEND %q", cfg.DocumentBackend)
	}
	return nil
}

func (rt *Runtime) initFileStore(cfg *config.Config) error {
	switch cfg.FileBackend {
	case config.FileBackendCloudinary:
		cld, err := filestore.NewCloudinary(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			return err
		}
		rt.Files = filestore.Instrument(cld, config.FileBackendCloudinary)
	case config.FileBackendDisk, "":
		disk, err := filestore.NewDisk(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			return err
		}
		rt.Disk = disk
		rt.Files = filestore.Instrument(disk, config.FileBackendDisk)
	case config.FileBackendMemory:
		rt.Files = filestore.Instrument(filestore.NewMemory(), config.FileBackendMemory)
	default:
		return fmt.Errorf("unknown FILE_BACKEND %q", cfg.FileBackend)
	}
	return nil
}

// PingDocumentStore checks the document store. The memory store is
// always reachable.
func (rt *Runtime) PingDocumentStore(ctx context.Context) error {
	if rt.mongo == nil {
		return nil
	}
	return rt.mongo.Ping(ctx, nil)
}

// Close disconnects every backend.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.mongo != nil {
		if err := rt.mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongo disconnect: %w", err))
		}
	}
	if err := rt.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis close: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "runtime shutdown", "error", err)
		return err
	}
	return nil
}
