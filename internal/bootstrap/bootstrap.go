// Package bootstrap assembles the backends and services selected by
// configuration. Both the HTTP server and complaintsctl start from here.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/api/http/handlers"
	"github.com/civicdesk/complaints-service/internal/auth"
	"github.com/civicdesk/complaints-service/internal/config"
	"github.com/civicdesk/complaints-service/internal/events"
	"github.com/civicdesk/complaints-service/internal/location"
	"github.com/civicdesk/complaints-service/internal/observability"
	"github.com/civicdesk/complaints-service/internal/persistence"
	"github.com/civicdesk/complaints-service/internal/repository"
	"github.com/civicdesk/complaints-service/internal/repository/memstore"
	"github.com/civicdesk/complaints-service/internal/repository/mongostore"
	"github.com/civicdesk/complaints-service/internal/service"
	"github.com/civicdesk/complaints-service/internal/storage"
)

// Container holds everything a process needs to serve requests.
type Container struct {
	Config        config.Config
	Logger        *zap.Logger
	Store         *repository.Store
	Blobs         storage.BlobStore
	Redis         *persistence.Redis
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Locations     *location.Hierarchy
	Auth          *service.AuthService
	Admin         *service.AdminService
	Complaints    *service.ComplaintService
	Assignment    *service.AssignmentService
	Attachments   *service.AttachmentService
	Notifications *service.NotificationService
}

// OpenStore connects the record store chosen by STORAGE_DRIVER.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*repository.Store, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return repository.NewPostgresStore(pg.Pool), nil
	case config.StorageMongo:
		mg, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, mg.Database); err != nil {
			_ = mg.Close(ctx)
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		store := mongostore.New(mg.Database)
		store.Ping = mg.Ping
		store.Close = mg.Close
		return store, nil
	case config.StorageMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// OpenBlobs returns the attachment store chosen by BLOB_DRIVER.
func OpenBlobs(ctx context.Context, cfg config.Config) (storage.BlobStore, error) {
	switch cfg.Upload.Driver {
	case config.BlobMinIO:
		return storage.NewMinIOStore(ctx, cfg.MinIO)
	case config.BlobLocal, "":
		return storage.NewLocalStore(cfg.Upload.Dir)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Upload.Driver)
	}
}

// New opens every backend and wires the services.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	blobs, err := OpenBlobs(ctx, cfg)
	if err != nil {
		closeStore(store, logger)
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	locations, err := location.Default()
	if err != nil {
		closeStore(store, logger)
		return nil, err
	}

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Blobs:      blobs,
		Redis:      persistence.NewRedis(ctx, cfg.Redis, logger),
		Dispatcher: events.NewInMemoryDispatcher(),
		Metrics:    observability.NewMetrics(),
		Locations:  locations,
	}

	var revocations auth.Revocations
	if c.Redis != nil {
		revocations = auth.NewRedisRevocations(c.Redis.Client)
	}

	var publisher events.Publisher
	if cfg.Broker.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Queue)
		if err != nil {
			logger.Warn("rabbitmq unavailable; events stay in process", zap.Error(err))
		} else {
			publisher = amqpPublisher
		}
	}

	c.Auth = service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:    store.Users,
		AgencyRepo:  store.Agencies,
		Revocations: revocations,
		Logger:      logger,
	})
	c.Admin = service.NewAdminService(cfg, service.AdminDependencies{
		UserRepo:   store.Users,
		AgencyRepo: store.Agencies,
		Logger:     logger,
	})
	c.Attachments = service.NewAttachmentService(cfg.Upload, blobs, store.Complaints, logger)
	c.Complaints = service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo: store.Complaints,
		HistoryRepo:   store.History,
		ResponseRepo:  store.Responses,
		Attachments:   c.Attachments,
		Locations:     locations,
		Metrics:       c.Metrics,
		Dispatcher:    c.Dispatcher,
		Logger:        logger,
	})
	c.Assignment = service.NewAssignmentService(service.AssignmentDependencies{
		ComplaintRepo: store.Complaints,
		AgencyRepo:    store.Agencies,
		HistoryRepo:   store.History,
		Dispatcher:    c.Dispatcher,
		Logger:        logger,
	})
	c.Notifications = service.NewNotificationService(c.Dispatcher, publisher, c.Metrics, logger)
	return c, nil
}

// HealthDependencies lists the backends probed by /health/ready.
func (c *Container) HealthDependencies() []handlers.Dependency {
	deps := []handlers.Dependency{{Name: "store", Ping: c.Store.Ping}}
	if c.Redis != nil {
		deps = append(deps, handlers.Dependency{Name: "redis", Ping: c.Redis.Ping})
	}
	return deps
}

// Close releases backend connections.
func (c *Container) Close(ctx context.Context) {
	if err := c.Notifications.Close(); err != nil {
		c.Logger.Warn("close event publisher", zap.Error(err))
	}
	c.Redis.Close()
	if c.Store.Close != nil {
		if err := c.Store.Close(ctx); err != nil {
			c.Logger.Warn("close store", zap.Error(err))
		}
	}
}

func closeStore(store *repository.Store, logger *zap.Logger) {
	if store.Close == nil {
		return
	}
	if err := store.Close(context.Background()); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
}
