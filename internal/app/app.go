package app

import (
	"context"
	"fmt"
	"io"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	httpapi "github.com/yungbote/tagledger-backend/internal/http"
	httpH "github.com/yungbote/tagledger-backend/internal/http/handlers"
	"github.com/yungbote/tagledger-backend/internal/jobs"
	"github.com/yungbote/tagledger-backend/internal/jobs/worker"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/observability"
	"github.com/yungbote/tagledger-backend/internal/platform/blobstore"
	"github.com/yungbote/tagledger-backend/internal/platform/eventbus"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
	"github.com/yungbote/tagledger-backend/internal/temporalx"
	"github.com/yungbote/tagledger-backend/internal/temporalx/jobrun"
	"github.com/yungbote/tagledger-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Blobs    blobstore.Store
	Bus      eventbus.Bus
	Repos    Repos
	Services Services
	Temporal temporalsdkclient.Client
	Server   *httpapi.Server

	shutdownTracing func(context.Context) error
}

// New connects every backing store and wires services. Schema migration is
// left to Migrate.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg}
	a.shutdownTracing = observability.InitOTel(ctx, log, cfg.Otel)

	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = dbs

	blobs, err := blobstore.New(ctx, log, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init blob storage: %w", err)
	}
	a.Blobs = blobs

	a.Bus = eventbus.Nop()
	if cfg.Redis.Enabled() {
		bus, err := eventbus.NewRedis(log, cfg.Redis.Addr, cfg.Redis.Channel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init event bus: %w", err)
		}
		a.Bus = bus
	}

	a.Repos = wireRepos(dbs.DB(), log)
	machine := lifecycle.NewMachine(dbs.DB(), log, a.Repos.Audit, a.Bus)
	a.Services, err = wireServices(log, cfg, machine, blobs, a.Repos)
	if err != nil {
		a.Close()
		return nil, err
	}

	tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init temporal: %w", err)
	}
	a.Temporal = tc
	if tc != nil {
		a.Services.Jobs.SetExecutor(jobrun.NewExecutor(log, tc, cfg.Temporal.TaskQueue))
	} else {
		a.Services.Jobs.SetExecutor(jobs.NewSyncExecutor(a.Services.Runner))
	}

	a.Server = httpapi.NewServer(httpapi.RouterConfig{
		Log:            log,
		ServiceName:    cfg.Otel.ServiceName,
		TracingEnabled: cfg.Otel.Enabled,
		AllowedOrigins: cfg.AllowedOrigins,
		Services: httpapi.Services{
			Tags:     a.Services.Tags,
			Schemas:  a.Services.Schemas,
			Datasets: a.Services.Datasets,
			Analysis: a.Services.Analysis,
			MLOps:    a.Services.MLOps,
			Jobs:     a.Services.Jobs,
			Audit:    a.Services.Audit,
		},
		Health: httpH.NewHealthHandler(a.pingDB),
	})
	return a, nil
}

func (a *App) Migrate() error {
	a.Log.Info("Running auto migration...")
	return a.DB.AutoMigrateAll()
}

func (a *App) pingDB(ctx context.Context) error {
	sqlDB, err := a.DB.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RunHTTP serves the API until ctx is done.
func (a *App) RunHTTP(ctx context.Context) error {
	return a.Server.Run(ctx, ":"+a.Cfg.Port)
}

// RunWorker executes queued jobs until ctx is done: through a Temporal worker
// when a cluster is configured, otherwise by polling the jobs table.
func (a *App) RunWorker(ctx context.Context) error {
	if a.Temporal != nil {
		tw, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, a.Temporal, a.Services.Runner)
		if err != nil {
			return err
		}
		if err := tw.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
		<-ctx.Done()
		return nil
	}
	worker.NewWorker(a.Log, a.Cfg.Worker, a.Services.Jobs, a.Services.Runner).Start(ctx)
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Temporal != nil {
		a.Temporal.Close()
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("Event bus close failed", "error", err)
		}
	}
	if c, ok := a.Blobs.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.Log.Warn("Blob storage close failed", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(context.Background()); err != nil {
			a.Log.Warn("Tracing shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
