package worker

import (
	"context"
	"sync"
	"time"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/envutil"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type Source interface {
	Pending(ctx context.Context, queue string, limit int) ([]*types.Job, error)
}

type Runner interface {
	Run(ctx context.Context, jobID int64) (*types.Job, error)
}

type Config struct {
	Queue        string
	Concurrency  int
	PollInterval time.Duration
}

func LoadConfig() Config {
	return Config{
		Queue:        envutil.String("WORKER_QUEUE", ""),
		Concurrency:  envutil.Int("WORKER_CONCURRENCY", 4),
		PollInterval: envutil.Duration("WORKER_POLL_INTERVAL", time.Second),
	}
}

// Worker polls for queued jobs when no Temporal cluster is configured.
// Several pollers may see the same job; the queued -> running transition lets
// exactly one of them run it.
type Worker struct {
	log    *logger.Logger
	cfg    Config
	source Source
	runner Runner
}

func NewWorker(baseLog *logger.Logger, cfg Config, source Source, runner Runner) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Worker{
		log:    baseLog.With("component", "JobWorker"),
		cfg:    cfg,
		source: source,
		runner: runner,
	}
}

// Start blocks until ctx is done and every loop has returned.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "queue", w.cfg.Queue)
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.runLoop(ctx, workerID)
		}(i + 1)
	}
	wg.Wait()
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			w.Poll(ctx, workerID)
		}
	}
}

// Poll runs every job it finds pending and returns how many it ran.
func (w *Worker) Poll(ctx context.Context, workerID int) int {
	pending, err := w.source.Pending(ctx, w.cfg.Queue, w.cfg.Concurrency)
	if err != nil {
		w.log.Warn("List pending jobs failed", "worker_id", workerID, "error", err)
		return 0
	}
	ran := 0
	for _, job := range pending {
		if ctx.Err() != nil {
			return ran
		}
		if _, err := w.runner.Run(ctx, job.ID); err != nil {
			if apierr.Is(err, apierr.CodeInvalidTransition) || apierr.Is(err, apierr.CodeConflict) {
				continue
			}
			w.log.Warn("Job run failed", "worker_id", workerID, "job_id", job.ID, "error", err)
			continue
		}
		ran++
	}
	return ran
}
