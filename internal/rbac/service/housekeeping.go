package service

import (
	"context"
	"log/slog"
	"time"
)

// HousekeepingTask is one periodic cleanup. Run reports how many records it
// removed.
type HousekeepingTask struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// HousekeepingService periodically runs cleanup tasks so in-memory and
// stored state does not grow without bound.
type HousekeepingService struct {
	Logger   *slog.Logger
	Interval time.Duration
	Tasks    []HousekeepingTask

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(logger *slog.Logger, interval time.Duration, tasks ...HousekeepingTask) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Logger:   logger,
		Interval: interval,
		Tasks:    tasks,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "tasks", len(s.Tasks))
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce runs every task once. Each task is independent: a failure is
// logged and the remaining tasks still run.
func (s *HousekeepingService) RunOnce(ctx context.Context) {
	for _, task := range s.Tasks {
		n, err := task.Run(ctx)
		if err != nil {
			s.Logger.Error("housekeeping task failed", "task", task.Name, "error", err)
			continue
		}
		if n > 0 {
			s.Logger.Info("housekeeping task removed records", "task", task.Name, "count", n)
		}
	}
}
