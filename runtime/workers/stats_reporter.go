package workers

import (
	"context"
	"log/slog"
	"time"

	"groupchat/contract"
	"groupchat/observability"
)

var _ contract.Worker = (*StatsReporterWorker)(nil)

// StatsReporterWorker logs a server stats snapshot at a fixed interval.
type StatsReporterWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	interval time.Duration
}

func NewStatsReporterWorker(log *slog.Logger, monitor *observability.Monitor, interval time.Duration) *StatsReporterWorker {
	return &StatsReporterWorker{log: log, monitor: monitor, interval: interval}
}

func (w *StatsReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := w.monitor.Snapshot()
			w.log.Info("Server stats",
				"users_online", stats.UsersOnline,
				"ai_processing", stats.AIProcessing,
				"ai_queue_depth", stats.AIQueueDepth,
				"message_count", stats.MessageCount,
				"alloc_mem_mb", stats.AllocMemMB,
				"cpu_percent", stats.CPUPercent,
				"goroutines", stats.NumGoroutines)
		}
	}
}
