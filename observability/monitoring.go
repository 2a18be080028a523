// Package observability aggregates in-process server stats for the
// health surface and the periodic stats log. Best effort only; it is
// not a metrics backend.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/shirou/gopsutil/process"
)

// Stats is the snapshot served by /health and logged periodically.
type Stats struct {
	UsersOnline   int     `json:"users_online"`
	AIProcessing  bool    `json:"ai_processing"`
	AIQueueDepth  int     `json:"ai_queue_depth"`
	MessageCount  uint64  `json:"message_count"`
	AllocMemMB    uint64  `json:"alloc_mem_mb"`
	RSSBytes      uint64  `json:"rss_bytes"`
	CPUPercent    float64 `json:"cpu_percent"`
	NumGoroutines int     `json:"num_goroutines"`
}

// EngineSource answers the engine-side questions: presence count, AI
// busy flag and queue depth. Wired in main so this package stays free
// of engine imports.
type EngineSource func() (usersOnline int, aiBusy bool, queueDepth int)

type Monitor struct {
	mu           sync.RWMutex
	log          *slog.Logger
	proc         *process.Process
	source       EngineSource
	messageCount atomic.Uint64
}

func NewMonitor(log *slog.Logger) (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{log: log, proc: proc}, nil
}

func (m *Monitor) SetEngineSource(source EngineSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = source
}

// CountMessage records one persisted message.
func (m *Monitor) CountMessage() {
	m.messageCount.Add(1)
}

// Snapshot collects engine and process stats. Process metrics that
// fail to read are reported as zero rather than failing the snapshot.
func (m *Monitor) Snapshot() Stats {
	m.mu.RLock()
	source := m.source
	m.mu.RUnlock()

	stats := Stats{
		MessageCount:  m.messageCount.Load(),
		NumGoroutines: runtime.NumGoroutine(),
	}
	if source != nil {
		stats.UsersOnline, stats.AIProcessing, stats.AIQueueDepth = source()
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.AllocMemMB = memStats.Alloc / 1024 / 1024

	if memInfo, err := m.proc.MemoryInfo(); err == nil {
		stats.RSSBytes = memInfo.RSS
	} else {
		m.log.Debug("Failed to read process memory info", "error", err)
	}
	if cpu, err := m.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	} else {
		m.log.Debug("Failed to read process cpu percent", "error", err)
	}
	return stats
}
