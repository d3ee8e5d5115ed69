package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/isdelr/realty-be/internal/services"
)

// HostStats is a snapshot of host resource usage.
type HostStats struct {
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryPercent float64   `json:"memoryPercent"`
	MemoryUsedMB  uint64    `json:"memoryUsedMb"`
	UptimeSeconds uint64    `json:"uptimeSeconds"`
	SampledAt     time.Time `json:"sampledAt"`
}

// highMemoryThreshold is the memory usage, in percent, that raises a warning event.
const highMemoryThreshold = 90.0

// StatUpdater periodically samples host resource usage for the health endpoint.
type StatUpdater struct {
	eventSvc  services.EventServiceProvider
	interval  time.Duration
	sample    func(ctx context.Context) (HostStats, error)
	done      chan bool
	mu        sync.RWMutex
	latest    HostStats
	lastAlert time.Time
}

// NewStatUpdater creates a new StatUpdater. eventSvc may be nil.
func NewStatUpdater(eventSvc services.EventServiceProvider, interval time.Duration) *StatUpdater {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &StatUpdater{
		eventSvc: eventSvc,
		interval: interval,
		sample:   sampleHost,
		done:     make(chan bool),
	}
}

// Run starts the periodic updates.
func (su *StatUpdater) Run() {
	log.Info().Msg("Starting background stat updater...")
	ticker := time.NewTicker(su.interval)
	defer ticker.Stop()

	// Run once immediately on start
	su.update()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-ticker.C:
			su.update()
		}
	}
}

// Stop halts the periodic updates.
func (su *StatUpdater) Stop() {
	su.done <- true
}

// Latest returns the most recent snapshot. It is zero before the first sample.
func (su *StatUpdater) Latest() HostStats {
	su.mu.RLock()
	defer su.mu.RUnlock()
	return su.latest
}

func (su *StatUpdater) update() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := su.sample(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("StatUpdater: Failed to sample host stats")
		return
	}

	su.mu.Lock()
	su.latest = stats
	su.mu.Unlock()

	if stats.MemoryPercent >= highMemoryThreshold && time.Since(su.lastAlert) > time.Hour {
		su.lastAlert = time.Now()
		msg := fmt.Sprintf("Host memory usage is high: %.1f%%", stats.MemoryPercent)
		log.Warn().Float64("memory_percent", stats.MemoryPercent).Msg("StatUpdater: High memory usage")
		if su.eventSvc != nil {
			if err := su.eventSvc.CreateEvent(ctx, "system.memory.high", "warn", msg, nil); err != nil {
				log.Error().Err(err).Msg("StatUpdater: Failed to record event")
			}
		}
	}
}

func sampleHost(ctx context.Context) (HostStats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostStats{}, fmt.Errorf("read memory: %w", err)
	}
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return HostStats{}, fmt.Errorf("read uptime: %w", err)
	}
	stats := HostStats{
		MemoryPercent: vm.UsedPercent,
		MemoryUsedMB:  vm.Used / 1024 / 1024,
		UptimeSeconds: uptime,
		SampledAt:     time.Now().UTC(),
	}
	// A zero interval compares against the previous call; the first value is 0.
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	return stats, nil
}
