package services

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// ResourceMonitor periodically logs process and host resource usage. It has
// no influence on evaluations; it exists for operational visibility.
type ResourceMonitor struct {
	interval time.Duration
	logger   *logrus.Logger
	stop     chan struct{}
}

// NewResourceMonitor creates a monitor with the given sampling interval.
func NewResourceMonitor(interval time.Duration, logger *logrus.Logger) *ResourceMonitor {
	return &ResourceMonitor{
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins sampling in the background until Stop is called or the
// context is cancelled.
func (m *ResourceMonitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.sample(ctx)
			}
		}
	}()
}

// Stop halts sampling.
func (m *ResourceMonitor) Stop() {
	close(m.stop)
}

func (m *ResourceMonitor) sample(ctx context.Context) {
	fields := logrus.Fields{
		"goroutines": runtime.NumGoroutine(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	fields["heap_alloc_mb"] = ms.HeapAlloc / 1024 / 1024

	if cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false); err == nil && len(cpuPercent) > 0 {
		fields["cpu_percent"] = cpuPercent[0]
	}
	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fields["mem_used_percent"] = memInfo.UsedPercent
	}

	m.logger.WithFields(fields).Debug("resource usage")
}
