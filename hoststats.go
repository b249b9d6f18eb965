package ecs

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a resource snapshot of the machine the scheduler is running
// on: CPU load, memory pressure, and uptime. Systems that throttle their own
// work under load (e.g. skipping AsyncAllowed systems, shrinking a worker
// pool) read it via ReadResource[HostStats] instead of shelling out to OS
// APIs themselves.
type HostStats struct {
	CPUPercent    float64
	MemoryPercent float64
	MemoryUsed    uint64
	MemoryTotal   uint64
	Uptime        time.Duration
	SampledAt     time.Time
}

// HostStatsSystem refreshes the HostStats resource on a fixed interval,
// grounded on the ambient stack's process/host metrics library. Sampling CPU
// percent blocks for its interval argument, so it runs with AsyncAllowed and
// a conservative RunEvery to avoid stalling a schedule's stage.
type HostStatsSystem struct {
	// SampleWindow bounds how long cpu.PercentWithContext blocks per tick.
	// Defaults to 100ms if zero.
	SampleWindow time.Duration
}

func (s HostStatsSystem) Descriptor() SystemDescriptor {
	return SystemDescriptor{
		Name:         "host_stats",
		Resources:    []ResourceAccess{{Name: resourceNameOf[HostStats](), Mode: AccessModeWrite}},
		RunEvery:     TickInterval{Every: 60},
		AsyncAllowed: true,
	}
}

func (s HostStatsSystem) Run(ctx context.Context, exec SystemContext) SystemResult {
	window := s.SampleWindow
	if window <= 0 {
		window = 100 * time.Millisecond
	}

	percents, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return SystemResult{Err: err}
	}
	var cpuPercent float64
	if len(percents) > 0 {
		cpuPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemResult{Err: err}
	}

	var uptime time.Duration
	if info, err := host.InfoWithContext(ctx); err == nil {
		uptime = time.Duration(info.Uptime) * time.Second
	}

	stats := HostStats{
		CPUPercent:    cpuPercent,
		MemoryPercent: vm.UsedPercent,
		MemoryUsed:    vm.Used,
		MemoryTotal:   vm.Total,
		Uptime:        uptime,
		SampledAt:     time.Now(),
	}
	InsertResource(exec.World(), stats)
	exec.Logger().Debug("host stats sampled",
		"cpu_percent", stats.CPUPercent,
		"memory_percent", stats.MemoryPercent,
	)

	return SystemResult{}
}

var (
	_ System = HostStatsSystem{}
)
