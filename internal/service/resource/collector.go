package resource

import (
	"context"
	"fmt"
	"slices"

	"github.com/dagucloud/rollbuf/internal/config"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Collector takes one reading of the host resources.
type Collector interface {
	Collect(ctx context.Context) (Sample, error)
}

// CollectorFunc adapts a function to the Collector interface.
type CollectorFunc func(ctx context.Context) (Sample, error)

// Collect implements Collector.
func (f CollectorFunc) Collect(ctx context.Context) (Sample, error) {
	return f(ctx)
}

type hostCollector struct {
	diskPath string
	metrics  []string
}

// NewHostCollector returns a Collector backed by gopsutil. Only the listed
// metrics are read; the others stay zero.
func NewHostCollector(diskPath string, metrics []string) Collector {
	return &hostCollector{diskPath: diskPath, metrics: metrics}
}

func (c *hostCollector) enabled(metric string) bool {
	return len(c.metrics) == 0 || slices.Contains(c.metrics, metric)
}

func (c *hostCollector) Collect(ctx context.Context) (Sample, error) {
	var s Sample

	if c.enabled(config.MetricCPU) {
		cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil {
			return s, fmt.Errorf("failed to get CPU usage: %w", err)
		}
		if len(cpuPercent) > 0 {
			s.CPU = cpuPercent[0]
		}
	}

	if c.enabled(config.MetricMemory) {
		memStat, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return s, fmt.Errorf("failed to get memory usage: %w", err)
		}
		s.Memory = memStat.UsedPercent
		s.MemoryTotalBytes = memStat.Total
		s.MemoryUsedBytes = memStat.Used
	}

	if c.enabled(config.MetricDisk) {
		diskStat, err := disk.UsageWithContext(ctx, c.diskPath)
		if err != nil {
			return s, fmt.Errorf("failed to get disk usage of %s: %w", c.diskPath, err)
		}
		s.Disk = diskStat.UsedPercent
		s.DiskTotalBytes = diskStat.Total
		s.DiskUsedBytes = diskStat.Used
	}

	if c.enabled(config.MetricLoad) {
		loadStat, err := load.AvgWithContext(ctx)
		if err != nil {
			return s, fmt.Errorf("failed to get load average: %w", err)
		}
		s.Load = loadStat.Load1
	}

	return s, nil
}
