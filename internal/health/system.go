package health

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

type MemoryMetrics struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Used      uint64  `json:"used"`
	Percent   float64 `json:"percent"`
}

type CPUMetrics struct {
	Percent float64 `json:"percent"`
	Load1   float64 `json:"load_1m"`
	Load5   float64 `json:"load_5m"`
	Load15  float64 `json:"load_15m"`
}

// SystemMetrics is a point-in-time sample of host resources.
type SystemMetrics struct {
	Memory *MemoryMetrics `json:"memory,omitempty"`
	CPU    *CPUMetrics    `json:"cpu,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// SystemSampler takes one host sample.
type SystemSampler interface {
	Sample(ctx context.Context) (SystemMetrics, error)
}

// HostSampler reads memory and CPU usage through gopsutil.  CPUInterval is
// the measurement window for CPU percent; zero compares against the previous
// call.
type HostSampler struct {
	CPUInterval time.Duration
}

func (h HostSampler) Sample(ctx context.Context) (SystemMetrics, error) {
	var m SystemMetrics

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return m, fmt.Errorf("memory: %w", err)
	}
	m.Memory = &MemoryMetrics{
		Total:     vm.Total,
		Available: vm.Available,
		Used:      vm.Used,
		Percent:   vm.UsedPercent,
	}

	pct, err := cpu.PercentWithContext(ctx, h.CPUInterval, false)
	if err != nil {
		return m, fmt.Errorf("cpu: %w", err)
	}
	m.CPU = &CPUMetrics{}
	if len(pct) > 0 {
		m.CPU.Percent = pct[0]
	}

	// load average is unavailable on some platforms
	if avg, err := load.AvgWithContext(ctx); err == nil {
		m.CPU.Load1 = avg.Load1
		m.CPU.Load5 = avg.Load5
		m.CPU.Load15 = avg.Load15
	}
	return m, nil
}
