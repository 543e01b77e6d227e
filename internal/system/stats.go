package system

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is a point-in-time view of host load.
type Snapshot struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
	MemUsedMB  uint64  `json:"mem_used_mb"`
	Goroutines int     `json:"goroutines"`
}

// Stats собирает загрузку CPU и памяти. Ошибки gopsutil не фатальны:
// соответствующие поля остаются нулевыми.
func Stats(ctx context.Context) Snapshot {
	s := Snapshot{Goroutines: runtime.NumGoroutine()}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.MemPercent = vm.UsedPercent
		s.MemUsedMB = vm.Used / 1024 / 1024
	}
	return s
}
