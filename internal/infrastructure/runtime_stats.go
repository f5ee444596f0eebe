package infrastructure

import (
	"runtime"
	"time"
)

// RuntimeStats is a point-in-time snapshot of the process, reported by the
// health endpoint. Prometheus gets the same figures from the Go collector.
type RuntimeStats struct {
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	SystemMB      float64 `json:"system_mb"`
	GCCount       uint32  `json:"gc_count"`
	LastGCPauseMS int64   `json:"last_gc_pause_ms"`
	CPUCount      int     `json:"cpu_count"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// CollectRuntimeStats reads memory and scheduler statistics. startTime is
// the process start used for uptime.
func CollectRuntimeStats(startTime time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(mem.HeapAlloc) / (1 << 20),
		SystemMB:      float64(mem.Sys) / (1 << 20),
		GCCount:       mem.NumGC,
		LastGCPauseMS: time.Duration(mem.PauseNs[(mem.NumGC+255)%256]).Milliseconds(),
		CPUCount:      runtime.NumCPU(),
		UptimeSeconds: time.Since(startTime).Seconds(),
	}
}
