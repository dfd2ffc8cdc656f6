package helpers

import "runtime"

// RuntimeStats is the process footprint reported by the health endpoints.
type RuntimeStats struct {
	Goroutines    int `json:"goroutines"`
	HeapAllocMB   int `json:"heap_alloc_mb"`
	SysMB         int `json:"sys_mb"`
	TotalMemoryMB int `json:"total_memory_mb,omitempty"`
	AvailableMB   int `json:"available_memory_mb,omitempty"`
}

// GetRuntimeStats samples the Go runtime and, where the platform exposes it,
// host memory. Host fields stay zero when unknown.
func GetRuntimeStats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	total, available := GetSystemMemoryMB()
	return RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   int(m.HeapAlloc / 1024 / 1024),
		SysMB:         int(m.Sys / 1024 / 1024),
		TotalMemoryMB: total,
		AvailableMB:   available,
	}
}
