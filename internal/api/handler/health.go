package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/reelgrab/reelgrab/internal/repository"
)

var startTime = time.Now()

// HealthHandler handles health check and stats endpoints.
type HealthHandler struct {
	registry repository.DownloadRegistry
	spoolDir string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(registry repository.DownloadRegistry, spoolDir string) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		spoolDir: spoolDir,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Downloads *int   `json:"downloads,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe. Ready means the registry
// answers queries.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	count, err := h.registry.Count(ctx)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(HealthResponse{
			Status:    "error",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Downloads: &count,
	})
}

// SystemStats contains system resource statistics.
type SystemStats struct {
	Uptime          int64   `json:"uptime_seconds"`
	UptimeHuman     string  `json:"uptime_human"`
	MemAllocMB      int64   `json:"mem_alloc_mb"`
	MemSysMB        int64   `json:"mem_sys_mb"`
	NumGoroutines   int     `json:"num_goroutines"`
	NumCPU          int     `json:"num_cpu"`
	ActiveDownloads int     `json:"active_downloads"`
	DiskUsedBytes   int64   `json:"disk_used_bytes"`
	DiskFreeBytes   int64   `json:"disk_free_bytes"`
	DiskTotalBytes  int64   `json:"disk_total_bytes"`
	DiskUsedPct     float64 `json:"disk_used_pct"`
	SpoolPath       string  `json:"spool_path"`
}

// Stats handles GET /stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		SpoolPath:     h.spoolDir,
	}

	if count, err := h.registry.Count(r.Context()); err == nil {
		stats.ActiveDownloads = count
	}

	total, free, used, usedPct := getDiskStats(h.spoolDir)
	stats.DiskTotalBytes = total
	stats.DiskFreeBytes = free
	stats.DiskUsedBytes = used
	stats.DiskUsedPct = usedPct

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
