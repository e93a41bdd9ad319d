package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// handleSystemHealth reports process and host health alongside the state of
// the background components.
func (s *Server) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := s.systemStats()

	positions, err := s.portfolio.List()
	positionsCount := 0
	dbHealthy := err == nil
	if dbHealthy {
		positionsCount = len(positions)
	}

	response := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"cpu_percent":    cpuPct,
		"memory_percent": memPct,
		"goroutines":     runtime.NumGoroutine(),
		"components": map[string]interface{}{
			"database": map[string]interface{}{
				"healthy":   dbHealthy,
				"positions": positionsCount,
			},
			"alert_monitor": s.alertMonitor.Status(),
			"quote_sources": s.cascade.Status(),
			"advisory": map[string]interface{}{
				"enabled": s.advisory.Enabled(),
			},
		},
	}
	if !dbHealthy {
		response["status"] = "degraded"
	}

	s.writeJSON(w, http.StatusOK, response)
}

// systemStats samples CPU and RAM usage. The CPU sample interval is kept
// short so the endpoint stays responsive to pollers.
func (s *Server) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
