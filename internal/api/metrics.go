package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/bridges/modulebus"
)

// SystemMetrics is the body of GET /metrics.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	ModuleBus     *modulebus.Stats `json:"module_bus,omitempty"`
	Automation    AutomationCounts `json:"automation"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics reports broker reachability.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// AutomationCounts summarises the registries.
type AutomationCounts struct {
	Actions        int `json:"actions"`
	RunningActions int `json:"running_actions"`
	Scenes         int `json:"scenes"`
	Devices        int `json:"devices"`
}

// DatabaseMetrics contains connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / 1024 / 1024,
			NumGC:         mem.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount()},
	}

	if s.mqtt != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		m.MQTT = MQTTMetrics{Enabled: true, Connected: s.mqtt.HealthCheck(ctx) == nil}
	}
	if s.modules != nil {
		stats := s.modules.Stats()
		m.ModuleBus = &stats
	}

	actions := s.automation.GetActions()
	m.Automation = AutomationCounts{
		Actions: len(actions),
		Scenes:  len(s.automation.GetScenes()),
		Devices: s.devices.Count(),
	}
	for _, a := range actions {
		if inv, ok := s.automation.Invocable(a.ActionID); ok && inv.Busy() {
			m.Automation.RunningActions++
		}
	}

	if s.db != nil {
		st := s.db.Stats()
		m.Database = &DatabaseMetrics{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			Idle:            st.Idle,
			WaitCount:       st.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, m)
}
