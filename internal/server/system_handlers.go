package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/portfolio-intake/internal/di"
)

// SystemHandlers handles system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	container   *di.Container
	startupTime time.Time
	cpuSample   time.Duration
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, container *di.Container) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		container:   container,
		startupTime: time.Now(),
		cpuSample:   100 * time.Millisecond,
	}
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status           string  `json:"status"`
	Version          string  `json:"version"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryPercent    float64 `json:"memory_percent"`
	Goroutines       int     `json:"goroutines"`
	GoVersion        string  `json:"go_version"`
	EventSubscribers int     `json:"event_subscribers"`
	UploadPending    bool    `json:"upload_pending"`
	CatalogSource    string  `json:"catalog_source"`
	CatalogTickers   int     `json:"catalog_tickers"`
	FormRevision     int64   `json:"form_revision"`
	FormRows         int     `json:"form_rows"`
	FormValid        bool    `json:"form_valid"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		Version:       Version,
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
	}

	if c := h.container; c != nil {
		if c.EventBus != nil {
			response.EventSubscribers = c.EventBus.SubscriberCount()
		}
		if c.Loader != nil {
			response.UploadPending = c.Loader.Pending()
		}
		if c.Store != nil {
			snap := c.Store.Snapshot()
			response.CatalogSource = snap.Catalog.Source
			response.CatalogTickers = len(snap.Catalog.Tickers)
			response.FormRevision = snap.Revision
			response.FormRows = len(snap.Payload.Stocks)
			response.FormValid = snap.Valid
		}
	}

	h.writeJSON(w, response)
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(h.cpuSample, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
