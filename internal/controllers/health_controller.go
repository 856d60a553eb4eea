package controllers

import (
	"cftracker/internal/providers"
	"cftracker/internal/services"
	"cftracker/internal/services/interfaces"
	"fmt"
	"net/http"
	"time"
)

type HealthController struct {
	repo      interfaces.RepositoryInterface
	batch     services.BatchServiceInterface
	logger    providers.Logger
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Students      int     `json:"students"`
	BatchRunning  bool    `json:"batch_running"`
	Storage       string  `json:"storage"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		BatchRunning:  hc.batch.IsRunning(),
		Storage:       "connected",
	}
	status := http.StatusOK
	count, err := hc.repo.CountStudents(r.Context())
	if err != nil {
		hc.logger.Errorf(providers.TypeApp, "Health check storage error: %s", err)
		resp.Status = "degraded"
		resp.Storage = "error"
		status = http.StatusServiceUnavailable
	}
	resp.Students = count

	writeJSON(w, status, resp)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(repo interfaces.RepositoryInterface, batch services.BatchServiceInterface, logger providers.Logger) *HealthController {
	return &HealthController{
		repo:      repo,
		batch:     batch,
		logger:    logger,
		startTime: time.Now(),
	}
}
