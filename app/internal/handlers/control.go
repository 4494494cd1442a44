package handlers

import (
	"context"
	"net/http"
	"time"

	"netwatch/app/internal/models"
	"netwatch/app/internal/speedtest"
)

// MonitorController starts and stops the ping supervisor.
type MonitorController interface {
	Start() error
	Stop()
	Status() models.MonitoringStatus
}

// SpeedtestRunner triggers on-demand bandwidth probes.
type SpeedtestRunner interface {
	Run(ctx context.Context) speedtest.Result
	Running() bool
}

// HandleMonitoringStart starts ping monitoring; a no-op when running
func HandleMonitoringStart(m MonitorController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.Start(); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":  err.Error(),
				"status": m.Status(),
			})
			return
		}
		writeJSON(w, http.StatusOK, m.Status())
	}
}

// HandleMonitoringStop stops ping monitoring; safe when already stopped
func HandleMonitoringStop(m MonitorController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.Stop()
		writeJSON(w, http.StatusOK, m.Status())
	}
}

// HandleMonitoringStatus reports whether the probe is running
func HandleMonitoringStatus(m MonitorController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.Status())
	}
}

// HandleSpeedtestRun runs a speedtest and waits for the result. The probe is
// detached from the request so a client disconnect does not abort it.
func HandleSpeedtestRun(s SpeedtestRunner, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
		defer cancel()

		res := s.Run(ctx)
		switch {
		case res.Success:
			writeJSON(w, http.StatusOK, res)
		case res.Error == speedtest.ErrAlreadyRunning.Error():
			writeJSON(w, http.StatusConflict, res)
		default:
			writeJSON(w, http.StatusBadGateway, res)
		}
	}
}

// HandleSpeedtestStatus reports whether a speedtest is in flight
func HandleSpeedtestStatus(s SpeedtestRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"running": s.Running()})
	}
}
