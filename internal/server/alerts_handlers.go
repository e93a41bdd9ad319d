package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clarafin/clara/internal/domain"
)

func (s *Server) handleAlertsList(w http.ResponseWriter, r *http.Request) {
	unackedOnly := r.URL.Query().Get("unacked") == "true"
	alerts := s.alertMonitor.Alerts(unackedOnly)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *Server) handleAlertsClear(w http.ResponseWriter, r *http.Request) {
	s.alertMonitor.ClearAlerts()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleAlertConfigGet(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.alertMonitor.Config())
}

func (s *Server) handleAlertConfigPatch(w http.ResponseWriter, r *http.Request) {
	var patch domain.AlertConfigPatch
	if !s.decodeJSON(w, r, &patch) {
		return
	}
	updated := s.alertMonitor.UpdateConfig(patch)
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAlertStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.alertMonitor.Status())
}

func (s *Server) handleEmailLog(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	logs := s.alertMonitor.EmailLogs(limit)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

func (s *Server) handleAlertAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.alertMonitor.Acknowledge(id) {
		s.writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

type testAlertRequest struct {
	Symbol    string `json:"symbol"`
	AlertType string `json:"alert_type"`
}

func (s *Server) handleTestAlert(w http.ResponseWriter, r *http.Request) {
	var req testAlertRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	alertType := domain.AlertType(req.AlertType)
	if req.AlertType == "" {
		alertType = domain.AlertSellTargetHit
	}

	alert := s.alertMonitor.SendTestAlert(r.Context(), req.Symbol, alertType)
	if alert == nil {
		s.writeError(w, http.StatusNotFound, "symbol not held in portfolio")
		return
	}
	s.writeJSON(w, http.StatusOK, alert)
}

type resetCooldownRequest struct {
	Symbol    string `json:"symbol"`
	AlertType string `json:"alert_type"`
}

func (s *Server) handleResetCooldown(w http.ResponseWriter, r *http.Request) {
	var req resetCooldownRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Symbol == "" || req.AlertType == "" {
		s.writeError(w, http.StatusBadRequest, "symbol and alert_type are required")
		return
	}
	s.alertMonitor.ResetCooldown(req.Symbol, domain.AlertType(req.AlertType))
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
