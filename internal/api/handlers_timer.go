package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/storage"
)

type durationRequest struct {
	Minutes int `json:"minutes"`
}

type autoAdvanceRequest struct {
	Enabled *bool `json:"enabled"`
}

type historyResponse struct {
	Today  map[model.Mode]int     `json:"today"`
	Recent []storage.HistoryEntry `json:"recent"`
}

func (h *Handlers) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) start(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Start()
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) pause(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Pause()
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) reset(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Reset()
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) switchMode(w http.ResponseWriter, r *http.Request) {
	mode, err := modeParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.ctrl.SwitchMode(mode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) updateDuration(w http.ResponseWriter, r *http.Request) {
	mode, err := modeParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req durationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("invalid JSON: "+err.Error()))
		return
	}
	if err := h.ctrl.UpdateDuration(mode, req.Minutes); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) setAutoAdvance(w http.ResponseWriter, r *http.Request) {
	var req autoAdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("invalid JSON: "+err.Error()))
		return
	}
	if req.Enabled == nil {
		writeError(w, badRequest("missing enabled"))
		return
	}
	h.ctrl.SetAutoAdvance(*req.Enabled)
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

// getSnapshot returns the state in the persisted record layout.
func (h *Handlers) getSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := storage.EncodeJSON(h.ctrl.Snapshot())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) getHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, &AppError{Status: http.StatusNotFound, Message: "history disabled"})
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, badRequest("invalid limit parameter"))
			return
		}
		limit = parsed
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	counts, err := h.history.CountsSince(r.Context(), today)
	if err != nil {
		writeError(w, err)
		return
	}
	recent, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if recent == nil {
		recent = []storage.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Today: counts, Recent: recent})
}
