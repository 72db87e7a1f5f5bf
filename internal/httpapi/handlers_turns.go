package httpapi

import (
	"net/http"

	"github.com/Gurpartap/horizons/agent"
)

type turnRequest struct {
	History []agent.Message `json:"history"`
}

type continueRequest struct {
	History            []agent.Message `json:"history"`
	Plan               *agent.Plan     `json:"plan"`
	SelectedCalendarID string          `json:"selected_calendar_id"`
}

type executeRequest struct {
	Plan *agent.Plan `json:"plan"`
}

func (h *handlers) handleTurn(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAssistant(w) {
		return
	}
	var req turnRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	reply, err := h.backend.Assistant.RunTurn(r.Context(), req.History)
	writeTurn(w, reply, err, nil)
}

func (h *handlers) handleTurnContinue(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAssistant(w) {
		return
	}
	var req continueRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	if req.Plan == nil {
		writeInvalidRequest(w, "plan is required")
		return
	}
	reply, err := h.backend.Assistant.ContinueAfterSelection(r.Context(), req.History, *req.Plan, req.SelectedCalendarID)
	writeTurn(w, reply, err, nil)
}

func (h *handlers) handlePlanExecute(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAssistant(w) {
		return
	}
	var req executeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	if req.Plan == nil {
		writeInvalidRequest(w, "plan is required")
		return
	}
	result := h.backend.Assistant.ExecutePlan(r.Context(), *req.Plan)
	if result.Error != nil && len(result.Items) == 0 && !result.Success {
		writeMappedError(w, result.Error)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{Result: result})
}

func (h *handlers) ensureAssistant(w http.ResponseWriter) bool {
	if h.backend.Assistant == nil {
		writeMappedError(w, errUnavailable)
		return false
	}
	return true
}
