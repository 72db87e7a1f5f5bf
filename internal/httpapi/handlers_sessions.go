package httpapi

import (
	"net/http"
	"strings"

	"github.com/Gurpartap/horizons/assistant"
)

type messageRequest struct {
	Text string `json:"text"`
}

type selectRequest struct {
	CalendarID string `json:"calendar_id"`
}

func (h *handlers) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if !h.ensureSessions(w) {
		return
	}
	session, err := h.backend.Sessions.Create(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(session.Snapshot()))
}

func (h *handlers) handleSessionQuery(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session.Snapshot()))
}

func (h *handlers) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	reply, err := session.Send(r.Context(), req.Text)
	writeTurn(w, reply, err, newSessionResponse(session.Snapshot()))
}

func (h *handlers) handleSessionConfirm(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := session.Confirm(r.Context())
	if err != nil && result.Message == "" {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{Result: result, Session: newSessionResponse(session.Snapshot())})
}

func (h *handlers) handleSessionSelect(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	reply, err := session.Select(r.Context(), req.CalendarID)
	writeTurn(w, reply, err, newSessionResponse(session.Snapshot()))
}

func (h *handlers) handleSessionDiscard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Discard(r.Context()); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session.Snapshot()))
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*assistant.Session, bool) {
	if !h.ensureSessions(w) {
		return nil, false
	}
	id := strings.TrimSpace(r.PathValue("session_id"))
	if id == "" {
		writeInvalidRequest(w, "session_id is required")
		return nil, false
	}
	session, err := h.backend.Sessions.Get(r.Context(), id)
	if err != nil {
		writeMappedError(w, err)
		return nil, false
	}
	return session, true
}

func (h *handlers) ensureSessions(w http.ResponseWriter) bool {
	if h.backend.Sessions == nil {
		writeMappedError(w, errUnavailable)
		return false
	}
	return true
}
