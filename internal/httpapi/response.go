package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/assistant"
	"github.com/Gurpartap/horizons/conversation"
	"github.com/Gurpartap/horizons/extraction"
	"github.com/Gurpartap/horizons/internal/policyauth"
	"github.com/Gurpartap/horizons/internal/policylimit"
	"github.com/Gurpartap/horizons/planexec"
	"github.com/Gurpartap/horizons/sessionstore"
)

const (
	errorCodeUnauthorized   = "unauthorized"
	errorCodePolicyRejected = "policy_rejected"
	errorCodeInvalidRequest = "invalid_request"
	errorCodeNotFound       = "not_found"
	errorCodeConflict       = "conflict"
	errorCodeForbidden      = "forbidden"
	errorCodeUnavailable    = "unavailable"
	errorCodeRuntime        = "runtime_error"
)

var (
	errInvalidRequest = errors.New("invalid request")
	errUnavailable    = errors.New("backend is not configured")
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

// turnResponse carries the reply shown to the user. Error is set when the
// turn failed but still produced the fixed failure reply.
type turnResponse struct {
	Reply   agent.Message    `json:"reply"`
	Error   string           `json:"error,omitempty"`
	Session *sessionResponse `json:"session,omitempty"`
}

type planResponse struct {
	Result  planexec.Result  `json:"result"`
	Session *sessionResponse `json:"session,omitempty"`
}

type sessionResponse struct {
	ID          string          `json:"id"`
	Version     int64           `json:"version"`
	History     []agent.Message `json:"history"`
	PendingPlan *agent.Plan     `json:"pending_plan,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func newSessionResponse(snapshot sessionstore.Snapshot) *sessionResponse {
	history := snapshot.State.History
	if history == nil {
		history = []agent.Message{}
	}
	return &sessionResponse{
		ID:          snapshot.ID,
		Version:     snapshot.Version,
		History:     history,
		PendingPlan: snapshot.State.PendingPlan,
		CreatedAt:   snapshot.CreatedAt,
		UpdatedAt:   snapshot.UpdatedAt,
	}
}

// writeTurn answers a turn. A reply produced alongside an error is still a
// successful response; an error without a reply is mapped.
func writeTurn(w http.ResponseWriter, reply agent.Message, err error, session *sessionResponse) {
	if reply.Role == "" {
		if err == nil {
			err = errors.New("turn produced no reply")
		}
		writeMappedError(w, err)
		return
	}
	response := turnResponse{Reply: reply, Session: session}
	if err != nil {
		response.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code := mapError(err)
	writeError(w, status, code, err.Error())
}

func writeInvalidRequest(w http.ResponseWriter, message string) {
	writeMappedError(w, invalidRequestError(message))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorResponse{
		Error: apiError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return invalidRequestError("request body is required")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("%w: request body exceeds %d bytes", policylimit.ErrRequestTooLarge, maxBytesErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return invalidRequestError("request body is required")
		}
		return invalidRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invalidRequestError("request body must contain exactly one JSON object")
	}

	return nil
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, policyauth.ErrUnauthorized):
		return http.StatusUnauthorized, errorCodeUnauthorized
	case errors.Is(err, policylimit.ErrRequestTooLarge):
		return http.StatusRequestEntityTooLarge, errorCodePolicyRejected
	case errors.Is(err, policylimit.ErrRequestTimedOut):
		return http.StatusRequestTimeout, errorCodePolicyRejected
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable, errorCodeUnavailable
	case errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, errorCodeInvalidRequest
	case errors.Is(err, sessionstore.ErrSessionNotFound):
		return http.StatusNotFound, errorCodeNotFound
	case errors.Is(err, assistant.ErrTurnInFlight),
		errors.Is(err, sessionstore.ErrSessionVersionConflict),
		errors.Is(err, conversation.ErrNoPendingPlan):
		return http.StatusConflict, errorCodeConflict
	case errors.Is(err, agent.ErrPlanNotExecutable):
		return http.StatusForbidden, errorCodeForbidden
	case errors.Is(err, assistant.ErrMessageEmpty),
		errors.Is(err, conversation.ErrSelectionRequired),
		errors.Is(err, conversation.ErrNotSelectionPlan),
		errors.Is(err, agent.ErrHistoryEmpty),
		errors.Is(err, agent.ErrHistoryStartsWithoutUser),
		errors.Is(err, agent.ErrHistoryEndsWithModel),
		errors.Is(err, agent.ErrMessageInvalid),
		errors.Is(err, agent.ErrMalformedPlan),
		errors.Is(err, extraction.ErrDocumentEmpty),
		errors.Is(err, sessionstore.ErrSessionInvalid),
		errors.Is(err, agent.ErrContextNil):
		return http.StatusBadRequest, errorCodeInvalidRequest
	case errors.Is(err, context.Canceled):
		return http.StatusInternalServerError, errorCodeRuntime
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, errorCodePolicyRejected
	default:
		return http.StatusInternalServerError, errorCodeRuntime
	}
}

func invalidRequestError(message string) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, message)
}
