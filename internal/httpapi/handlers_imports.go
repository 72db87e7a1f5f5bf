package httpapi

import "net/http"

type importRequest struct {
	Document string `json:"document"`
}

func (h *handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	if h.backend.Importer == nil {
		writeMappedError(w, errUnavailable)
		return
	}
	var req importRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	report, err := h.backend.Importer.Run(r.Context(), req.Document)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
