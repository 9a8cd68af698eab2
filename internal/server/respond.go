package server

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}

func newErrResp(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// Respond sends v as JSON with the given status code.
func Respond(w http.ResponseWriter, code int, v any) {
	respondAs(w, "application/json", code, v)
}

func respondAs(w http.ResponseWriter, contentType string, code int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}
