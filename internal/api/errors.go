// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/vastplay/internal/validate"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error  string           `json:"error"`
	Fields []validate.Error `json:"fields,omitempty"`
	Code   int              `json:"code,omitempty"`
	Kind   string           `json:"kind,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err with the given status code
func writeError(w http.ResponseWriter, code int, err error) {
	resp := errorResponse{Error: err.Error()}
	var verr validate.ValidationError
	if errors.As(err, &verr) {
		resp.Error = "invalid request"
		resp.Fields = verr.Errors()
	}
	writeJSON(w, code, resp)
}

// writeNotFound writes a 404 Not Found response
func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}

// writeServiceUnavailable writes a 503 Service Unavailable response
func writeServiceUnavailable(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
}
