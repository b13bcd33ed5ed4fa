package api

import (
	"encoding/json"
	"net/http"

	"github.com/ankityadav/statusboard/internal/api/middleware"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// JSON writes data with the given status. Responses are never cacheable
// since every status read reflects a fresh probe cycle.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, status, errorResponse{
		Error:     message,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusBadRequest, message)
}

// InternalError writes a generic 500. The cause is logged by the caller and
// never returned to the client.
func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusInternalServerError, message)
}
