// Package respond writes the JSON envelopes shared by handlers and middleware.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
)

// Envelope is the body of every API response
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON sends v with the given status code
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK sends a success envelope
func OK(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Error maps err to its status and sends the error envelope. Internal errors are logged
// with full detail while the client sees a generic message.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal && logger != nil {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	JSON(w, kind.Status(), Envelope{Success: false, Message: apperr.Message(err)})
}
