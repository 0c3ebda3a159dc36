package http

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, log logrus.FieldLogger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, log logrus.FieldLogger, status int, code, message string) {
	respondErrorDetails(w, log, status, code, message, "")
}

func respondErrorDetails(w http.ResponseWriter, log logrus.FieldLogger, status int, code, message, details string) {
	respondJSON(w, log, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// respondCartUnavailable answers when the visitor's cart could not be read.
func respondCartUnavailable(w http.ResponseWriter, log logrus.FieldLogger) {
	respondError(w, log, http.StatusServiceUnavailable, "cart_unavailable", "cart storage temporarily unavailable")
}
