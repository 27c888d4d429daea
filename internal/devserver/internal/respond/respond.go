package respond

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

const (
	CODE_BAD_GATEWAY = 50200
	CODE_NOT_FOUND   = 40400
)

// Envelope mirrors the backend response shape so the front end handles dev
// server errors like any other failure.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func ErrorWithText(w http.ResponseWriter, log logrus.FieldLogger, httpCode, appCode int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	JSON(w, log, Envelope{Code: appCode, Message: text})
}

func JSON(w http.ResponseWriter, log logrus.FieldLogger, v interface{}) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}
