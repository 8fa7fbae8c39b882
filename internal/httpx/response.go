package httpx

import (
	"encoding/json"
	"log"
	"net/http"

	"cipherchat/internal/apperr"
)

// JSON writes v as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err's client-safe message. Internal failures are logged
// in full here and reported generically.
func Error(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	JSON(w, status, map[string]string{"error": apperr.Public(err)})
}
