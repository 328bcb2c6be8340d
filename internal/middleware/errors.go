package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError uses the same {"error","message"} body as the API handlers.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{code, http.StatusText(status)})
}
