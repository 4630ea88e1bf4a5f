package handlers

import "net/http"

// HandleHealth reports process liveness. It touches no external dependency,
// so it stays honest while Slack, Postgres, or the vector store are down.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleReady reports readiness for traffic
func HandleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
