package api

import (
	"net/http"
)

// Healthcheck — GET /healthcheck
// Тело ответа ровно "ok", без перевода строки и JSON-обёртки.
func (h *Handler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.logger.Error("healthcheck failed", "error", err)
			http.Error(w, "store unavailable", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
