package api

import (
	"net/http"
)

// QueueStats — GET /queue
func (h *Handler) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Snapshot(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	CacheControl(w, h.maxAgeShort)
	JSON(w, http.StatusOK, QueueFromDomain(stats))
}
