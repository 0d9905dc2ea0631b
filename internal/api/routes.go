package api

import (
	"net/http"

	"github.com/shaiso/dspreview/internal/jobs"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
		Metrics(h.metrics),
	)

	// Служебные
	mux.Handle("GET /healthcheck", chain(http.HandlerFunc(h.Healthcheck)))
	mux.Handle("GET /queue", chain(http.HandlerFunc(h.QueueStats)))

	// Чтение кэша: по маршруту на каждый зарегистрированный тип задачи
	for _, name := range h.registry.Names() {
		jt, _ := h.registry.Get(name)
		mux.Handle("GET "+jt.Name, chain(h.CachedResponse(jt)))
	}

	// Задачи
	mux.Handle("GET /jobs", chain(http.HandlerFunc(h.ListJobs)))
	mux.Handle("POST /jobs", chain(http.HandlerFunc(h.CreateJob)))
	mux.Handle("GET /jobs/{id}", chain(http.HandlerFunc(h.GetJob)))
	mux.Handle("DELETE /jobs/{id}", chain(http.HandlerFunc(h.CancelJob)))
}

// queueSections — секции ответа /queue: имя секции → тип задачи.
var queueSections = map[string]string{
	"datasets": jobs.SplitsType,
	"splits":   jobs.FirstRowsType,
}
