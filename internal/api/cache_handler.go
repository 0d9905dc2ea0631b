package api

import (
	"errors"
	"net/http"

	"github.com/shaiso/dspreview/internal/apperr"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/jobs"
	"github.com/shaiso/dspreview/internal/repo"
)

const responseNotReadyMessage = "The response is not ready yet. Please retry later."

// CachedResponse — GET <job_type>?dataset=&config=&split=
//
// Отдаёт запись кэша для типа задачи. При промахе ставит задачу
// в очередь и отвечает ResponseNotReady.
func (h *Handler) CachedResponse(jt jobs.Type) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		key := jt.Key(domain.SplitFullName{
			Dataset: q.Get("dataset"),
			Config:  q.Get("config"),
			Split:   q.Get("split"),
		})
		if name := missingParam(jt, key); name != "" {
			MissingParameter(w, name)
			return
		}

		entry, err := h.cache.Get(r.Context(), key)
		if errors.Is(err, repo.ErrNotFound) {
			if _, _, err := h.enqueue(r.Context(), key); err != nil {
				InternalError(w, h.logger, err)
				return
			}
			CacheControl(w, h.maxAgeShort)
			AppError(w, apperr.New(apperr.CodeResponseNotReady, responseNotReadyMessage, nil))
			return
		}
		if err != nil {
			InternalError(w, h.logger, err)
			return
		}

		// Запись старой версии отдаётся, пока идёт пересчёт.
		if entry.Version != jt.Version {
			if _, _, err := h.enqueue(r.Context(), key); err != nil {
				h.logger.Warn("failed to enqueue refresh", "key", key.String(), "error", err)
			}
		}

		if entry.IsError() {
			CacheControl(w, h.maxAgeShort)
			ErrorRecord(w, *entry.Error)
			return
		}

		CacheControl(w, h.maxAgeLong)
		RawJSON(w, http.StatusOK, entry.Content)
	})
}

// missingParam возвращает имя первого обязательного параметра, которого нет.
func missingParam(jt jobs.Type, key domain.JobKey) string {
	switch {
	case key.Dataset == "":
		return "dataset"
	case jt.Level >= jobs.LevelConfig && key.Config == "":
		return "config"
	case jt.Level >= jobs.LevelSplit && key.Split == "":
		return "split"
	}
	return ""
}
