package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/repo"
)

// CreateJob — POST /jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	jt, err := h.registry.Get(req.JobType)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	key := jt.Key(domain.SplitFullName{Dataset: req.Dataset, Config: req.Config, Split: req.Split})
	if name := missingParam(jt, key); name != "" {
		MissingParameter(w, name)
		return
	}

	job, created, err := h.enqueue(r.Context(), key)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	if created {
		h.logger.Info("job enqueued", "job_id", job.ID, "key", key.String())
		Created(w, JobFromDomain(*job))
		return
	}
	Success(w, JobFromDomain(*job))
}

// GetJob — GET /jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	Success(w, JobFromDomain(*job))
}

// ListJobs — GET /jobs?job_type=&status=&limit=
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.JobFilter{
		Type:   q.Get("job_type"),
		Status: domain.JobStatus(q.Get("status")),
	}

	if filter.Type != "" {
		if _, err := h.registry.Get(filter.Type); err != nil {
			BadRequest(w, err.Error())
			return
		}
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		BadRequest(w, "invalid status: "+string(filter.Status))
		return
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			BadRequest(w, "invalid limit: "+s)
			return
		}
		filter.Limit = limit
	}

	list, err := h.jobs.List(r.Context(), filter)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	resp := make([]JobResponse, 0, len(list))
	for _, j := range list {
		resp = append(resp, JobFromDomain(j))
	}
	List(w, resp, len(resp))
}

// CancelJob — DELETE /jobs/{id}
// Отменить можно только waiting-задачу.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	err := h.jobs.Cancel(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	h.logger.Info("job cancelled", "job_id", id)
	NoContent(w)
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job ID")
		return uuid.Nil, false
	}
	return id, true
}
