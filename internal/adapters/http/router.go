package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
	"github.com/m-deepasri/noc-validator/internal/core/ports"
)

type Router struct {
	intake ports.DocumentIntake
	jobs   ports.JobReader
}

func NewRouter(intake ports.DocumentIntake, jobs ports.JobReader) *Router {
	return &Router{intake: intake, jobs: jobs}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/validations", rt.createValidation)
	mux.HandleFunc("/v1/validations/", rt.getValidation)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createValidation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	options := domain.JobOptions{
		Approximation: parseFlag(r.FormValue("approximation"), false),
		Validation:    parseFlag(r.FormValue("validation"), true),
	}

	job, err := rt.intake.Accept(r.Context(), fileHeader.Filename, file, options)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		writeJSON(w, status, map[string]string{
			"error":      err.Error(),
			"error_kind": domain.ErrorKind(err),
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func (rt *Router) getValidation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/validations/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	job, err := rt.jobs.GetByID(r.Context(), id)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		writeJSON(w, status, map[string]string{
			"error":      err.Error(),
			"error_kind": domain.ErrorKind(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func parseFlag(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
