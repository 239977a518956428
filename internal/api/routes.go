package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slidex/slidex-agent/internal/jobs"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(LoopbackGuard())
	r.Use(CORS(cfg.AllowedOrigins))

	r.Get("/health", healthHandler(cfg))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/settings", getSettingsHandler(cfg))
		r.Put("/settings", putSettingsHandler(cfg))
		r.Post("/extract", extractHandler(cfg))
		r.Post("/export", exportHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
		r.Get("/sessions", listSessionsHandler(cfg))
		r.Get("/sessions/{id}", getSessionHandler(cfg))
		r.Get("/sessions/{id}/preview", previewHandler(cfg))
		r.Get("/sessions/{id}/artifact", artifactHandler(cfg))
		if cfg.Hub != nil {
			r.Get("/events", cfg.Hub.ServeWS)
		}
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resp := StatusResponse{State: "idle"}
		if cfg.Runner != nil {
			st := cfg.Runner.Status()
			resp.State = st.State
			resp.LastError = st.LastError
			resp.LastOutput = st.LastOut
			if st.ActiveJob != nil {
				job := JobToResponse(st.ActiveJob)
				resp.ActiveJob = &job
			}
		}

		if cfg.Repository != nil {
			if pending, err := cfg.Repository.ListPendingJobs(ctx); err == nil {
				resp.JobsPending = len(pending)
			}
		}

		if cfg.Doctor != nil {
			caps, err := cfg.Doctor.Get(ctx)
			if err == nil && caps != nil {
				resp.Extractor = &ExtractorResponse{
					Path:    caps.Path,
					Version: caps.Version,
				}
				if !caps.ProbedAt.IsZero() {
					resp.Extractor.LastProbeAt = caps.ProbedAt.Format(time.RFC3339)
				}
			}
		}

		if cfg.Hub != nil {
			resp.Subscribers = cfg.Hub.SubscriberCount()
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func getSettingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := cfg.Settings.Get(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to read settings", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, st)
	}
}

func putSettingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch jobs.SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		st, err := cfg.Settings.Update(r.Context(), patch)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to save settings", "INTERNAL_ERROR")
			return
		}
		if patch.FFmpegPath != nil && cfg.Doctor != nil {
			cfg.Doctor.Invalidate()
		}
		WriteJSON(w, http.StatusOK, st)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := cfg.Service.ListJobs(r.Context(), queryLimit(r))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(list))}
		for i, j := range list {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Service.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > 500 {
		return 50
	}
	return n
}
