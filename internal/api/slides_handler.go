package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/slidex/slidex-agent/internal/jobs"
	"github.com/slidex/slidex-agent/internal/preview"
)

func extractHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExtractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		job, session, err := cfg.Service.SubmitExtract(r.Context(), jobs.ExtractInput{
			VideoPath:  req.VideoPath,
			Threshold:  req.Threshold,
			Timestamps: req.Timestamps,
			OutputDir:  req.OutputDir,
		})
		if err != nil {
			WriteServiceError(w, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, ExtractResponse{
			JobID:     job.ID,
			SessionID: session.ID,
			OutputDir: session.OutputDir,
		})
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.SessionID == "" && req.SourceDir == "" {
			WriteError(w, http.StatusBadRequest, "session_id or source_dir is required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Service.SubmitExport(r.Context(), jobs.ExportInput{
			SessionID:    req.SessionID,
			SourceDir:    req.SourceDir,
			Format:       req.Format,
			DeleteSource: req.DeleteSource,
		})
		if err != nil {
			WriteServiceError(w, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, ExportResponse{JobID: job.ID})
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := cfg.Service.ListSessions(r.Context(), queryLimit(r))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list sessions", "INTERNAL_ERROR")
			return
		}

		resp := SessionsResponse{Sessions: make([]SessionResponse, len(list))}
		for i, s := range list {
			resp.Sessions[i] = SessionToResponse(s, nil)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, frames, err := cfg.Service.GetSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteServiceError(w, err)
			return
		}

		resp := SessionToResponse(session, frames)
		if cfg.Preview != nil {
			if st, ok := cfg.Preview.State(session.OutputDir); ok {
				resp.Preview = &st
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// previewHandler serves the first-frame thumbnail. A session whose
// directory has not been observed since start-up is observed on demand.
func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Preview == nil {
			WriteError(w, http.StatusNotFound, "preview unavailable", "NOT_FOUND")
			return
		}

		session, frames, err := cfg.Service.GetSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteServiceError(w, err)
			return
		}

		if _, ok := cfg.Preview.State(session.OutputDir); !ok {
			cfg.Preview.DirectoryChanged(session.OutputDir, frames)
		}
		thumb, err := cfg.Preview.Thumbnail(session.OutputDir)
		if errors.Is(err, preview.ErrNoPreview) {
			WriteError(w, http.StatusNotFound, "no preview", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, thumb)
	}
}

func artifactHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := cfg.Service.GetSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		if session.ArtifactPath == "" {
			WriteError(w, http.StatusNotFound, "session has no exported document", "NOT_FOUND")
			return
		}
		if _, err := os.Stat(session.ArtifactPath); err != nil {
			WriteError(w, http.StatusNotFound, "exported document is missing", "NOT_FOUND")
			return
		}

		w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(session.ArtifactPath)+`"`)
		http.ServeFile(w, r, session.ArtifactPath)
	}
}

