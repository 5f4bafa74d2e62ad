package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/capgenie/capgenie/internal/export"
	"github.com/capgenie/capgenie/internal/projects"
)

const defaultRunsLimit = 50

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.APIToken, cfg.Logger))

		r.Post("/projects", createProjectHandler(cfg))
		r.Post("/projects/sync", syncProjectHandler(cfg))
		r.Post("/projects/export", exportProjectHandler(cfg))
		r.Post("/projects/sequences", appendSequenceHandler(cfg))
		r.Get("/runs", listRunsHandler(cfg))
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

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Dir == "" {
			WriteError(w, http.StatusBadRequest, "dir is required", "BAD_REQUEST")
			return
		}

		result, err := cfg.Projects.Create(r.Context(), projects.CreateRequest{Dir: req.Dir, Overwrite: req.Overwrite})
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, result)
	}
}

func syncProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SyncProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "BAD_REQUEST")
			return
		}
		if req.Dir == "" {
			WriteError(w, http.StatusBadRequest, "dir is required", "BAD_REQUEST")
			return
		}
		if req.Sequences == nil && req.InputPath == "" {
			WriteError(w, http.StatusBadRequest, "sequences or input_path is required", "BAD_REQUEST")
			return
		}

		result, err := cfg.Projects.Sync(r.Context(), projects.SyncRequest{
			Dir:       req.Dir,
			InputPath: req.InputPath,
			Sequences: req.Sequences,
		})
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func exportProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Dir == "" || req.OutputPath == "" {
			WriteError(w, http.StatusBadRequest, "dir and output_path are required", "BAD_REQUEST")
			return
		}

		format, err := export.ParseFormat(req.Format, req.OutputPath)
		if err != nil {
			WriteServiceError(w, err)
			return
		}

		resp, err := cfg.Projects.Export(r.Context(), projects.ExportRequest{
			Dir:        req.Dir,
			OutputPath: req.OutputPath,
			Format:     format,
			FrameRate:  req.FrameRate,
			Title:      export.SanitizeName(req.Title, 120),
		})
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func appendSequenceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AppendSequenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "BAD_REQUEST")
			return
		}
		if req.Dir == "" {
			WriteError(w, http.StatusBadRequest, "dir is required", "BAD_REQUEST")
			return
		}

		result, err := cfg.Projects.Append(r.Context(), req.Dir, req.Sequence)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, result)
	}
}

func listRunsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRunsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		runs, err := cfg.Projects.Runs(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list runs", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, RunsResponse{Runs: runs})
	}
}
