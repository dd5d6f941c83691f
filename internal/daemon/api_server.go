package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gistcast/internal/config"
	"gistcast/internal/logging"
	"gistcast/internal/queue"
)

const maxJobBodyBytes = 4 << 20

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, errors.New("api server requires config and daemon")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		bind = "127.0.0.1:7319"
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logging.WithComponent(logger, "api"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", authMiddleware(srv.token, srv.handleHealth))
	mux.HandleFunc("/api/status", authMiddleware(srv.token, srv.handleStatus))
	mux.HandleFunc("/api/queue", authMiddleware(srv.token, srv.handleQueue))
	mux.HandleFunc("/api/queue/", authMiddleware(srv.token, srv.handleQueueJob))
	mux.HandleFunc("/api/jobs", authMiddleware(srv.token, srv.handleAddJob))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type jobView struct {
	ID            int64   `json:"id"`
	SubjectID     string  `json:"subject_id,omitempty"`
	Status        string  `json:"status"`
	ProgressStage string  `json:"progress_stage,omitempty"`
	ClaimedBy     string  `json:"claimed_by,omitempty"`
	ClaimedAt     *string `json:"claimed_at,omitempty"`
	TargetMinutes int     `json:"target_minutes,omitempty"`
	ArtifactURL   string  `json:"artifact_url,omitempty"`
	ArtifactBytes int64   `json:"artifact_bytes,omitempty"`
	Sources       string  `json:"sources,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func newJobView(job *queue.Job) jobView {
	view := jobView{
		ID:            job.ID,
		SubjectID:     job.SubjectID,
		Status:        string(job.Status),
		ProgressStage: job.ProgressStage,
		ClaimedBy:     job.ClaimedBy,
		TargetMinutes: job.TargetMinutes,
		ArtifactURL:   job.ArtifactURL,
		ArtifactBytes: job.ArtifactBytes,
		Sources:       job.SourcesJSON,
		ErrorMessage:  job.ErrorMessage,
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     job.UpdatedAt.Format(time.RFC3339),
	}
	if job.ClaimedAt != nil {
		stamp := job.ClaimedAt.Format(time.RFC3339)
		view.ClaimedAt = &stamp
	}
	return view
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health, err := s.daemon.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "queue health unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"queue":  health,
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var statuses []queue.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, ok := queue.ParseStatus(part)
			if !ok {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", part))
				return
			}
			statuses = append(statuses, status)
		}
	}

	jobs, err := s.daemon.ListQueue(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "queue list failed")
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

func (s *apiServer) handleQueueJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idText := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "queue read failed")
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, newJobView(job))
}

type addJobRequest struct {
	SubjectID     string `json:"subject_id"`
	Document      string `json:"document"`
	TargetMinutes int    `json:"target_minutes"`
}

func (s *apiServer) handleAddJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxJobBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read request body")
		return
	}
	var req addJobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Document) == "" {
		s.writeError(w, http.StatusBadRequest, "document is required")
		return
	}

	job, err := s.daemon.Enqueue(r.Context(), req.SubjectID, req.Document, queue.Params{
		TargetLengthMinutes: req.TargetMinutes,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	s.logger.Info("job accepted",
		slog.Int64(logging.FieldJobID, job.ID),
		slog.String("subject", job.SubjectID))
	s.writeJSON(w, http.StatusAccepted, newJobView(job))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write api response failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
