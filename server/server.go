package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"agentic_research_writer/pipeline"
	"agentic_research_writer/publisher"
)

// PublishFunc pushes a finished draft to WeChat and returns the draft media_id.
type PublishFunc func(ctx context.Context, params publisher.PublishParams) (string, error)

// Options wires the server's collaborators. Only Orchestrator is required.
type Options struct {
	Orchestrator *pipeline.Orchestrator
	// Publish is nil when WeChat publishing is not configured.
	Publish    PublishFunc
	Recorder   HTTPRecorder
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
	RunTimeout time.Duration
}

type Server struct {
	orch       *pipeline.Orchestrator
	publish    PublishFunc
	recorder   HTTPRecorder
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	runTimeout time.Duration
	store      *runStore
	upgrader   websocket.Upgrader
}

func New(opts Options) (*Server, error) {
	if opts.Orchestrator == nil {
		return nil, errors.New("orchestrator required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	timeout := opts.RunTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Server{
		orch:       opts.Orchestrator,
		publish:    opts.Publish,
		recorder:   opts.Recorder,
		gatherer:   gatherer,
		logger:     logger.With(zap.String("component", "server")),
		runTimeout: timeout,
		store:      newStore(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/runs", s.handleRunCreate)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRunGet)
	mux.HandleFunc("POST /api/runs/{id}/publish", s.handleRunPublish)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return logMiddleware(s.logger, s.recorder, mux)
}

// --- Handlers ---

type runCreateReq struct {
	Topic string `json:"topic"`
}

type errorResp struct {
	RunID    string         `json:"run_id,omitempty"`
	Error    string         `json:"error"`
	Stage    pipeline.Stage `json:"stage,omitempty"`
	Messages []string       `json:"messages,omitempty"`
}

func (s *Server) handleRunCreate(w http.ResponseWriter, r *http.Request) {
	var req runCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: pipeline.ErrEmptyTopic.Error()})
		return
	}

	run := s.store.create(topic)
	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()
	res, err := s.orch.Run(ctx, topic, func(e pipeline.Event) {
		s.store.progress(run.ID, e)
	})
	run = s.store.finish(run.ID, res, err)
	if err != nil {
		s.logger.Warn("run failed", zap.String("run_id", run.ID), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResp{
			RunID:    run.ID,
			Error:    err.Error(),
			Stage:    run.FailedStage,
			Messages: run.State.Messages,
		})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunGet(w http.ResponseWriter, r *http.Request) {
	run, ok := s.store.get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type publishReq struct {
	CoverPath string `json:"cover_path"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Digest    string `json:"digest"`
}

type publishResp struct {
	RunID   string `json:"run_id"`
	MediaID string `json:"media_id"`
}

func (s *Server) handleRunPublish(w http.ResponseWriter, r *http.Request) {
	if s.publish == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp{Error: publisher.ErrNotConfigured.Error()})
		return
	}
	id := r.PathValue("id")
	run, ok := s.store.get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "run not found"})
		return
	}
	if run.Status != RunAccepted || run.FinalDraft == "" {
		writeJSON(w, http.StatusConflict, errorResp{RunID: id, Error: "run has no accepted draft"})
		return
	}
	var req publishReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}

	mediaID, err := s.publish(r.Context(), publisher.PublishParams{
		Markdown:  run.FinalDraft,
		Title:     req.Title,
		CoverPath: req.CoverPath,
		Author:    req.Author,
		Digest:    req.Digest,
	})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp{RunID: id, Error: err.Error()})
		return
	}
	s.store.update(id, func(r *Run) { r.MediaID = mediaID })
	writeJSON(w, http.StatusOK, publishResp{RunID: id, MediaID: mediaID})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
