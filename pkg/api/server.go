// Package api exposes model preparation over HTTP. The server wraps the
// same pipeline Runner the CLI uses, so both surfaces share validation
// and error codes.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/modelprep/modelprep/pkg/errors"
	"github.com/modelprep/modelprep/pkg/graph"
	"github.com/modelprep/modelprep/pkg/model"
	"github.com/modelprep/modelprep/pkg/pipeline"
)

// Server handles conversion requests.
type Server struct {
	runner    *pipeline.Runner
	modelsDir string
	zooURL    string
	logger    *log.Logger
	router    chi.Router
}

// NewServer creates a server running conversions through runner.
// Downloads and converted files land under modelsDir; zooURL overrides
// the default model zoo when non-empty.
func NewServer(runner *pipeline.Runner, modelsDir, zooURL string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:    runner,
		modelsDir: modelsDir,
		zooURL:    zooURL,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", s.handleListModels)
		r.Post("/convert", s.handleConvert)
		r.Post("/rewrite", s.handleRewrite)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// modelInfo is the per-model payload of the models listing.
type modelInfo struct {
	Name       string `json:"name"`
	InputName  string `json:"input_name"`
	OutputName string `json:"output_name"`
}

// handleListModels returns the supported model table.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	names := model.Supported()
	infos := make([]modelInfo, 0, len(names))
	for _, name := range names {
		d, err := model.Lookup(name)
		if err != nil {
			continue
		}
		infos = append(infos, modelInfo{
			Name:       d.Name,
			InputName:  d.InputName,
			OutputName: d.OutputName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": infos})
}

// convertRequest is the POST /v1/convert body.
type convertRequest struct {
	Model   string `json:"model"`
	Refresh bool   `json:"refresh,omitempty"`
}

// convertResponse reports a completed conversion.
type convertResponse struct {
	Model         string `json:"model"`
	ConvertedPath string `json:"converted_path"`
	NodesBefore   int    `json:"nodes_before"`
	NodesAfter    int    `json:"nodes_after"`
	CacheHit      bool   `json:"cache_hit"`
	DurationMS    int64  `json:"duration_ms"`
}

// handleConvert runs the full preparation pipeline for the requested
// model.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidConfig, "invalid request body"))
		return
	}
	if req.Model == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidConfig, "model is required"))
		return
	}

	start := time.Now()
	result, err := s.runner.Prepare(r.Context(), pipeline.Options{
		Model:     req.Model,
		ModelsDir: s.modelsDir,
		ZooURL:    s.zooURL,
		Refresh:   req.Refresh,
	})
	if err != nil {
		s.logger.Error("conversion failed", "model", req.Model, "err", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertResponse{
		Model:         result.Model.Name,
		ConvertedPath: result.ConvertedPath,
		NodesBefore:   result.NodesBefore,
		NodesAfter:    result.NodesAfter,
		CacheHit:      result.CacheHit,
		DurationMS:    time.Since(start).Milliseconds(),
	})
}

// handleRewrite applies a model's plugin table to a graph posted as JSON
// and returns the rewritten graph in the same format. The model defaults
// to the single supported network and can be overridden with ?model=.
func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("model")
	if name == "" {
		name = model.SSDInceptionV2
	}
	data, err := model.Lookup(name)
	if err != nil {
		writeError(w, err)
		return
	}

	g, err := graph.ReadGraph(r.Body)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidGraph, err, "decode graph"))
		return
	}

	if err := g.CollapseNamespaces(data.Rules()); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidGraph, err, "collapse namespaces"))
		return
	}
	g.Remove(g.Outputs(), false)

	w.Header().Set("Content-Type", "application/json")
	if err := graph.WriteGraph(g, w); err != nil {
		s.logger.Error("write rewritten graph", "err", err)
	}
}

// errorBody is the error envelope shared by all endpoints.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps error codes onto HTTP statuses and writes the envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := errors.GetCode(err)
	switch code {
	case errors.ErrCodeUnsupportedModel, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidGraph:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeNetwork:
		status = http.StatusBadGateway
	case "":
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, map[string]errorBody{"error": {
		Code:    string(code),
		Message: errors.UserMessage(err),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
