package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/himanishpuri/FHVAEKit/internal/manifest"
	"github.com/himanishpuri/FHVAEKit/internal/service"
	"github.com/himanishpuri/FHVAEKit/internal/storage"
	"github.com/himanishpuri/FHVAEKit/pkg/logger"
)

// Backend is the part of the service the HTTP layer uses.
type Backend interface {
	Features(ctx context.Context, path string, req service.FeatureRequest) (*service.FeatureResult, error)
	ListUtterances(set string) ([]storage.Utterance, error)
	CountUtterances() (map[string]int64, error)
	IndexCheckpoints(expDir string) ([]storage.Checkpoint, error)
}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service Backend
	config  *ServerConfig
	log     logger.Interface
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	SampleRate     int
	DatasetDir     string
	ExpRoot        string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(backend Backend, config *ServerConfig) *Server {
	return &Server{
		service: backend,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "FHVAEKit API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":      "GET /health",
			"metrics":     "GET /api/health/metrics",
			"features":    "POST /api/features",
			"manifest":    "GET /api/manifests/{set}",
			"checkpoints": "GET /api/checkpoints?exp_dir=",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.CountUtterances()
	if err != nil {
		s.log.Errorf("Failed to count utterances: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:         "healthy",
		DatabasePath:   s.config.DBPath,
		UtteranceCount: counts,
		SampleRate:     s.config.SampleRate,
	})
}

// handleFeatures handles POST /api/features
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	req, err := parseFeatureRequest(r.FormValue)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.log.Errorf("Failed to get audio file: %v", err)
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	tempFile := filepath.Join(s.config.TempDir, fmt.Sprintf("upload_%d_%s", time.Now().UnixNano(), filepath.Base(header.Filename)))
	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer out.Close()
	defer os.Remove(tempFile)

	if _, err := io.Copy(out, file); err != nil {
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	out.Close()

	s.log.Infof("Computing %s features for uploaded file: %s", req.Kind, header.Filename)
	res, err := s.service.Features(ctx, tempFile, req)
	if err != nil {
		s.log.Errorf("Failed to compute features: %v", err)
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to compute features: %v", err))
		return
	}

	resp := FeaturesResponse{
		FeatType:   string(res.Kind),
		SampleRate: res.SampleRate,
		DurationS:  res.Duration,
		Frames:     res.Frames,
		Channels:   res.Channels,
	}
	if include, _ := strconv.ParseBool(r.FormValue("include_data")); include {
		resp.Data = rows(res.Data)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

// handleManifest handles GET /api/manifests/{set}
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	set := strings.TrimPrefix(r.URL.Path, "/api/manifests/")
	if set == "" || strings.ContainsAny(set, "/\\") || set == ".." {
		s.respondError(w, http.StatusBadRequest, "Set name required")
		return
	}

	utts, err := s.service.ListUtterances(set)
	if err != nil {
		s.log.Errorf("Failed to list utterances: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve manifest")
		return
	}

	dtos := make([]UtteranceDTO, 0, len(utts))
	for _, u := range utts {
		dtos = append(dtos, UtteranceDTO{
			Seq:        u.Seq,
			UttID:      u.UttID,
			WavPath:    u.WavPath,
			FeatPath:   u.FeatPath,
			FeatType:   u.FeatType,
			Frames:     u.Frames,
			SampleRate: u.SampleRate,
		})
	}

	if len(dtos) == 0 && s.config.DatasetDir != "" {
		dtos, err = readManifests(filepath.Join(s.config.DatasetDir, set))
		if errors.Is(err, fs.ErrNotExist) {
			s.respondError(w, http.StatusNotFound, fmt.Sprintf("No manifest for set %q", set))
			return
		}
		if err != nil {
			s.log.Errorf("Failed to read manifests: %v", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to read manifest files")
			return
		}
	}

	s.respondJSON(w, http.StatusOK, ManifestResponse{
		Set:        set,
		Utterances: dtos,
		Count:      len(dtos),
	})
}

// readManifests joins feats.scp and len.scp of a materialized partition that
// was never recorded in the catalog.
func readManifests(setDir string) ([]UtteranceDTO, error) {
	feats, err := manifest.Read(filepath.Join(setDir, manifest.FeatsScp))
	if err != nil {
		return nil, err
	}
	lens, err := manifest.Read(filepath.Join(setDir, manifest.LenScp))
	if err != nil {
		return nil, err
	}
	frames := make(map[string]int, len(lens))
	for _, e := range lens {
		n, err := strconv.Atoi(e.Value)
		if err != nil {
			return nil, fmt.Errorf("len.scp %s: %w", e.ID, err)
		}
		frames[e.ID] = n
	}
	dtos := make([]UtteranceDTO, len(feats))
	for i, e := range feats {
		dtos[i] = UtteranceDTO{Seq: i, UttID: e.ID, FeatPath: e.Value, Frames: frames[e.ID]}
	}
	return dtos, nil
}

// handleCheckpoints handles GET /api/checkpoints?exp_dir=
func (s *Server) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if s.config.ExpRoot == "" {
		s.respondError(w, http.StatusNotFound, "No experiments root configured")
		return
	}
	name := r.URL.Query().Get("exp_dir")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "exp_dir query parameter is required")
		return
	}
	// exp_dir names a directory under the experiments root, never a raw path.
	if !filepath.IsLocal(name) {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("exp_dir %q must be relative to the experiments root", name))
		return
	}
	expDir := filepath.Join(s.config.ExpRoot, name)
	if info, err := os.Stat(expDir); err != nil || !info.IsDir() {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Experiment directory %q not found", name))
		return
	}

	rows, err := s.service.IndexCheckpoints(expDir)
	if err != nil {
		s.log.Errorf("Failed to index checkpoints: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to index checkpoints")
		return
	}

	dtos := make([]CheckpointDTO, len(rows))
	for i, c := range rows {
		dtos[i] = CheckpointDTO{
			File:      filepath.Base(c.Path),
			RunID:     c.RunID,
			ModelType: c.ModelType,
			Epoch:     c.Epoch,
			BestEpoch: c.BestEpoch,
			BestValLB: c.BestValLB,
			Best:      c.Best,
		}
	}
	s.respondJSON(w, http.StatusOK, ListCheckpointsResponse{
		ExpDir:      expDir,
		Checkpoints: dtos,
		Count:       len(dtos),
	})
}
