package main

import (
	"fmt"
	"strconv"

	"github.com/himanishpuri/FHVAEKit/internal/features"
	"github.com/himanishpuri/FHVAEKit/internal/service"
)

// Upload and framing limits for POST /api/features
const (
	MaxUploadBytes = 50 << 20
	MaxMels        = 256
)

// parseFeatureRequest reads ftype, win_t, hop_t and n_mels form values,
// falling back to the service defaults.
func parseFeatureRequest(get func(string) string) (service.FeatureRequest, error) {
	req := service.DefaultFeatureRequest()
	if v := get("ftype"); v != "" {
		kind, err := features.ParseKind(v)
		if err != nil {
			return req, err
		}
		req.Kind = kind
	}
	var err error
	if req.WinT, err = floatField(get, "win_t", req.WinT); err != nil {
		return req, err
	}
	if req.HopT, err = floatField(get, "hop_t", req.HopT); err != nil {
		return req, err
	}
	if v := get("n_mels"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > MaxMels {
			return req, fmt.Errorf("n_mels must be an integer in [1,%d]", MaxMels)
		}
		req.NMels = n
	}
	if req.WinT <= 0 || req.HopT <= 0 {
		return req, fmt.Errorf("win_t and hop_t must be positive")
	}
	return req, nil
}

func floatField(get func(string) string, key string, def float64) (float64, error) {
	v := get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// FeaturesResponse is the response for POST /api/features
type FeaturesResponse struct {
	FeatType   string      `json:"feat_type"`
	SampleRate int         `json:"sample_rate"`
	DurationS  float64     `json:"duration_s"`
	Frames     int         `json:"frames"`
	Channels   int         `json:"channels"`
	Data       [][]float64 `json:"data,omitempty"`
}

// UtteranceDTO represents a materialized utterance in API responses
type UtteranceDTO struct {
	Seq        int    `json:"seq"`
	UttID      string `json:"utt_id"`
	WavPath    string `json:"wav_path"`
	FeatPath   string `json:"feat_path"`
	FeatType   string `json:"feat_type"`
	Frames     int    `json:"frames"`
	SampleRate int    `json:"sample_rate"`
}

// ManifestResponse is the response for GET /api/manifests/{set}
type ManifestResponse struct {
	Set        string         `json:"set"`
	Utterances []UtteranceDTO `json:"utterances"`
	Count      int            `json:"count"`
}

// CheckpointDTO represents an indexed checkpoint in API responses
type CheckpointDTO struct {
	File      string  `json:"file"`
	RunID     string  `json:"run_id"`
	ModelType string  `json:"model_type"`
	Epoch     int     `json:"epoch"`
	BestEpoch int     `json:"best_epoch"`
	BestValLB float64 `json:"best_val_lb"`
	Best      bool    `json:"best"`
}

// ListCheckpointsResponse is the response for GET /api/checkpoints
type ListCheckpointsResponse struct {
	ExpDir      string          `json:"exp_dir"`
	Checkpoints []CheckpointDTO `json:"checkpoints"`
	Count       int             `json:"count"`
}

// MetricsResponse provides server health and catalog metrics
type MetricsResponse struct {
	Status         string           `json:"status"`
	DatabasePath   string           `json:"database_path"`
	UtteranceCount map[string]int64 `json:"utterance_count"`
	SampleRate     int              `json:"sample_rate"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
