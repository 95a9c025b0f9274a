package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/himanishpuri/FHVAEKit/internal/audio"
	"github.com/himanishpuri/FHVAEKit/internal/checkpoint"
	"github.com/himanishpuri/FHVAEKit/internal/features"
	"github.com/himanishpuri/FHVAEKit/internal/prepare"
	"github.com/himanishpuri/FHVAEKit/internal/storage"
	"github.com/himanishpuri/FHVAEKit/pkg/logger"
)

// FHVAEService ties the feature pipeline, the checkpoint store and the
// catalog together for the CLI and the HTTP server.
type FHVAEService struct {
	catalog     *storage.Catalog
	ownsCatalog bool
	log         logger.Interface
	config      *Config
}

func New(opts ...Option) (*FHVAEService, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	s := &FHVAEService{log: cfg.Logger, config: cfg}
	if cfg.Catalog != nil {
		s.catalog = cfg.Catalog
	} else {
		catalog, err := storage.NewCatalogWithPath(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		s.catalog = catalog
		s.ownsCatalog = true
	}
	return s, nil
}

// Catalog exposes the underlying catalog.
func (s *FHVAEService) Catalog() *storage.Catalog { return s.catalog }

func (s *FHVAEService) prepareOptions(extra []prepare.Option) []prepare.Option {
	opts := []prepare.Option{
		prepare.WithCatalog(s.catalog),
		prepare.WithLogger(s.log),
		prepare.WithTempDir(s.config.TempDir),
	}
	if s.config.SampleRate > 0 {
		opts = append(opts, prepare.WithSampleRate(s.config.SampleRate))
	}
	return append(opts, extra...)
}

// Prepare materializes one partition and records it in the catalog.
func (s *FHVAEService) Prepare(ctx context.Context, set, datasetDir string, opts ...prepare.Option) (*prepare.Result, error) {
	return prepare.Prepare(ctx, set, datasetDir, s.prepareOptions(opts)...)
}

// PrepareAll materializes several partitions concurrently.
func (s *FHVAEService) PrepareAll(ctx context.Context, sets []string, datasetDir string, opts ...prepare.Option) ([]*prepare.Result, error) {
	return prepare.PrepareAll(ctx, sets, datasetDir, s.prepareOptions(opts)...)
}

// FeatureRequest selects the features computed by Features.
type FeatureRequest struct {
	Kind  features.Kind
	WinT  float64
	HopT  float64
	NMels int
}

// DefaultFeatureRequest is 80-bin log fbank with 25 ms windows every 10 ms.
func DefaultFeatureRequest() FeatureRequest {
	return FeatureRequest{Kind: features.KindFbank, WinT: 0.025, HopT: 0.010, NMels: features.DefaultNMels}
}

type FeatureResult struct {
	Kind       features.Kind
	SampleRate int
	Duration   float64
	Frames     int
	Channels   int
	Data       *mat.Dense
}

// Features loads one audio file and computes its feature matrix.
func (s *FHVAEService) Features(ctx context.Context, path string, req FeatureRequest) (*FeatureResult, error) {
	clip, err := audio.Load(ctx, path, s.config.SampleRate, s.config.TempDir)
	if err != nil {
		return nil, fmt.Errorf("audio load failed: %w", err)
	}

	data, err := features.Generate(req.Kind, clip.Samples, clip.SampleRate, req.WinT, req.HopT, req.NMels)
	if err != nil {
		return nil, fmt.Errorf("feature extraction failed: %w", err)
	}
	frames, channels := data.Dims()
	s.log.Debugf("Computed %s features for %s: %dx%d", req.Kind, path, frames, channels)

	return &FeatureResult{
		Kind:       req.Kind,
		SampleRate: clip.SampleRate,
		Duration:   clip.Duration(),
		Frames:     frames,
		Channels:   channels,
		Data:       data,
	}, nil
}

type VADResult struct {
	SampleRate int
	Frames     []int
	Voiced     int
}

// VAD runs the energy voice activity detector on one audio file.
func (s *FHVAEService) VAD(ctx context.Context, path string, winT, hopT, ratio float64) (*VADResult, error) {
	clip, err := audio.Load(ctx, path, s.config.SampleRate, s.config.TempDir)
	if err != nil {
		return nil, fmt.Errorf("audio load failed: %w", err)
	}
	frames, err := features.EnergyVAD(clip.Samples, clip.SampleRate, hopT, winT, ratio)
	if err != nil {
		return nil, err
	}
	voiced := 0
	for _, v := range frames {
		voiced += v
	}
	return &VADResult{SampleRate: clip.SampleRate, Frames: frames, Voiced: voiced}, nil
}

func (s *FHVAEService) ListUtterances(set string) ([]storage.Utterance, error) {
	return s.catalog.ListUtterances(set)
}

func (s *FHVAEService) CountUtterances() (map[string]int64, error) {
	return s.catalog.CountUtterances()
}

// IndexCheckpoints records every checkpoint of expDir in the catalog and
// returns the rows in file order. Files that fail to decode are skipped.
func (s *FHVAEService) IndexCheckpoints(expDir string) ([]storage.Checkpoint, error) {
	infos, err := checkpoint.List(expDir)
	if err != nil {
		return nil, err
	}

	rows := make([]storage.Checkpoint, 0, len(infos))
	for _, info := range infos {
		rec, err := checkpoint.ReadRecord(info.Path)
		if err != nil {
			s.log.Warnf("Skipping %s: %v", info.Name, err)
			continue
		}
		path, err := filepath.Abs(info.Path)
		if err != nil {
			path = info.Path
		}
		row := storage.Checkpoint{
			Path:      path,
			RunID:     runID(info, rec.ModelType),
			ModelType: rec.ModelType,
			Epoch:     rec.Epoch,
			BestEpoch: rec.BestEpoch,
			BestValLB: rec.BestValLB,
			Best:      info.Best,
		}
		if err := s.catalog.RecordCheckpoint(&row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	s.log.Infof("Indexed %d checkpoints from %s", len(rows), expDir)
	return rows, nil
}

// runID strips the best prefix, the model type and the epoch suffix from a
// checkpoint name.
func runID(info checkpoint.Info, modelType string) string {
	name := strings.TrimPrefix(info.Name, checkpoint.BestPrefix)
	name = strings.TrimSuffix(name, fmt.Sprintf("_e%d.tar", info.Epoch))
	return strings.TrimPrefix(name, modelType+"_")
}

// LoadCheckpoint selects a checkpoint of expDir (checkpoint.BestStep for the
// best one) and restores it.
func (s *FHVAEService) LoadCheckpoint(expDir string, step int, finetune bool) (*checkpoint.LoadResult, string, error) {
	path, err := checkpoint.Select(expDir, step)
	if err != nil {
		return nil, "", err
	}
	res, err := checkpoint.Load(path, finetune)
	if err != nil {
		return nil, path, err
	}
	s.log.Infof("Loaded %s model from %s", res.Model.Type(), filepath.Base(path))
	return res, path, nil
}

func (s *FHVAEService) Close() error {
	if !s.ownsCatalog {
		return nil
	}
	return s.catalog.Close()
}
