// Package checkpoint persists and restores training state. Each save writes
// {model_type}_{run_id}_e{epoch}.tar as a msgpack record; the best epoch is
// also copied byte for byte to best_model_{...}.tar.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/stat"

	"github.com/himanishpuri/FHVAEKit/internal/model"
	"github.com/himanishpuri/FHVAEKit/pkg/logger"
	"github.com/himanishpuri/FHVAEKit/pkg/utils"
)

// BestPrefix marks the copy of the best checkpoint.
const BestPrefix = "best_model_"

// ErrNoCheckpoint is returned when a selection matches no file.
var ErrNoCheckpoint = errors.New("no checkpoint found")

// Record is the on-disk checkpoint layout.
type Record struct {
	BestValLB   float64              `msgpack:"best_val_lb"`
	BestEpoch   int                  `msgpack:"best_epoch"`
	Epoch       int                  `msgpack:"epoch"`
	ModelType   string               `msgpack:"model_type"`
	ModelParams model.Params         `msgpack:"model_params"`
	Optimizer   model.OptimizerState `msgpack:"optimizer"`
	StateDict   model.StateDict      `msgpack:"state_dict"`
	SummaryVals [][]float64          `msgpack:"summary_vals"`
	Values      map[string][]float64 `msgpack:"values"`
}

// SaveArgs is everything captured at the end of an epoch.
type SaveArgs struct {
	Model     model.Model
	Optimizer model.Optimizer
	Summary   [][]float64
	Values    map[string][]float64
	RunID     string
	Epoch     int
	BestEpoch int
	ValLB     float64
	BestValLB float64
	Dir       string
}

// FileName returns the checkpoint name for a model type, run and epoch.
func FileName(modelType, runID string, epoch int) string {
	return fmt.Sprintf("%s_%s_e%d.tar", modelType, runID, epoch)
}

// Save writes the epoch checkpoint and returns its path. When Epoch equals
// BestEpoch the file is also copied to best_model_<name>.
func Save(a SaveArgs) (string, error) {
	if a.Model == nil {
		return "", errors.New("save checkpoint: nil model")
	}

	rec := Record{
		BestValLB:   a.BestValLB,
		BestEpoch:   a.BestEpoch,
		Epoch:       a.Epoch,
		ModelType:   a.Model.Type(),
		ModelParams: a.Model.Params(),
		StateDict:   a.Model.StateDict(),
		SummaryVals: a.Summary,
		Values:      a.Values,
	}
	if a.Optimizer != nil {
		rec.Optimizer = a.Optimizer.State()
	}

	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return "", fmt.Errorf("encoding checkpoint: %w", err)
	}

	name := FileName(rec.ModelType, a.RunID, a.Epoch)
	path := filepath.Join(a.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing checkpoint: %w", err)
	}
	logger.GetLogger().Debugf("Saved %s (val lb %.4f, best %.4f @ e%d)", path, a.ValLB, a.BestValLB, a.BestEpoch)

	if a.BestEpoch == a.Epoch {
		if err := utils.CopyFile(path, filepath.Join(a.Dir, BestPrefix+name)); err != nil {
			return "", fmt.Errorf("promoting best checkpoint: %w", err)
		}
	}
	return path, nil
}

// ReadRecord decodes a checkpoint file without reconstructing the model.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", path, err)
	}
	return &rec, nil
}

// LoadResult is a restored checkpoint. Optimizer, StartEpoch, BestValLB,
// Summary and Values are nil when loaded for finetuning.
type LoadResult struct {
	Model      model.Model
	Values     map[string][]float64
	Optimizer  *model.OptimizerState
	StartEpoch *int
	BestValLB  *float64
	Summary    [][]float64
}

// Load reads path and rebuilds the model from its stored parameters. Known
// model types load strictly. An unrecognized type yields a *model.Unknown
// loaded leniently, so callers must check the variant before use.
//
// Resuming (finetune false) sets StartEpoch to the stored epoch plus two:
// one step past the completed epoch and one more that existing runs depend on.
func Load(path string, finetune bool) (*LoadResult, error) {
	rec, err := ReadRecord(path)
	if err != nil {
		return nil, err
	}

	strict := model.Known(rec.ModelType)
	if !strict {
		logger.GetLogger().Warnf("Non-standard model type %q detected in %s", rec.ModelType, path)
	}
	m, err := model.New(rec.ModelType, rec.ModelParams)
	if err != nil {
		return nil, fmt.Errorf("rebuilding %s: %w", rec.ModelType, err)
	}
	if err := m.LoadStateDict(rec.StateDict, strict); err != nil {
		return nil, fmt.Errorf("loading weights from %s: %w", path, err)
	}

	res := &LoadResult{Model: m}
	if !finetune {
		opt := rec.Optimizer
		start := rec.Epoch + 1
		best := rec.BestValLB
		start++
		res.Optimizer = &opt
		res.StartEpoch = &start
		res.BestValLB = &best
		res.Summary = rec.SummaryVals
		res.Values = rec.Values
	}
	return res, nil
}

// CheckBest reports whether the mean of a validation lower-bound batch beats best.
func CheckBest(valLB []float64, best float64) bool {
	if len(valLB) == 0 {
		return false
	}
	return stat.Mean(valLB, nil) > best
}
