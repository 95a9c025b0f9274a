// Package experiment holds the per-run configuration record and the naming
// rules that derive output directories and run identifiers from it.
package experiment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/himanishpuri/FHVAEKit/internal/model"
)

// ArgsVersion is the schema version written by SaveArgs.
const ArgsVersion = 1

// ArgsFile is the file name of the args record inside an experiment directory.
const ArgsFile = "args.yaml"

var ErrUnsupportedArgsVersion = errors.New("unsupported args version")

// Args is the configuration snapshot of one training run.
type Args struct {
	Version int `yaml:"version"`

	Dataset    string `yaml:"dataset"`
	DataFormat string `yaml:"data_format"`
	FeatType   string `yaml:"feat_type"`
	DatasetDir string `yaml:"dataset_dir,omitempty"`

	ModelType   string       `yaml:"model_type"`
	ModelParams model.Params `yaml:"model_params"`

	Epochs        int     `yaml:"epochs"`
	StepsPerEpoch int     `yaml:"steps_per_epoch"`
	Patience      int     `yaml:"patience"`
	AlphaDis      float64 `yaml:"alpha_dis"`
	Legacy        bool    `yaml:"legacy"`

	BatchSize    int     `yaml:"batch_size"`
	SegLen       int     `yaml:"seg_len"`
	SegShift     int     `yaml:"seg_shift"`
	LearningRate float64 `yaml:"lr"`
	Seed         uint64  `yaml:"seed"`

	Finetune bool   `yaml:"finetune,omitempty"`
	ExpDir   string `yaml:"exp_dir,omitempty"`
}

// DefaultArgs mirrors the training defaults of the reference recipe.
func DefaultArgs() Args {
	return Args{
		Version:       ArgsVersion,
		Dataset:       "librispeech",
		DataFormat:    "numpy",
		FeatType:      "fbank",
		ModelType:     model.TypeFHVAE,
		ModelParams:   model.DefaultParams(),
		Epochs:        100,
		StepsPerEpoch: 5000,
		Patience:      10,
		AlphaDis:      10,
		BatchSize:     256,
		SegLen:        20,
		SegShift:      20,
		LearningRate:  1e-3,
		Seed:          123,
	}
}

// SaveArgs writes args to <dir>/args.yaml, stamping the current version.
func SaveArgs(dir string, args Args) error {
	args.Version = ArgsVersion
	data, err := yaml.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding args: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ArgsFile), data, 0o644)
}

// LoadArgs reads <dir>/args.yaml.
func LoadArgs(dir string) (Args, error) {
	var args Args
	data, err := os.ReadFile(filepath.Join(dir, ArgsFile))
	if err != nil {
		return args, err
	}
	if err := yaml.Unmarshal(data, &args); err != nil {
		return args, fmt.Errorf("decoding %s: %w", ArgsFile, err)
	}
	if args.Version != ArgsVersion {
		return args, fmt.Errorf("%w: %d", ErrUnsupportedArgsVersion, args.Version)
	}
	return args, nil
}

// OutputDirName joins dataset, storage format and feature type into a
// directory name. Kaldi data is always fbank.
func OutputDirName(dataset, dataFormat, featType string) string {
	format := strings.ToLower(dataFormat)
	if format == "numpy" {
		dataset += "_np"
	} else {
		dataset += "_kd"
	}
	if format == "kaldi" {
		featType = "fbank"
	}
	return dataset + "_" + featType
}

// TrainingStrings derives the base directory name, the experiment string and
// the run id (base + "_" + experiment).
func TrainingStrings(args Args) (base, exp, runID string) {
	base = OutputDirName(args.Dataset, args.DataFormat, args.FeatType)
	if args.Legacy {
		exp = fmt.Sprintf("%s_e%d_s%d_p%d_a%s_legacy",
			args.ModelType, args.Epochs, args.StepsPerEpoch, args.Patience, formatFloat(args.AlphaDis))
	} else {
		exp = fmt.Sprintf("%s_e%d_p%d_a%s",
			args.ModelType, args.Epochs, args.Patience, formatFloat(args.AlphaDis))
	}
	return base, exp, base + "_" + exp
}

// formatFloat renders whole numbers with one decimal ("10.0").
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
