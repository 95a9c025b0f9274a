package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/FHVAEKit/internal/checkpoint"
	"github.com/himanishpuri/FHVAEKit/internal/dataset"
	"github.com/himanishpuri/FHVAEKit/internal/experiment"
	"github.com/himanishpuri/FHVAEKit/internal/model"
	"github.com/himanishpuri/FHVAEKit/pkg/logger"
)

var (
	evalSet        string
	evalStep       int
	evalDatasetDir string
)

var evalCmd = &cobra.Command{
	Use:   "eval <exp_dir>",
	Short: "Load a trained checkpoint for evaluation",
	Long: `Read <exp_dir>/args.yaml, pick a checkpoint and restore its weights.
--step -1 selects the best model; other values index the epoch checkpoints
in name order. The --set partition of the run's numpy dataset is segmented
with the run's seg_len/seg_shift and read batch by batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.GetLogger()
		expDir := args[0]

		runArgs, err := experiment.LoadArgs(expDir)
		if err != nil {
			return fmt.Errorf("loading args: %w", err)
		}
		_, _, runID := experiment.TrainingStrings(runArgs)
		log.Infof("Run %s, evaluating %s set", runID, evalSet)

		svc, err := createService()
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		res, path, err := svc.LoadCheckpoint(expDir, evalStep, true)
		if err != nil {
			return err
		}

		m := res.Model
		if u, ok := m.(*model.Unknown); ok {
			return fmt.Errorf("%s holds unsupported model type %q", filepath.Base(path), u.Tag)
		}
		z2lv, mu2lv, err := model.Priors(m)
		if err != nil {
			return err
		}
		fmt.Printf("checkpoint: %s\n", path)
		fmt.Printf("model:      %s %+v\n", m.Type(), m.Params())
		fmt.Printf("priors:     z2 logvar %.4f, mu2 logvar %.4f\n", z2lv, mu2lv)

		if !strings.EqualFold(runArgs.DataFormat, "numpy") {
			log.Warnf("Data format %q has no loader, skipping the %s set", runArgs.DataFormat, evalSet)
			return nil
		}
		setDir := filepath.Join(evalDataDir(runArgs, evalDatasetDir), evalSet)
		sum, err := scanSet(cmd.Context(), setDir, runArgs.SegLen, runArgs.SegShift, runArgs.BatchSize)
		if err != nil {
			return fmt.Errorf("reading %s set: %w", evalSet, err)
		}
		fmt.Printf("%s set:    %d sequences, %d segments in %d batches of %d\n",
			evalSet, sum.Sequences, sum.Segments, sum.Batches, runArgs.BatchSize)
		return nil
	},
}

func init() {
	evalCmd.Flags().StringVar(&evalSet, "set", "dev", "Partition to evaluate (train, dev or test)")
	evalCmd.Flags().IntVar(&evalStep, "step", checkpoint.BestStep, "Checkpoint to load; -1 loads the best one")
	evalCmd.Flags().StringVar(&evalDatasetDir, "dataset-dir", "", "Dataset directory (defaults to the run's dataset_dir, then datasets/<name>)")
}

// evalDataDir resolves the dataset of a run: the flag, then the recorded
// dataset_dir, then datasets/<output dir name>.
func evalDataDir(runArgs experiment.Args, override string) string {
	if override != "" {
		return override
	}
	if runArgs.DatasetDir != "" {
		return runArgs.DatasetDir
	}
	return filepath.Join("datasets", experiment.OutputDirName(runArgs.Dataset, runArgs.DataFormat, runArgs.FeatType))
}

type setSummary struct {
	Sequences int
	Segments  int
	Batches   int
}

// scanSet reads every batch of a numpy partition once.
func scanSet(ctx context.Context, setDir string, segLen, segShift, batchSize int) (setSummary, error) {
	data, err := dataset.OpenNumpy(setDir, segLen, segShift)
	if err != nil {
		return setSummary{}, err
	}
	sum := setSummary{Sequences: data.NumSeqs()}
	loader := data.Loader(batchSize)
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		batch, ok, err := loader.Next()
		if err != nil {
			return sum, err
		}
		if !ok {
			return sum, nil
		}
		sum.Batches++
		sum.Segments += batch.Len()
	}
}
