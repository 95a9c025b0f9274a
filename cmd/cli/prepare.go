package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/cheggaaa/pb"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/FHVAEKit/internal/features"
	"github.com/himanishpuri/FHVAEKit/internal/manifest"
	"github.com/himanishpuri/FHVAEKit/internal/prepare"
)

var (
	prepNpDir    string
	prepSet      string
	prepFeatType string
	prepWinT     float64
	prepHopT     float64
	prepNMels    int
)

var prepareCmd = &cobra.Command{
	Use:   "prepare <dataset_dir>",
	Short: "Compute per-utterance features from wav.scp manifests",
	Long: `Read <dataset_dir>/<set>/wav.scp and write one .npy feature matrix per
utterance plus feats.scp and len.scp. Without --set the train, dev and test
partitions are processed in parallel.

Examples:
  fhvae prepare datasets/librispeech_np_fbank
  fhvae prepare datasets/timit_np_spec --set dev --ftype spec --rate 16000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		datasetDir := args[0]
		kind, err := features.ParseKind(prepFeatType)
		if err != nil {
			return err
		}

		sets := prepare.Partitions
		if prepSet != "" {
			sets = []string{prepSet}
		}

		total := 0
		for _, set := range sets {
			n, err := manifest.Count(filepath.Join(prepare.SetDir(set, datasetDir, prepNpDir), manifest.WavScp))
			if err != nil {
				return fmt.Errorf("%s: %w", set, prepare.ErrManifestMissing)
			}
			total += n
		}

		svc, err := createService()
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		bar := pb.New(total).Prefix("Featurizing ")
		bar.Output = os.Stderr
		bar.Start()

		opts := []prepare.Option{
			prepare.WithFeatType(kind),
			prepare.WithFraming(prepWinT, prepHopT),
			prepare.WithMels(prepNMels),
			prepare.WithOutputDir(prepNpDir),
			prepare.WithProgress(func(string, int) { bar.Increment() }),
		}
		results, err := svc.PrepareAll(ctx, sets, datasetDir, opts...)
		bar.Finish()

		for _, res := range results {
			if res != nil {
				fmt.Printf("%-6s %6d utterances @ %d Hz -> %s\n", res.Set, res.Count, res.SampleRate, filepath.Dir(res.FeatsScp))
			}
		}
		return err
	},
}

func init() {
	f := prepareCmd.Flags()
	f.StringVar(&prepNpDir, "np-dir", "", "Output directory for feature matrices (default: the dataset directory)")
	f.StringVar(&prepSet, "set", "", "Partition to process (train, dev or test); empty for all three")
	f.StringVar(&prepFeatType, "ftype", string(features.KindFbank), "Feature type (fbank or spec)")
	f.Float64Var(&prepWinT, "win-t", 0.025, "Window size in seconds")
	f.Float64Var(&prepHopT, "hop-t", 0.010, "Frame spacing in seconds")
	f.IntVar(&prepNMels, "n-mels", features.DefaultNMels, "Number of mel filters for fbank")
}
