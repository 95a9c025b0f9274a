package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/FHVAEKit/internal/corpus"
	"github.com/himanishpuri/FHVAEKit/internal/experiment"
	"github.com/himanishpuri/FHVAEKit/internal/features"
)

var (
	scpOut        string
	scpFeatType   string
	scpDataFormat string
	scpLists      = corpus.DefaultLists()
)

var scpCmd = &cobra.Command{
	Use:   "scp <librispeech_dir>",
	Short: "Write wav.scp manifests for a LibriSpeech download",
	Long: `Scan the LibriSpeech subsets under <librispeech_dir> for .flac files and
write {train,dev,test}/wav.scp. The output directory defaults to
datasets/librispeech_<np|kd>_<ftype>.

Examples:
  fhvae scp /data/LibriSpeech
  fhvae scp /data/LibriSpeech --train-list train-clean-100,train-clean-360`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := features.ParseKind(scpFeatType); err != nil {
			return err
		}
		out := scpOut
		if out == "" {
			out = filepath.Join("datasets", experiment.OutputDirName("librispeech", scpDataFormat, scpFeatType))
		}
		return corpus.ProcessLibriSpeech(args[0], out, scpLists)
	},
}

func init() {
	f := scpCmd.Flags()
	f.StringVar(&scpOut, "out", "", "Output dataset directory")
	f.StringVar(&scpFeatType, "ftype", string(features.KindFbank), "Feature type the dataset will hold (fbank or spec)")
	f.StringVar(&scpDataFormat, "data-format", "numpy", "Storage format (numpy or kaldi)")
	f.StringSliceVar(&scpLists.Train, "train-list", scpLists.Train, "LibriSpeech subsets for train")
	f.StringSliceVar(&scpLists.Dev, "dev-list", scpLists.Dev, "LibriSpeech subsets for dev")
	f.StringSliceVar(&scpLists.Test, "test-list", scpLists.Test, "LibriSpeech subsets for test")
}
