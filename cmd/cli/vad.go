package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/FHVAEKit/internal/features"
)

var (
	vadWinT      float64
	vadHopT      float64
	vadThreshold float64
)

var vadCmd = &cobra.Command{
	Use:   "vad <audio_file>",
	Short: "Print the energy voice activity mask of an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := createService()
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		res, err := svc.VAD(context.Background(), args[0], vadWinT, vadHopT, vadThreshold)
		if err != nil {
			return err
		}

		var sb strings.Builder
		for _, v := range res.Frames {
			if v == 1 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		fmt.Println(sb.String())
		fmt.Printf("%d/%d frames voiced @ %d Hz\n", res.Voiced, len(res.Frames), res.SampleRate)
		return nil
	},
}

func init() {
	f := vadCmd.Flags()
	f.Float64Var(&vadWinT, "win-t", 0.025, "Window size in seconds")
	f.Float64Var(&vadHopT, "hop-t", 0.010, "Frame spacing in seconds")
	f.Float64Var(&vadThreshold, "threshold", features.DefaultVADThreshold, "Fraction of mean energy a voiced frame must exceed")
}
