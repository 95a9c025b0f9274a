package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints <exp_dir>",
	Short: "Index and list the checkpoints of an experiment directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := createService()
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		rows, err := svc.IndexCheckpoints(args[0])
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No checkpoints found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tMODEL\tEPOCH\tBEST EPOCH\tBEST VAL LB")
		for _, r := range rows {
			name := filepath.Base(r.Path)
			if r.Best {
				name += " *"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\n", name, r.ModelType, r.Epoch, r.BestEpoch, r.BestValLB)
		}
		return w.Flush()
	},
}
