package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/FHVAEKit/internal/service"
	"github.com/himanishpuri/FHVAEKit/pkg/logger"
)

// Global flags
var (
	dbPath     string
	tempDir    string
	sampleRate int
	logLevel   string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "fhvae",
	Short: "FHVAE speech data preparation and checkpoint tooling",
	Long: `fhvae prepares speech corpora for factorized hierarchical VAE training
and inspects the checkpoints those runs produce.

Typical flow:
  fhvae scp /data/LibriSpeech              # write {train,dev,test}/wav.scp
  fhvae prepare datasets/librispeech_np_fbank
  fhvae checkpoints exp/run1
  fhvae eval exp/run1 --step -1`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		if !quiet {
			printBanner()
		}
		logger.GetLogger().Debugf("Executing command: %s", cmd.CommandPath())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("FHVAE_DB_PATH", "fhvae.sqlite3"), "Path to the SQLite catalog")
	rootCmd.PersistentFlags().StringVar(&tempDir, "temp", getEnvOrDefault("FHVAE_TEMP_DIR", os.TempDir()), "Directory for temporary audio conversion files")
	rootCmd.PersistentFlags().IntVar(&sampleRate, "rate", 0, "Resample audio to this rate (0 keeps the native rate)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the banner")

	rootCmd.AddCommand(scpCmd, prepareCmd, vadCmd, evalCmd, checkpointsCmd)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService creates a new FHVAE service with configured options
func createService() (*service.FHVAEService, error) {
	return service.New(
		service.WithDBPath(dbPath),
		service.WithTempDir(tempDir),
		service.WithSampleRate(sampleRate),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 _____ _   ___     ___    _____   _  ___ _   
|  ___| | | \ \   / / \  | ____| | |/ (_) |_ 
| |_  | |_| |\ \ / / _ \ |  _|   | ' /| | __|
|  _| |  _  | \ V / ___ \| |___  | . \| | |_ 
|_|   |_| |_|  \_/_/   \_\_____| |_|\_\_|\__|

      Speech Feature & Checkpoint Toolkit
`
	fmt.Fprintln(os.Stderr, banner)
}
