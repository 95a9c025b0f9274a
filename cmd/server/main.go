package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/FHVAEKit/internal/service"
	"github.com/himanishpuri/FHVAEKit/pkg/logger"
)

var (
	port           int
	dbPath         string
	tempDir        string
	sampleRate     int
	datasetDir     string
	expRoot        string
	allowedOrigins string
	logLevel       string
)

var rootCmd = &cobra.Command{
	Use:           "fhvae-server",
	Short:         "HTTP API over FHVAE features, manifests and checkpoints",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&port, "port", 8080, "HTTP server port")
	flags.StringVar(&dbPath, "db", getEnvOrDefault("FHVAE_DB_PATH", "fhvae.sqlite3"), "Path to SQLite catalog")
	flags.StringVar(&tempDir, "temp", getEnvOrDefault("FHVAE_TEMP_DIR", os.TempDir()), "Temporary directory")
	flags.IntVar(&sampleRate, "rate", 0, "Resample uploads to this rate (0 keeps the native rate)")
	flags.StringVar(&datasetDir, "dataset", getEnvOrDefault("FHVAE_DATASET_DIR", ""), "Dataset directory served by /api/manifests when the catalog is empty")
	flags.StringVar(&expRoot, "exp-root", getEnvOrDefault("FHVAE_EXP_ROOT", ""), "Directory holding experiment runs indexed by /api/checkpoints (empty disables the endpoint)")
	flags.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flags.StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseOrigins(raw string) []string {
	if raw == "*" {
		return []string{"*"}
	}
	origins := strings.Split(raw, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func runServer(cmd *cobra.Command, args []string) error {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	svc, err := service.New(
		service.WithDBPath(dbPath),
		service.WithTempDir(tempDir),
		service.WithSampleRate(sampleRate),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		SampleRate:     sampleRate,
		DatasetDir:     datasetDir,
		ExpRoot:        expRoot,
		AllowedOrigins: parseOrigins(allowedOrigins),
	}

	return NewServer(svc, config).Start()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
