package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobrunner/internal/common"
	"github.com/ternarybob/jobrunner/internal/executor"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles   configPaths // Multiple -config flags supported
	settingsFile  = flag.String("settings", "", "Path to the orchestrator settings blob (JSON)")
	jobAgentID    = flag.Int64("agent", 0, "Job agent identifier")
	jobID         = flag.Int64("job", 0, "Job identifier (0 resolves it from the instance)")
	jobInstanceID = flag.Int64("instance", 0, "Job instance identifier")
	jobScheduleID = flag.Int64("schedule", 0, "Job schedule identifier")
	showVersion   = flag.Bool("version", false, "Print version information")
	showVersionV  = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Jobrunner version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ...)
	// 2. Initialize logger
	// 3. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, serr := os.Stat("jobrunner.toml"); serr == nil {
			configFiles = append(configFiles, "jobrunner.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	logger = common.InitLogger(config)

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Int64("job_instance_id", *jobInstanceID).
		Msg("Application configuration loaded")

	settingsBlob, err := readSettings(*settingsFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *settingsFile).Msg("Failed to read settings blob")
		os.Exit(1)
	}

	// Cancel the run on SIGINT/SIGTERM; finalization still completes.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lifecycle := executor.New(config, logger)

	params := executor.Params{
		JobAgentID:    *jobAgentID,
		JobID:         *jobID,
		JobInstanceID: *jobInstanceID,
		JobScheduleID: *jobScheduleID,
	}

	logs, err := lifecycle.Execute(ctx, settingsBlob, params)
	if err != nil {
		logger.Error().
			Err(err).
			Int64("job_instance_id", params.JobInstanceID).
			Int("events", len(logs)).
			Msg("Job execution failed")
		os.Exit(1)
	}

	logger.Info().
		Int64("job_instance_id", params.JobInstanceID).
		Int("events", len(logs)).
		Msg("Job execution completed")
}

// readSettings loads the orchestrator settings blob. No path means no blob,
// which runs the job without persistent sinks.
func readSettings(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
