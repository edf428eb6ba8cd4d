// Package cli implements the cobra-based CLI commands for the workshop tool.
//
// Each subcommand (setup, doctor, deploy, serve, analyze, batch, health) is
// defined in its own file within this package. This file defines the root
// command that serves as the parent for all subcommands, handles global
// flags, and loads configuration before any subcommand runs.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/serverless-workshop/internal/config"
	"github.com/shinji-kodama/serverless-workshop/internal/logging"
	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, all output uses structured JSON format for machine consumption.
	// When false (default), output uses human-readable text format.
	jsonOutput bool

	// verbose enables debug logging on stderr.
	verbose bool

	// envFile overrides the optional environment file (default .env.local).
	envFile string
)

// cfg holds the configuration loaded in the root command's
// PersistentPreRunE. Subcommands read it through currentConfig.
var cfg *config.Config

// cfgErr is the load error a lenient command recovered from, if any.
var cfgErr error

// annotationLenientConfig marks commands that run on default settings
// when the configuration cannot be loaded instead of failing.
const annotationLenientConfig = "workshop/lenient-config"

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action. It provides help
// text and global flags; subcommands do the work.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "workshop",
		Short: "Serverless ML workshop kit",
		Long: `workshop prepares your machine for the serverless ML workshop and
lets you exercise the sentiment-analysis API.

Start with "workshop setup". It installs the platform client if needed,
loads your optional .env.local, authenticates, and verifies the connection.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// PersistentPreRunE runs before every subcommand. Logging must be
		// configured first so config loading can already emit debug output.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetDefault(logging.New(cmd.ErrOrStderr(), verbose))

			loaded, err := config.Load(config.Options{EnvFile: envFile})
			if err != nil {
				if cmd.Annotations[annotationLenientConfig] == "" {
					return model.WrapCLIError(model.ExitGeneralError, "failed to load configuration", err)
				}
				VerboseLog("configuration not applied, using defaults: %v", err)
				loaded = config.Defaults(config.Options{EnvFile: envFile})
			}
			cfg, cfgErr = loaded, err

			VerboseLog("env file %s (loaded: %t)", cfg.EnvFile, cfg.EnvFileLoaded)
			if cfg.ConfigFile != "" {
				VerboseLog("config file %s", cfg.ConfigFile)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Optional environment file")

	// Register subcommands. Each subcommand is defined in its own file
	// (setup.go, doctor.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewSetupCommand())
	rootCmd.AddCommand(NewDoctorCommand())
	rootCmd.AddCommand(NewDeployCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewAnalyzeCommand())
	rootCmd.AddCommand(NewBatchCommand())
	rootCmd.AddCommand(NewHealthCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// CLIError values carry their own exit codes; other errors exit with 1.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(os.Stderr, cliErr.Message, cliErr.Err)
		os.Exit(int(cliErr.Code))
	}

	// Generic error (including cobra flag/argument errors) exits with 1.
	printError(os.Stderr, err.Error(), nil)
	os.Exit(int(model.ExitGeneralError))
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag. Errors always go to
// stderr because stdout is reserved for successful command output.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "%s %s: %v\n", errorStyle.Render("Error:"), message, underlying)
	} else {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("Error:"), message)
	}
}

// VerboseLog writes a debug line through the process logger. It only
// appears with --verbose.
func VerboseLog(format string, args ...interface{}) {
	logging.Default().Debugf(format, args...)
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// currentConfig returns the loaded configuration, falling back to the
// defaults when a command runs without the root pre-run (as in tests).
func currentConfig() *config.Config {
	if cfg != nil {
		return cfg
	}
	return config.Defaults(config.Options{})
}

// writeJSON prints v as indented JSON on w.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
