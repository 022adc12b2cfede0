package commands

import (
	"context"
	"fmt"
	"jwassist-backend/internal/components/chrono"
	"jwassist-backend/internal/components/configutil"
	"jwassist-backend/internal/components/telemetry"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

const serviceName = "jwcourses"

var rootCmd = &cobra.Command{
	Use:           "jwcourses",
	Short:         "jwcourses exports weekly class schedules from the academic portal and turns them into json.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath *string
var verbose *bool

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file, a `.local.json5` sibling is merged over it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug reports.")
}

// ExecuteContext runs the command line and returns the process exit status.
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), err)
	}
	return ExitCode(err)
}

// environment is what every command is handed after startup.
type environment struct {
	config    Config
	tel       telemetry.API
	clock     chrono.TimeAPI
	telemetry telemetry.Telemetry
}

func (e environment) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	err := e.telemetry.Shutdown(ctx)
	if err != nil {
		e.tel.ReportWarning("telemetry.shutdown", err)
	}
}

func loadEnvironment(ctx context.Context, path string, verbose bool) (environment, error) {
	telemetry.InitSlog(os.Stderr, verbose)

	read := configutil.ReadWithDefaults[Config]
	if !filepath.IsAbs(path) {
		// lets the daemon and the cli be run from any subdirectory
		read = configutil.ReadRecursivelyWithDefaults[Config]
	}
	config, err := read(path, defaultConfig())
	if err != nil {
		return environment{}, fmt.Errorf("read config: %w", err)
	}

	providers, err := telemetry.Setup(ctx, serviceName, config.Telemetry)
	if err != nil {
		return environment{}, fmt.Errorf("setup telemetry: %w", err)
	}
	otelAPI, err := telemetry.NewOtelAPI(otel.Meter(serviceName))
	if err != nil {
		return environment{}, fmt.Errorf("setup telemetry: %w", err)
	}

	return environment{
		config:    config,
		tel:       telemetry.MultiAPI{telemetry.SlogAPI{}, otelAPI},
		clock:     chrono.NewStandardTime(chrono.CST),
		telemetry: providers,
	}, nil
}

// withEnvironment loads config and telemetry before running fn and flushes
// telemetry after it returns.
func withEnvironment(fn func(cmd *cobra.Command, args []string, env environment) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cmd.Context(), *configPath, *verbose)
		if err != nil {
			return err
		}
		defer env.shutdown()
		return fn(cmd, args, env)
	}
}
