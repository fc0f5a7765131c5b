// Command coursecheck runs the course site acceptance scenarios.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/entrhq/coursecheck/pkg/browser/playwright"
	"github.com/entrhq/coursecheck/pkg/browser/rod"
	"github.com/entrhq/coursecheck/pkg/browser/static"
	"github.com/entrhq/coursecheck/pkg/config"
	"github.com/entrhq/coursecheck/pkg/driver"
	"github.com/entrhq/coursecheck/pkg/logging"
)

var version = "dev"

// errScenariosFailed makes the process exit with status 1 after the summary
// has been printed.
var errScenariosFailed = errors.New("one or more scenarios failed")

var (
	configPath string
	engine     string
	browserArg string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "coursecheck",
	Short: "Acceptance checks for the course site",
	Long: `coursecheck drives a browser through the course site and checks that
every course page loads and names a professor, that the Software Testing
assignment links exist and follow the naming convention, and where a student
has to present or oppose.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Configuration file (.properties or .yaml)")
	rootCmd.PersistentFlags().StringVar(&engine, "engine", "", "Automation engine: playwright, rod or static")
	rootCmd.PersistentFlags().StringVar(&browserArg, "browser", "", "Browser: chrome, firefox, edge, safari or iexplorer")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")

	rootCmd.AddCommand(runCmd, listCmd, presenceCmd, reapCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errScenariosFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newLogger builds the run logger. A logger that cannot open its file still
// logs to the console.
func newLogger() *logging.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	l, err := logging.NewLogger(logging.Options{Level: level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging to console only: %v\n", err)
	}
	return l
}

// loadSettings reads the configuration file, overlays the environment and
// then the command line flags.
func loadSettings() (*config.Settings, error) {
	values, err := config.LoadFile(afero.NewOsFs(), configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(values); err != nil {
		return nil, err
	}
	if engine != "" {
		values[config.KeyEngine] = engine
	}
	if browserArg != "" {
		values[config.KeyBrowser] = browserArg
	}
	return config.Resolve(values)
}

func newFactory(logger *logging.Logger) *driver.Factory {
	return driver.NewFactory(
		driver.WithLogger(logger.Component("driver")),
		driver.WithLauncher(config.EnginePlaywright, playwright.NewLauncher(logger.Component(playwright.EngineName))),
		driver.WithLauncher(config.EngineRod, rod.NewLauncher(logger.Component(rod.EngineName))),
		driver.WithLauncher(config.EngineStatic, static.NewLauncher(logger.Component(static.EngineName))),
	)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "coursecheck %s\n", version)
	},
}
