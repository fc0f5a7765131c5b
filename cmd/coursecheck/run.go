package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/entrhq/coursecheck/pkg/reaper"
	"github.com/entrhq/coursecheck/pkg/scenario"
)

type runFlags struct {
	pattern        string
	student        string
	group          string
	reap           bool
	checkDocuments bool
	loadTimeout    time.Duration
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the acceptance scenarios",
	Long: `Run every scenario, or the ones whose name matches --scenario.

The group and presence scenarios need a student:
  coursecheck run --student "Ann Lee" --group 3

Exits with status 1 when a scenario fails or errors.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenarios(cmd, runOpts)
	},
}

var presenceCmd = &cobra.Command{
	Use:   "presence NAME",
	Short: "Show when a student has to present or oppose",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOpts
		opts.pattern = "Verify mandatory presence"
		opts.student = args[0]
		opts.group = "0"
		return runScenarios(cmd, opts)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, err := scenario.Select(runOpts.pattern)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, sc := range selected {
			fmt.Fprintln(out, sc.Name)
			for _, step := range sc.Steps {
				fmt.Fprintf(out, "  %s\n", step.Text)
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, listCmd} {
		c.Flags().StringVarP(&runOpts.pattern, "scenario", "s", "", "Glob selecting scenarios by name")
	}
	for _, c := range []*cobra.Command{runCmd, presenceCmd} {
		c.Flags().BoolVar(&runOpts.reap, "reap", false, "Kill leftover browser processes after each scenario")
		c.Flags().DurationVar(&runOpts.loadTimeout, "load-timeout", 0, "How long a course page may take to load (default 10s)")
	}
	runCmd.Flags().StringVar(&runOpts.student, "student", "", "Student name for the group scenarios")
	runCmd.Flags().StringVar(&runOpts.group, "group", "0", "Group number the student claims")
	runCmd.Flags().BoolVar(&runOpts.checkDocuments, "check-documents", false, "Validate that assignment links serve PDF documents")
}

func runScenarios(cmd *cobra.Command, opts runFlags) error {
	logger := newLogger()
	defer logger.Close()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	logger.Info("configuration loaded", zap.String("path", configPath), zap.Stringer("settings", settings))

	runnerOpts := scenario.Options{
		Settings:       settings,
		Factory:        newFactory(logger),
		Logger:         logger.Component("scenario"),
		Student:        scenario.Student{Name: opts.student, Group: opts.group},
		LoadTimeout:    opts.loadTimeout,
		CheckDocuments: opts.checkDocuments,
	}
	if opts.reap {
		runnerOpts.Reaper = reaper.New(nil, logger.Component("reaper"))
	}

	outcomes, err := scenario.NewRunner(runnerOpts).Run(cmd.Context(), opts.pattern)
	scenario.PrintSummary(cmd.OutOrStdout(), outcomes, logger.RunID())
	if path := logger.LogPath(); path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Log written to %s\n", path)
	}
	if err != nil {
		return err
	}
	if scenario.Failed(outcomes) {
		return errScenariosFailed
	}
	return nil
}

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Kill leftover processes of the configured browser",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Close()

		settings, err := loadSettings()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), reaper.DefaultTimeout)
		defer cancel()

		res := reaper.New(nil, logger.Component("reaper")).KillBrowserProcesses(ctx, settings)
		out := cmd.OutOrStdout()
		switch {
		case !res.Attempted:
			fmt.Fprintln(out, res.Notice)
		case res.Err != nil:
			fmt.Fprintf(out, "%v: %v\n", res.Command, res.Err)
		default:
			fmt.Fprintf(out, "%v: done\n", res.Command)
		}
		return nil
	},
}
