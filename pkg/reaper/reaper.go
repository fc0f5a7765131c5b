// Package reaper kills browser processes left behind by a run.
//
// Cleanup is best effort. Combinations of browser and operating system
// without a known command produce a notice, and a command that fails is
// reported in the Result and logged. Nothing here returns an error that
// could fail a run.
package reaper

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/coursecheck/pkg/config"
	"github.com/entrhq/coursecheck/pkg/logging"
)

// DefaultTimeout bounds one kill command.
const DefaultTimeout = 30 * time.Second

// Runner executes a command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Result describes one cleanup attempt.
type Result struct {
	// Command is the command line that was (or would have been) run.
	Command []string
	// Attempted is false when no command exists for the combination.
	Attempted bool
	// Notice explains a skipped combination.
	Notice string
	Output string
	Err    error
}

var windowsImages = map[config.BrowserKind]string{
	config.BrowserChrome:           "chrome.exe",
	config.BrowserFirefox:          "firefox.exe",
	config.BrowserEdge:             "msedge.exe",
	config.BrowserSafari:           "Safari.exe",
	config.BrowserInternetExplorer: "iexplore.exe",
}

var unixProcesses = map[config.OSKind]map[config.BrowserKind]string{
	config.OSLinux: {
		config.BrowserChrome:  "chrome",
		config.BrowserFirefox: "firefox",
	},
	config.OSUbuntu: {
		config.BrowserChrome:  "chrome",
		config.BrowserFirefox: "firefox",
	},
	config.OSMacOS: {
		config.BrowserChrome:  "chrome",
		config.BrowserFirefox: "firefox",
		config.BrowserSafari:  "Safari",
	},
}

// Command returns the kill command for browser on os, or nil if there is
// none.
func Command(browser config.BrowserKind, os config.OSKind) []string {
	if os == config.OSWindows {
		if image, ok := windowsImages[browser]; ok {
			return []string{"taskkill", "/F", "/IM", image}
		}
		return nil
	}
	if name, ok := unixProcesses[os][browser]; ok {
		return []string{"pkill", name}
	}
	return nil
}

// Reaper kills leftover browser processes.
type Reaper struct {
	runner  Runner
	logger  *zap.Logger
	timeout time.Duration
}

// New creates a Reaper. A nil runner uses ExecRunner.
func New(runner Runner, logger *zap.Logger) *Reaper {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Reaper{runner: runner, logger: logging.OrNop(logger), timeout: DefaultTimeout}
}

// KillBrowserProcesses kills every process of the configured browser on the
// configured operating system.
func (r *Reaper) KillBrowserProcesses(ctx context.Context, s *config.Settings) Result {
	if s == nil {
		return Result{Notice: "no configuration, nothing to clean up"}
	}

	cmd := Command(s.Browser, s.OperatingSystem)
	if cmd == nil {
		notice := fmt.Sprintf("Killing %s processes is not implemented for %s.", s.Browser.DisplayName(), s.OperatingSystem)
		r.logger.Info(notice)
		return Result{Notice: notice}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.runner.Run(runCtx, cmd[0], cmd[1:]...)
	res := Result{Command: cmd, Attempted: true, Output: strings.TrimSpace(string(out)), Err: err}
	if err != nil {
		// pkill exits 1 when nothing matched, which is the common case.
		r.logger.Warn("browser cleanup failed",
			zap.Strings("command", cmd), zap.String("output", res.Output), zap.Error(err))
		return res
	}
	r.logger.Info("browser processes killed", zap.Strings("command", cmd))
	return res
}
