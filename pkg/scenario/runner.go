package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/entrhq/coursecheck/pkg/config"
	"github.com/entrhq/coursecheck/pkg/logging"
	"github.com/entrhq/coursecheck/pkg/pages"
	"github.com/entrhq/coursecheck/pkg/reaper"
	"github.com/entrhq/coursecheck/pkg/session"
	"github.com/entrhq/coursecheck/pkg/verify"
)

// Options configures a Runner.
type Options struct {
	Settings *config.Settings
	Factory  session.DriverFactory
	Logger   *zap.Logger

	Student Student

	// Reaper, when set, kills leftover browser processes after every
	// scenario.
	Reaper *reaper.Reaper

	// Prober checks assignment links. Nil uses verify.NewLinkProber(nil).
	Prober *verify.LinkProber

	// LoadTimeout overrides verify.DefaultLoadTimeout.
	LoadTimeout time.Duration

	CheckDocuments bool
}

// Runner runs scenarios one after another.
type Runner struct {
	opts   Options
	logger *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts, logger: logging.OrNop(opts.Logger)}
}

// Run runs the scenarios matching pattern and returns their outcomes in
// order. Only an invalid pattern is an error; failing scenarios are reported
// in their Outcome.
func (r *Runner) Run(ctx context.Context, pattern string) ([]Outcome, error) {
	selected, err := Select(pattern)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(selected))
	for _, sc := range selected {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, r.RunScenario(ctx, sc))
	}
	return outcomes, nil
}

// RunScenario runs sc in a fresh session. The session is released and, if
// configured, browser processes are reaped whatever the outcome.
func (r *Runner) RunScenario(ctx context.Context, sc Scenario) Outcome {
	start := time.Now()
	out := Outcome{Name: sc.Name}

	if sc.NeedsStudent && r.opts.Student.Name == "" {
		out.Status = StatusSkipped
		out.Message = "no student given"
		return out
	}

	rec := &warningRecorder{}
	logger := r.logger.
		WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core { return zapcore.NewTee(c, rec) })).
		With(zap.String("scenario", sc.Name))

	logger.Info("scenario started")

	m := session.NewManager(r.opts.Factory, r.opts.Settings, logger.Named("session"))
	cache := pages.NewCache(m)
	w := &World{
		Settings:       r.opts.Settings,
		Session:        m,
		Pages:          cache,
		Logger:         logger,
		Student:        r.opts.Student,
		CheckDocuments: r.opts.CheckDocuments,
		Catalog:        verify.NewCatalogVerifier(cache, logger.Named("catalog"), r.catalogOptions()...),
		Assignments:    verify.NewAssignmentVerifier(cache, r.opts.Prober, logger.Named("assignments")),
		Groups:         verify.NewGroupResolver(cache, logger.Named("groups")),
	}

	var failedStep string
	err := m.Do(ctx, func(*session.Session) error {
		for _, step := range sc.Steps {
			logger.Debug("step", zap.String("step", step.Text))
			if err := step.Run(ctx, w); err != nil {
				failedStep = step.Text
				return err
			}
		}
		return nil
	})
	r.after(ctx, logger)

	out.Step = failedStep
	out.Err = err
	out.Notes = w.notes
	out.Duration = time.Since(start)

	var failure *verify.AssertionFailure
	switch {
	case err == nil:
		out.Status = StatusPassed
	case errors.As(err, &failure):
		out.Status = StatusFailed
		out.Message = failure.Message
	default:
		out.Status = StatusErrored
		out.Message = err.Error()
	}
	out.Warnings = rec.messages()

	logger.Info("scenario finished",
		zap.Stringer("status", out.Status),
		zap.Duration("duration", out.Duration),
		zap.String("message", out.Message))
	return out
}

func (r *Runner) catalogOptions() []verify.CatalogOption {
	if r.opts.LoadTimeout > 0 {
		return []verify.CatalogOption{verify.WithLoadTimeout(r.opts.LoadTimeout)}
	}
	return nil
}

// after runs once the session is released.
func (r *Runner) after(ctx context.Context, logger *zap.Logger) {
	if r.opts.Reaper == nil {
		return
	}
	res := r.opts.Reaper.KillBrowserProcesses(ctx, r.opts.Settings)
	logger.Debug("reaper finished",
		zap.Bool("attempted", res.Attempted),
		zap.Strings("command", res.Command),
		zap.String("notice", res.Notice))
}

// warningRecorder keeps the messages of every warning logged during a
// scenario.
type warningRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (w *warningRecorder) Enabled(l zapcore.Level) bool {
	return l >= zapcore.WarnLevel
}

func (w *warningRecorder) With([]zapcore.Field) zapcore.Core {
	return w
}

func (w *warningRecorder) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if w.Enabled(ent.Level) {
		return ce.AddCore(ent, w)
	}
	return ce
}

func (w *warningRecorder) Write(ent zapcore.Entry, _ []zapcore.Field) error {
	if ent.Level != zapcore.WarnLevel {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, ent.Message)
	return nil
}

func (w *warningRecorder) Sync() error {
	return nil
}

func (w *warningRecorder) messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.msgs...)
}

// Failed reports whether any outcome failed or errored.
func Failed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Status == StatusFailed || o.Status == StatusErrored {
			return true
		}
	}
	return false
}

// Counts tallies outcomes by status.
func Counts(outcomes []Outcome) map[Status]int {
	counts := make(map[Status]int, 4)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}

// String formats the outcome as one line.
func (o Outcome) String() string {
	if o.Message == "" {
		return fmt.Sprintf("%s: %s", o.Name, o.Status)
	}
	return fmt.Sprintf("%s: %s: %s", o.Name, o.Status, o.Message)
}
