// Package pipeline orchestrates a full cqflow run as an explicit sequence
// of named steps. The canonical pipeline fetches the CloudQuery binary and
// then runs a sync with it; each step gets a retry budget, and every run is
// recorded in an on-disk journal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/cqflow/cqflow/internal/config"
	"github.com/cqflow/cqflow/internal/fetch"
	"github.com/cqflow/cqflow/internal/runner"
)

const (
	// StepFetch resolves the CloudQuery binary for the host platform.
	StepFetch = "fetch"

	// StepSync runs the CloudQuery sync subprocess.
	StepSync = "sync"

	// DefaultRetryDelay is the pause between step attempts.
	DefaultRetryDelay = 2 * time.Second
)

// State carries the bindings steps hand to each other during a run.
type State struct {
	// BinaryPath is set by the fetch step and consumed by the sync step.
	BinaryPath string

	// SpecFile is the sync spec the sync step passes to CloudQuery.
	SpecFile string

	// Result holds the captured sync outcome once the sync step ran. It is
	// populated even when the step fails, so the output survives the error.
	Result *runner.Result
}

// Step is one named unit of work in a pipeline.
type Step struct {
	Name string
	Run  func(ctx context.Context, st *State) error
}

// RunResult summarizes a completed pipeline run.
type RunResult struct {
	RunID       string
	BinaryPath  string
	Sync        *runner.Result
	JournalPath string
	Duration    time.Duration
}

// Pipeline executes an ordered list of steps against a shared State.
type Pipeline struct {
	name       string
	steps      []Step
	retries    int
	retryDelay time.Duration
	stateDir   string
	initState  State
	clock      Clock
	logger     Logger
}

// Option is a function that modifies pipeline options.
type Option func(*options)

type options struct {
	stateDir   string
	retries    int
	retriesSet bool
	retryDelay time.Duration
	clock      Clock
	logger     Logger
	resolver   *fetch.Resolver
	syncStdout io.Writer
	syncStderr io.Writer
}

// WithStateDir enables run journaling under <dir>/runs.
func WithStateDir(dir string) Option {
	return func(o *options) {
		o.stateDir = dir
	}
}

// WithRetries overrides the per-step retry budget from the config.
func WithRetries(n int) Option {
	return func(o *options) {
		o.retries = n
		o.retriesSet = true
	}
}

// WithRetryDelay sets the pause between step attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		o.retryDelay = d
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the structured logger for run progress.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithResolver injects a preconfigured binary resolver into the fetch step.
// Tests use it to point downloads at a local server.
func WithResolver(r *fetch.Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithSyncOutput streams the sync subprocess's output to the given writers
// while it runs, in addition to the buffered capture.
func WithSyncOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.syncStdout = stdout
		o.syncStderr = stderr
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = RealClock{}
	}
	if o.logger == nil {
		o.logger = &noopLogger{}
	}
	return o
}

// NewResolver maps a parsed config onto a binary resolver. The CLI uses it
// directly so flag handling and the run pipeline share one resolver.
func NewResolver(cfg *config.Config, logger Logger) *fetch.Resolver {
	if logger == nil {
		logger = &noopLogger{}
	}

	downloader := fetch.NewDownloader(fetch.DownloaderConfig{
		Timeout: cfg.Download.Timeout,
		Retries: cfg.Download.Retries,
		Logger:  logger,
	})

	return fetch.NewResolver(fetch.ResolverConfig{
		Downloader: downloader,
		CacheDir:   cfg.Cache.Dir,
		Versioned:  cfg.Cache.Versioned,
		Verify: fetch.VerifyConfig{
			Checksum:      cfg.Verify.Checksum,
			ChecksumsFile: cfg.Verify.ChecksumsFile,
			PublicKeyPath: cfg.Verify.PublicKey,
		},
		Logger: logger,
	})
}

// New builds the canonical fetch-then-sync pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	o := applyOptions(opts)

	resolver := o.resolver
	if resolver == nil {
		resolver = NewResolver(cfg, o.logger)
	}

	steps := []Step{
		{
			Name: StepFetch,
			Run: func(ctx context.Context, st *State) error {
				path, err := resolver.Resolve(ctx, cfg.Version)
				if err != nil {
					return err
				}
				st.BinaryPath = path
				return nil
			},
		},
		{
			Name: StepSync,
			Run: func(ctx context.Context, st *State) error {
				clientOpts := []runner.Option{
					runner.WithLogger(o.logger),
				}
				if cfg.Sync.Timeout > 0 {
					clientOpts = append(clientOpts, runner.WithTimeout(cfg.Sync.Timeout))
				}
				if len(cfg.Sync.Env) > 0 {
					clientOpts = append(clientOpts, runner.WithEnv(cfg.Sync.Env))
				}
				if o.syncStdout != nil {
					clientOpts = append(clientOpts, runner.WithStdoutWriter(o.syncStdout))
				}
				if o.syncStderr != nil {
					clientOpts = append(clientOpts, runner.WithStderrWriter(o.syncStderr))
				}

				client := runner.NewClient(st.BinaryPath, clientOpts...)
				result, err := client.Sync(ctx, st.SpecFile)
				st.Result = result
				return err
			},
		},
	}

	name := cfg.Name
	if name == "" {
		name = "default"
	}

	retries := cfg.Retries
	if o.retriesSet {
		retries = o.retries
	}

	p := NewWithSteps(name, steps, opts...)
	p.retries = retries
	p.initState = State{SpecFile: cfg.SpecFile}
	return p
}

// NewWithSteps builds a pipeline over explicit steps. New uses it for the
// canonical flow; tests use it directly with synthetic steps.
func NewWithSteps(name string, steps []Step, opts ...Option) *Pipeline {
	o := applyOptions(opts)

	retries := 0
	if o.retriesSet {
		retries = o.retries
	}

	return &Pipeline{
		name:       name,
		steps:      steps,
		retries:    retries,
		retryDelay: o.retryDelay,
		stateDir:   o.stateDir,
		clock:      o.clock,
		logger:     o.logger,
	}
}

// Name returns the pipeline's name.
func (p *Pipeline) Name() string {
	return p.name
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes the steps in order and returns the run summary. The first
// step that exhausts its attempts aborts the run; its error is returned
// wrapped with the step name, and the journal records how far the run got.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	start := p.clock.Now()

	stepNames := make([]string, len(p.steps))
	for i, s := range p.steps {
		stepNames[i] = s.Name
	}
	journal := NewJournal(p.name, stepNames, p.clock)

	journalPath := ""
	journalDir := ""
	if p.stateDir != "" {
		journalDir = filepath.Join(p.stateDir, "runs")
		journalPath = filepath.Join(journalDir, journal.FileName())
		if err := journal.Save(journalDir); err != nil {
			return nil, fmt.Errorf("save run journal: %w", err)
		}
	}

	p.logger.Info("pipeline run started",
		"pipeline", p.name,
		"run_id", journal.ID)

	st := p.initState

	for _, step := range p.steps {
		journal.SetStepState(step.Name, StepInProgress, 0, nil)
		if err := p.saveJournal(journal, journalDir); err != nil {
			return nil, err
		}

		p.logger.Info("step started", "pipeline", p.name, "step", step.Name)

		attempts, err := p.runStep(ctx, step, &st)
		if err != nil {
			journal.SetStepState(step.Name, StepFailed, attempts, err)
			journal.FinishedAt = p.clock.Now().UTC()
			p.saveJournalBestEffort(journal, journalDir)

			p.logger.Error("step failed",
				"pipeline", p.name,
				"step", step.Name,
				"attempts", attempts,
				"error", err.Error())

			if journalPath != "" {
				return nil, fmt.Errorf("step %s failed: %w (run journal saved to %s)", step.Name, err, journalPath)
			}
			return nil, fmt.Errorf("step %s failed: %w", step.Name, err)
		}

		journal.SetStepState(step.Name, StepCompleted, attempts, nil)
		if err := p.saveJournal(journal, journalDir); err != nil {
			return nil, err
		}

		p.logger.Debug("step completed",
			"pipeline", p.name,
			"step", step.Name,
			"attempts", attempts)
	}

	journal.FinishedAt = p.clock.Now().UTC()
	if err := p.saveJournal(journal, journalDir); err != nil {
		return nil, err
	}

	duration := p.clock.Now().Sub(start)
	p.logger.Info("pipeline run completed",
		"pipeline", p.name,
		"run_id", journal.ID,
		"duration", duration.String())

	return &RunResult{
		RunID:       journal.ID,
		BinaryPath:  st.BinaryPath,
		Sync:        st.Result,
		JournalPath: journalPath,
		Duration:    duration,
	}, nil
}

// runStep executes one step with up to retries+1 attempts. The attempt loop
// stops early on context cancellation and on errors that declare themselves
// non-retryable.
func (p *Pipeline) runStep(ctx context.Context, step Step, st *State) (int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("step failed, retrying",
				"step", step.Name,
				"attempt", attempt+1,
				"error", lastErr.Error())

			select {
			case <-ctx.Done():
				return attempts, fmt.Errorf("%w (last attempt: %w)", ctx.Err(), lastErr)
			case <-time.After(p.retryDelay):
			}
		}

		attempts++
		lastErr = step.Run(ctx, st)
		if lastErr == nil {
			return attempts, nil
		}

		// A cancelled context means the step error is final no matter
		// what it thinks about retryability.
		if ctx.Err() != nil {
			return attempts, lastErr
		}

		if !isRetryable(lastErr) {
			return attempts, lastErr
		}
	}

	return attempts, lastErr
}

// saveJournal persists the journal when journaling is enabled.
func (p *Pipeline) saveJournal(j *Journal, dir string) error {
	if dir == "" {
		return nil
	}
	if err := j.Save(dir); err != nil {
		return fmt.Errorf("save run journal: %w", err)
	}
	return nil
}

// saveJournalBestEffort persists the journal on the failure path, where a
// save error must not mask the step error that caused the failure.
func (p *Pipeline) saveJournalBestEffort(j *Journal, dir string) {
	if dir == "" {
		return
	}
	if err := j.Save(dir); err != nil {
		p.logger.Warn("failed to save run journal", "error", err.Error())
	}
}

// retryableError is implemented by errors that know whether another attempt
// could plausibly succeed.
type retryableError interface {
	Retryable() bool
}

// isRetryable reports whether err is worth another attempt. Errors that do
// not classify themselves are treated as retryable.
func isRetryable(err error) bool {
	var r retryableError
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}
