// Package runner invokes the CloudQuery CLI binary as a subprocess. It
// captures stdout and stderr separately, translates non-zero exits into
// typed errors, and honors context cancellation and per-run timeouts.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Options configures sync execution behavior.
type Options struct {
	// Timeout bounds one sync run. Zero means no limit beyond ctx.
	Timeout time.Duration

	// Env holds variables appended to the current environment.
	Env map[string]string

	// WorkingDir is the subprocess working directory. Empty inherits
	// the caller's.
	WorkingDir string

	// StdoutWriter and StderrWriter receive a live copy of the
	// subprocess output in addition to the buffered capture.
	StdoutWriter io.Writer
	StderrWriter io.Writer

	// Logger receives run progress. Nil disables logging.
	Logger Logger
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithTimeout bounds each sync run.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithEnv adds environment variables for the subprocess.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithEnvVar adds a single environment variable.
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}

// WithWorkingDir sets the subprocess working directory.
func WithWorkingDir(dir string) Option {
	return func(o *Options) {
		o.WorkingDir = dir
	}
}

// WithStdoutWriter streams subprocess stdout to w as it arrives.
func WithStdoutWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StdoutWriter = w
	}
}

// WithStderrWriter streams subprocess stderr to w as it arrives.
func WithStderrWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StderrWriter = w
	}
}

// WithLogger sets the structured logger for run progress.
func WithLogger(l Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Result holds the outcome of one subprocess run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Client runs a specific CloudQuery binary.
type Client struct {
	binaryPath string
	options    *Options
	logger     Logger
}

// NewClient creates a client for the binary at binaryPath.
func NewClient(binaryPath string, opts ...Option) *Client {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.Logger
	if logger == nil {
		logger = &noopLogger{}
	}

	return &Client{
		binaryPath: binaryPath,
		options:    options,
		logger:     logger,
	}
}

// BinaryPath returns the binary this client runs.
func (c *Client) BinaryPath() string {
	return c.binaryPath
}

// Sync runs "cloudquery sync <specFile>" and returns the captured result.
// A non-zero exit returns the result together with a *SyncError; the
// caller still gets the full captured output either way.
func (c *Client) Sync(ctx context.Context, specFile string) (*Result, error) {
	if c.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.binaryPath, "sync", specFile)
	c.setupCommand(cmd)
	stdoutBuf, stderrBuf := c.setupOutputCapture(cmd)

	c.logger.Info("starting cloudquery sync",
		"binary", c.binaryPath,
		"spec", specFile)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		ExitCode: exitCode(err),
		Duration: duration,
	}

	if err != nil {
		// A killed subprocess also surfaces as an ExitError, so the
		// context check has to come first to report timeouts as such.
		if ctx.Err() != nil {
			c.logger.Error("sync aborted",
				"spec", specFile,
				"duration", duration.String(),
				"error", ctx.Err().Error())
			return result, fmt.Errorf("cloudquery sync: %w", ctx.Err())
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			c.logger.Error("sync failed",
				"spec", specFile,
				"exit_code", result.ExitCode,
				"duration", duration.String())
			return result, &SyncError{
				ExitCode: result.ExitCode,
				Stdout:   result.Stdout,
				Stderr:   result.Stderr,
				Err:      err,
			}
		}

		return result, fmt.Errorf("start cloudquery: %w", err)
	}

	c.logger.Info("sync completed",
		"spec", specFile,
		"duration", duration.String())

	return result, nil
}

// Version runs "cloudquery --version" and returns the trimmed output.
func (c *Client) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, c.binaryPath, "--version")
	c.setupCommand(cmd)

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("query cloudquery version: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// setupCommand configures working directory and environment.
func (c *Client) setupCommand(cmd *exec.Cmd) {
	if c.options.WorkingDir != "" {
		cmd.Dir = c.options.WorkingDir
	}

	if len(c.options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
}

// setupOutputCapture wires buffered capture, teeing to the configured
// writers when present.
func (c *Client) setupOutputCapture(cmd *exec.Cmd) (*bytes.Buffer, *bytes.Buffer) {
	var stdoutBuf, stderrBuf bytes.Buffer

	stdoutWriters := []io.Writer{&stdoutBuf}
	if c.options.StdoutWriter != nil {
		stdoutWriters = append(stdoutWriters, c.options.StdoutWriter)
	}
	cmd.Stdout = io.MultiWriter(stdoutWriters...)

	stderrWriters := []io.Writer{&stderrBuf}
	if c.options.StderrWriter != nil {
		stderrWriters = append(stderrWriters, c.options.StderrWriter)
	}
	cmd.Stderr = io.MultiWriter(stderrWriters...)

	return &stdoutBuf, &stderrBuf
}

// exitCode extracts the subprocess exit code from a Run error.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	switch {
	case err != nil && errors.As(err, &exitErr):
		return exitErr.ExitCode()
	case err == nil:
		return 0
	default:
		return -1
	}
}
