package runner

import "fmt"

// SyncError reports a sync run that started but exited non-zero. The
// message carries the exit code and the captured output so failures are
// diagnosable from the error alone, without digging for run artifacts.
type SyncError struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("cloudquery sync failed with exit code %d", e.ExitCode)
	if e.Stdout != "" {
		msg += "\nstdout:\n" + e.Stdout
	}
	if e.Stderr != "" {
		msg += "\nstderr:\n" + e.Stderr
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Retryable is always true: a non-zero exit usually means a transient
// provider or network problem on the CloudQuery side, and the sync is
// safe to repeat.
func (e *SyncError) Retryable() bool {
	return true
}
