// Package lockfile provides exclusive lock files for paths shared between
// processes, such as the downloaded binary cache. Locks are plain files
// created with O_EXCL; a lock left behind by a dead process is broken once
// it passes a staleness threshold.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// StaleThreshold is the maximum age of a lock before it's considered stale.
	StaleThreshold = 10 * time.Minute

	// DefaultPollInterval is how often AcquireWait re-attempts acquisition.
	DefaultPollInterval = 200 * time.Millisecond
)

var (
	ErrLockExists = errors.New("lock exists: another process may be using this path")
	ErrStaleLock  = errors.New("stale lock detected")
)

// Lock represents a held lock file.
type Lock struct {
	path string
	file *os.File
}

// Acquire attempts to acquire an exclusive lock file named name in dir.
// Uses O_CREATE|O_EXCL for atomic lock creation. A stale lock (older than
// StaleThreshold) is removed and acquisition retried once.
func Acquire(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, name)

	// Try to create lock file exclusively
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if os.IsExist(err) {
			// Lock exists - check if it's stale
			if stale, _ := isStale(lockPath); stale {
				// Remove stale lock and retry once
				os.Remove(lockPath)
				file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
				if err != nil {
					return nil, ErrLockExists
				}
			} else {
				return nil, ErrLockExists
			}
		} else {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
	}

	// Write lock metadata (PID and timestamp)
	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{
		path: lockPath,
		file: file,
	}, nil
}

// AcquireWait acquires the lock, polling while another process holds it.
// It returns the lock as soon as acquisition succeeds, or the context error
// once ctx is done. Errors other than ErrLockExists are returned immediately.
func AcquireWait(ctx context.Context, dir, name string) (*Lock, error) {
	for {
		lock, err := Acquire(dir, name)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockExists) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s: %w", name, ctx.Err())
		case <-time.After(DefaultPollInterval):
		}
	}
}

// Release releases the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		path := l.path
		l.path = ""
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}

	return nil
}

// Path returns the lock file path (empty after release).
func (l *Lock) Path() string {
	return l.path
}

// isStale checks if a lock file is older than the stale lock threshold.
func isStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}

	age := time.Since(info.ModTime())
	return age > StaleThreshold, nil
}
