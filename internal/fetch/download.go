package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Downloader performs HTTP downloads with retry logic and atomic writes.
type Downloader struct {
	client    *http.Client
	userAgent string
	retries   int
	logger    Logger
}

// DownloaderConfig configures a Downloader. Zero values select defaults
// except Retries, which is taken as-is so callers can disable retrying.
type DownloaderConfig struct {
	// Timeout bounds each HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration

	// Retries is the number of additional attempts after the first.
	// Negative values are treated as zero.
	Retries int

	// UserAgent overrides the User-Agent header. Empty means
	// DefaultUserAgent.
	UserAgent string

	// Logger receives download progress. Nil means no logging.
	Logger Logger
}

// NewDownloader creates a downloader from cfg.
func NewDownloader(cfg DownloaderConfig) *Downloader {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &noopLogger{}
	}

	return &Downloader{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		retries:   retries,
		logger:    logger,
	}
}

// DownloadToFile downloads a URL to a specific file path. Transient
// failures are retried with exponential backoff; terminal failures
// (client errors) abort immediately.
func (d *Downloader) DownloadToFile(ctx context.Context, url, destPath string) error {
	var lastErr error

	for attempt := 0; attempt <= d.retries; attempt++ {
		// Check context before each attempt
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			d.logger.Debug("retrying download",
				"url", url,
				"attempt", attempt,
				"backoff", backoff.String())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := d.downloadOnce(ctx, url, destPath)
		if err == nil {
			return nil
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A 4xx will not heal on its own, so stop here
		var dlErr *DownloadError
		if errors.As(err, &dlErr) && !dlErr.Retryable() {
			return err
		}
	}

	return fmt.Errorf("download failed after %d retries: %w", d.retries, lastErr)
}

// downloadOnce performs a single download attempt
func (d *Downloader) downloadOnce(ctx context.Context, url, destPath string) error {
	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)

	// Execute request
	resp, err := d.client.Do(req)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode != http.StatusOK {
		return &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	// Create destination directory
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	// Create temporary file
	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath) // Clean up on error
		}
	}()

	// Copy response body to file
	_, err = io.Copy(tmpFile, resp.Body)
	if err != nil {
		return &DownloadError{URL: url, Err: fmt.Errorf("copy response body: %w", err)}
	}

	// Close temp file before rename
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	// Success - don't clean up the temp file (it's been renamed)
	cleanupNeeded = false
	return nil
}
