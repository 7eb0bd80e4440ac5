package fetch

import "fmt"

// DownloadError reports a failed download attempt. StatusCode is zero when
// the failure happened before an HTTP response was received (DNS, connect,
// body copy).
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could plausibly succeed.
// Client errors (4xx) are terminal: the asset does not exist or the request
// is malformed, and repeating it only hammers the release host.
func (e *DownloadError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500
}

// VerifyError reports an artifact that failed integrity or signature
// verification. The cached file is removed before this error is returned,
// so a later resolve starts from a clean slate.
type VerifyError struct {
	Path   string
	Reason string
	Err    error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verify %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("verify %s: %s", e.Path, e.Reason)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// Retryable is always false: a bad artifact will not become good by
// downloading it again from the same URL.
func (e *VerifyError) Retryable() bool {
	return false
}
