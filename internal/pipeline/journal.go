package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// StepState represents the execution state of a pipeline step.
type StepState string

const (
	StepPending    StepState = "pending"
	StepInProgress StepState = "in_progress"
	StepCompleted  StepState = "completed"
	StepFailed     StepState = "failed"
)

// Journal is the persisted record of one pipeline run. It is written before
// the first step starts and updated around every step transition, so a
// crashed run leaves behind an accurate account of how far it got.
type Journal struct {
	Version    int          `json:"version"` // Schema version for future evolution
	ID         string       `json:"id"`      // UUID for unique identification
	Pipeline   string       `json:"pipeline,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"` // zero while the run is in flight
	Steps      []StepRecord `json:"steps"`
}

// StepRecord tracks one step's progress through a run.
type StepRecord struct {
	Name      string    `json:"name"`
	State     StepState `json:"state"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
}

// NewJournal creates a journal for a run of the named pipeline with all
// steps pending.
func NewJournal(pipelineName string, stepNames []string, clock Clock) *Journal {
	records := make([]StepRecord, 0, len(stepNames))
	for _, name := range stepNames {
		records = append(records, StepRecord{
			Name:  name,
			State: StepPending,
		})
	}

	return &Journal{
		Version:   1,
		ID:        uuid.New().String(),
		Pipeline:  pipelineName,
		StartedAt: clock.Now().UTC(),
		Steps:     records,
	}
}

// FileName returns the journal's on-disk name, derived from the run ID.
func (j *Journal) FileName() string {
	return fmt.Sprintf("run-%s.json", j.ID)
}

// Save writes the journal to dir atomically.
// Uses write-then-rename pattern for atomicity.
func (j *Journal) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	finalPath := filepath.Join(dir, j.FileName())
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temporary journal file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath) // Clean up temp file on error
		return fmt.Errorf("rename journal file: %w", err)
	}

	// Sync directory for durability
	df, err := os.Open(dir)
	if err == nil {
		if syncErr := df.Sync(); syncErr != nil {
			df.Close()
			return fmt.Errorf("sync journal directory: %w", syncErr)
		}
		df.Close()
	}

	return nil
}

// LoadJournal reads a journal back from disk.
func LoadJournal(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read journal file: %w", err)
	}

	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal journal: %w", err)
	}

	return &j, nil
}

// SetStepState records a state transition for the named step. A positive
// attempts value replaces the recorded attempt count; err replaces or clears
// the step's last error.
func (j *Journal) SetStepState(name string, state StepState, attempts int, err error) {
	for i := range j.Steps {
		if j.Steps[i].Name == name {
			j.Steps[i].State = state
			if attempts > 0 {
				j.Steps[i].Attempts = attempts
			}
			if err != nil {
				j.Steps[i].LastError = err.Error()
			} else {
				j.Steps[i].LastError = ""
			}
			break
		}
	}
}

// Completed returns true if every step finished successfully.
func (j *Journal) Completed() bool {
	for _, s := range j.Steps {
		if s.State != StepCompleted {
			return false
		}
	}
	return len(j.Steps) > 0
}

// Failed returns true if any step failed.
func (j *Journal) Failed() bool {
	for _, s := range j.Steps {
		if s.State == StepFailed {
			return true
		}
	}
	return false
}
