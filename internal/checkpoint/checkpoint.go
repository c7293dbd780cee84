// Package checkpoint implements lightweight progress reporting for
// long-running pass invocations, grounded on original_source/src/checkpoint.py:
// a JSON file under the OS temp directory that external monitoring can poll,
// and that a restarted process can inspect to see how far a prior run got.
// Unlike the journal (internal/journal), which is a replayable record of
// writes, a checkpoint is a disposable progress snapshot — it is never
// replayed, only displayed or inspected.
package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint is one snapshot of a running pass's progress.
type Checkpoint struct {
	JobName     string         `json:"job_name"`
	Total       int            `json:"total"`
	Stats       map[string]int `json:"stats"`
	UpdatedAt   time.Time      `json:"updated_at"`
	PID         int            `json:"pid"`
	Status      string         `json:"status,omitempty"`
	ElapsedSec  float64        `json:"elapsed_sec,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

func path(dir, jobName string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ds_checkpoint_"+jobName+".json")
}

// Save writes the current progress snapshot. Failures are non-fatal by
// design (a checkpoint is an aid, not the source of truth) — the caller
// should log but not abort the pass on a Save error, so Save returns the
// error for the caller to decide.
func Save(dir, jobName string, total int, stats map[string]int) error {
	cp := Checkpoint{JobName: jobName, Total: total, Stats: stats, UpdatedAt: time.Now(), PID: os.Getpid()}
	return write(dir, jobName, cp)
}

// MarkComplete writes the terminal checkpoint for a finished run.
func MarkComplete(dir, jobName string, total int, stats map[string]int, elapsed time.Duration) error {
	now := time.Now()
	cp := Checkpoint{
		JobName: jobName, Total: total, Stats: stats, UpdatedAt: now, PID: os.Getpid(),
		Status: "complete", ElapsedSec: round1(elapsed.Seconds()), CompletedAt: &now,
	}
	return write(dir, jobName, cp)
}

func write(dir, jobName string, cp Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path(dir, jobName), data, 0o644)
}

// Load reads the checkpoint for jobName, if any. Returns the zero value and
// false if no checkpoint file exists or it cannot be parsed.
func Load(dir, jobName string) (Checkpoint, bool) {
	data, err := os.ReadFile(path(dir, jobName))
	if err != nil {
		return Checkpoint{}, false
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false
	}
	return cp, true
}

// Clear removes the checkpoint file after a successful completion.
func Clear(dir, jobName string) error {
	err := os.Remove(path(dir, jobName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
