// Package journal implements the JSONL write-ahead backup used as DB-outage
// insurance around batched store writes, grounded on
// original_source/scripts/batch_usps_enrich.py's _save_local_backup /
// replay_backup: a flush whose store write fails is appended to a dated
// JSON-lines file instead, so a DB-unreachable run can be replayed later with
// --replay rather than losing the batch.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Journal appends JSON records to a dated file under dir.
type Journal struct {
	dir  string
	name string
}

// Open ensures dir exists and returns a Journal writing under it. name
// identifies the pass (e.g. "usps", "scan") and becomes part of the filename.
func Open(dir, name string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: mkdir %s: %w", dir, err)
	}
	return &Journal{dir: dir, name: name}, nil
}

// Path returns today's journal file path.
func (j *Journal) Path(now time.Time) string {
	return filepath.Join(j.dir, fmt.Sprintf("%s_%s.jsonl", j.name, now.Format("20060102")))
}

// Append writes one record (as JSON) to today's journal file, flushing
// immediately so a subsequent crash does not lose it.
func (j *Journal) Append(now time.Time, record any) error {
	path := j.Path(now)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer f.Close()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("journal: write %s: %w", path, err)
	}
	return nil
}

// AppendBatch writes each record in records as its own line.
func (j *Journal) AppendBatch(now time.Time, records []any) error {
	for _, r := range records {
		if err := j.Append(now, r); err != nil {
			return err
		}
	}
	return nil
}

// Replay reads every JSON line from path, decoding each into a fresh T,
// and returns the decoded records in file order. Caller is responsible
// for writing them back to the store and for renaming path to mark it
// replayed (see MarkReplayed).
func Replay[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("journal: decode line: %w", err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("journal: scan %s: %w", path, err)
	}
	return out, nil
}

// MarkReplayed renames path to path+".replayed" so it is not replayed twice.
func MarkReplayed(path string) error {
	return os.Rename(path, path+".replayed")
}
