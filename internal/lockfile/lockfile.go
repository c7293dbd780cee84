// Package lockfile prevents two scheduler runs against the same credential
// pool from burning double API quota, grounded on the PID-file pattern in
// original_source/scripts/batch_usps_enrich.py (acquire_lock/release_lock):
// a stale lock (owning PID no longer alive) is reclaimed automatically
// rather than requiring a human to delete the file.
package lockfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrHeld is returned when another live process holds the lock.
type ErrHeld struct {
	Path string
	PID  int
}

func (e *ErrHeld) Error() string {
	return fmt.Sprintf("lockfile %s held by running process %d", e.Path, e.PID)
}

// Lock is an acquired, held PID lockfile. Release removes it.
type Lock struct {
	path string
}

// Acquire creates path containing the current PID. If path already exists
// and names a still-running process, Acquire returns *ErrHeld. If it names a
// process that is no longer running, the stale file is replaced.
func Acquire(path string) (*Lock, error) {
	if existing, err := os.ReadFile(path); err == nil {
		pid, perr := strconv.Atoi(strings.TrimSpace(string(existing)))
		if perr == nil && processAlive(pid) {
			return nil, &ErrHeld{Path: path, PID: pid}
		}
		_ = os.Remove(path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lockfile. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// processAlive reports whether pid names a live process, using the
// kill(pid, 0) convention (no signal is actually delivered).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
