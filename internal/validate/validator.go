// Package validate checks archive integrity through the external tool.
// Quick mode lists contents without writing anything; deep mode extracts to
// a throwaway temp directory and discards it on every exit path.
package validate

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"unpackrr/internal/bsarch"
	"unpackrr/internal/errs"
	"unpackrr/internal/extract"
	"unpackrr/internal/model"
	"unpackrr/internal/retry"
)

// Mode selects the check depth.
type Mode int

const (
	// Quick lists archive contents only.
	Quick Mode = iota
	// Deep fully extracts to a temporary directory, then discards it.
	Deep
)

func (m Mode) String() string {
	if m == Deep {
		return "deep"
	}
	return "quick"
}

// Event reports per-file check progress.
type Event struct {
	Index int
	Total int
	Name  string
	OK    bool
}

// FileStatus is the outcome of one checked archive.
type FileStatus struct {
	Path  string `json:"path"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Report is the finalized check outcome.
type Report struct {
	Mode      string       `json:"mode"`
	Files     []FileStatus `json:"files"`
	OK        int          `json:"ok"`
	Corrupted int          `json:"corrupted"`
	Cancelled bool         `json:"cancelled"`
}

// CorruptedPaths lists the paths that failed the check.
func (r *Report) CorruptedPaths() []string {
	var paths []string
	for _, f := range r.Files {
		if !f.OK {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// Checker runs integrity checks sequentially, one batch at a time.
type Checker struct {
	tool    bsarch.Invoker
	mode    Mode
	tempDir string
	retry   retry.Config

	mu      sync.Mutex
	running bool
	cancel  chan struct{}
}

// New builds a checker. tempDir only matters in Deep mode; empty uses the
// system default.
func New(tool bsarch.Invoker, mode Mode, tempDir string, cfg retry.Config) (*Checker, error) {
	if tool == nil {
		return nil, &errs.ValidationError{Field: "tool", Reason: "extraction tool is required"}
	}
	if cfg.MaxAttempts < 1 {
		cfg = retry.Quick()
	}
	return &Checker{tool: tool, mode: mode, tempDir: tempDir, retry: cfg}, nil
}

// Cancel stops the running check at the next file boundary.
func (c *Checker) Cancel() {
	c.mu.Lock()
	ch := c.cancel
	c.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Check validates entries in order and returns the report. events is
// optional; sends are best-effort. Setup failures (missing tool) abort.
func (c *Checker) Check(entries []model.FileEntry, events chan<- Event) (*Report, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, &errs.ValidationError{Field: "check", Reason: "a check is already running"}
	}
	c.running = true
	c.cancel = make(chan struct{})
	cancelled := c.cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
	}()

	if v, ok := c.tool.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{"files": len(entries), "mode": c.mode}).Info("starting integrity check")
	report := &Report{Mode: c.mode.String()}
	for i, entry := range entries {
		select {
		case <-cancelled:
			report.Cancelled = true
		default:
		}
		if report.Cancelled {
			break
		}

		err := c.checkOne(entry)
		status := FileStatus{Path: entry.Path, OK: err == nil}
		if err != nil {
			status.Error = errs.UserMessage(err)
			report.Corrupted++
			logrus.WithField("file", entry.Path).Warnf("integrity check failed: %v", err)
		} else {
			report.OK++
		}
		report.Files = append(report.Files, status)
		emit(events, Event{Index: i, Total: len(entries), Name: entry.Name, OK: status.OK})
	}

	logrus.WithFields(logrus.Fields{
		"ok":        report.OK,
		"corrupted": report.Corrupted,
	}).Info("integrity check done")
	return report, nil
}

// checkOne runs the configured mode against a single archive.
func (c *Checker) checkOne(entry model.FileEntry) error {
	if c.mode == Quick {
		return retry.Do(c.retry, func() error {
			_, err := c.tool.List(entry.Path)
			return err
		})
	}

	dir, err := os.MkdirTemp(c.tempDir, "unpackrr-check-")
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logrus.WithField("dir", dir).Warnf("temp cleanup failed: %v", err)
		}
	}()
	return extract.Invoke(c.tool, c.retry, entry.Path, dir)
}

func emit(events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}
