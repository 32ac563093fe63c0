// Package extract runs batch extraction through the external tool: one
// sequential dispatch loop per batch, racing a control channel so pause,
// resume and cancel land between files, never mid-process.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"unpackrr/internal/bsarch"
	"unpackrr/internal/errs"
	"unpackrr/internal/model"
	"unpackrr/internal/retry"
)

// State is the batch lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCancelled
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	case StateFinished:
		return "finished"
	default:
		return "idle"
	}
}

// Signal is a control request from the presentation layer.
type Signal int

const (
	SignalPause Signal = iota
	SignalResume
	SignalCancel
)

// EventKind tags extraction progress events.
type EventKind int

const (
	// EventStarted opens the stream; Total is set.
	EventStarted EventKind = iota
	// EventFileStarted reports dispatch of one file; Index and Name are set.
	EventFileStarted
	// EventFileCompleted reports one finished file; Index, Success and
	// (on failure) Message are set.
	EventFileCompleted
	EventPaused
	EventResumed
	EventCancelled
	// EventFinished closes the stream; Result is set.
	EventFinished
)

// Event is one element of the per-batch progress stream.
type Event struct {
	Kind    EventKind
	Total   int
	Index   int
	Name    string
	Success bool
	Message string
	Result  *Result
}

// FileResult is the outcome of one attempted file.
type FileResult struct {
	Path    string `json:"path"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Result is the finalized batch outcome. Files holds attempted files only;
// a cancelled batch excludes everything not yet dispatched.
type Result struct {
	Files     []FileResult `json:"files"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Cancelled bool         `json:"cancelled"`
}

// DestMode selects where extracted output goes.
type DestMode int

const (
	// DestInPlace extracts next to the source archive.
	DestInPlace DestMode = iota
	// DestPath extracts into Options.Path.
	DestPath
	// DestTemp extracts into a fresh temporary directory that is removed
	// after each file. Integrity checking uses this mode.
	DestTemp
)

// Options configures one orchestrator.
type Options struct {
	// Tool performs the actual extraction.
	Tool bsarch.Invoker
	// Dest selects the destination mode.
	Dest DestMode
	// Path is the destination directory for DestPath.
	Path string
	// TempDir overrides the parent of DestTemp directories. Empty uses the
	// system default.
	TempDir string
	// Retry governs transient-failure retries per file.
	Retry retry.Config
}

// Orchestrator runs extraction batches. One batch at a time per instance;
// Run fails fast if a batch is already in flight.
type Orchestrator struct {
	opts Options

	mu      sync.Mutex
	state   State
	control chan Signal
}

// New validates opts and builds an idle orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Tool == nil {
		return nil, &errs.ValidationError{Field: "tool", Reason: "extraction tool is required"}
	}
	if opts.Dest == DestPath && opts.Path == "" {
		return nil, &errs.ValidationError{Field: "destination", Reason: "destination path is required"}
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = retry.Default()
	}
	return &Orchestrator{opts: opts, state: StateIdle}, nil
}

// State reports the current batch state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pause requests suspension at the next file boundary.
func (o *Orchestrator) Pause() { o.signal(SignalPause) }

// Resume requests continuation of a paused batch.
func (o *Orchestrator) Resume() { o.signal(SignalResume) }

// Cancel requests a stop at the next file boundary. The file in flight, if
// any, finishes naturally.
func (o *Orchestrator) Cancel() { o.signal(SignalCancel) }

func (o *Orchestrator) signal(sig Signal) {
	o.mu.Lock()
	ch := o.control
	o.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- sig:
	default:
	}
}

// Run extracts entries in order, emitting progress on events (optional,
// best-effort). It returns an error only for batch-level setup failures;
// per-file failures are recorded in the Result and the batch continues.
func (o *Orchestrator) Run(entries []model.FileEntry, events chan<- Event) (*Result, error) {
	o.mu.Lock()
	if o.state == StateRunning || o.state == StatePaused {
		o.mu.Unlock()
		return nil, fmt.Errorf("extraction batch already running")
	}
	o.state = StateRunning
	o.control = make(chan Signal, 8)
	o.mu.Unlock()

	finalize := func(s State) {
		o.mu.Lock()
		o.state = s
		o.control = nil
		o.mu.Unlock()
	}

	if v, ok := o.opts.Tool.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			finalize(StateIdle)
			return nil, err
		}
	}

	logrus.WithField("files", len(entries)).Info("starting extraction batch")
	emit(events, Event{Kind: EventStarted, Total: len(entries)})

	result := &Result{}
	for i, entry := range entries {
		if o.waitAtBoundary(events) {
			result.Cancelled = true
			emit(events, Event{Kind: EventCancelled})
			break
		}

		emit(events, Event{Kind: EventFileStarted, Index: i, Name: entry.Name})
		err := o.extractOne(entry)

		fr := FileResult{Path: entry.Path, Success: err == nil}
		if err != nil {
			fr.Error = errs.UserMessage(err)
			result.Failed++
			logrus.WithField("file", entry.Path).Warnf("extraction failed: %v", err)
		} else {
			result.Succeeded++
		}
		result.Files = append(result.Files, fr)
		emit(events, Event{
			Kind:    EventFileCompleted,
			Index:   i,
			Name:    entry.Name,
			Success: fr.Success,
			Message: fr.Error,
		})
	}

	emit(events, Event{Kind: EventFinished, Result: result})
	logrus.WithFields(logrus.Fields{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"cancelled": result.Cancelled,
	}).Info("extraction batch done")

	if result.Cancelled {
		finalize(StateCancelled)
	} else {
		finalize(StateFinished)
	}
	return result, nil
}

// waitAtBoundary drains pending control signals before the next dispatch.
// Pause blocks here until resume or cancel arrives. Returns true on cancel.
func (o *Orchestrator) waitAtBoundary(events chan<- Event) bool {
	for {
		select {
		case sig := <-o.controlChan():
			if stop, done := o.handleSignal(sig, events); done {
				return stop
			}
		default:
			return false
		}
	}
}

// handleSignal applies one control signal. The second return is true when
// the caller should stop polling and use the first return as the cancel
// decision.
func (o *Orchestrator) handleSignal(sig Signal, events chan<- Event) (cancelled, done bool) {
	switch sig {
	case SignalCancel:
		return true, true
	case SignalPause:
		o.setState(StatePaused)
		emit(events, Event{Kind: EventPaused})
		logrus.Info("extraction paused")
		// Block until resumed or cancelled.
		for sig := range o.controlChan() {
			switch sig {
			case SignalResume:
				o.setState(StateRunning)
				emit(events, Event{Kind: EventResumed})
				logrus.Info("extraction resumed")
				return false, false
			case SignalCancel:
				return true, true
			}
		}
		return false, false
	default:
		return false, false
	}
}

func (o *Orchestrator) controlChan() chan Signal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.control
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// extractOne resolves the destination and runs the tool with retries.
func (o *Orchestrator) extractOne(entry model.FileEntry) error {
	dst, cleanup, err := o.resolveDest(entry)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return Invoke(o.opts.Tool, o.opts.Retry, entry.Path, dst)
}

// resolveDest maps the configured destination mode to a concrete directory.
// The cleanup func, when non-nil, must run after the file is processed.
func (o *Orchestrator) resolveDest(entry model.FileEntry) (string, func(), error) {
	switch o.opts.Dest {
	case DestPath:
		if err := os.MkdirAll(o.opts.Path, 0o755); err != nil {
			return "", nil, fmt.Errorf("create destination %s: %w", o.opts.Path, err)
		}
		return o.opts.Path, nil, nil
	case DestTemp:
		dir, err := os.MkdirTemp(o.opts.TempDir, "unpackrr-")
		if err != nil {
			return "", nil, fmt.Errorf("create temp destination: %w", err)
		}
		return dir, func() {
			if err := os.RemoveAll(dir); err != nil {
				logrus.WithField("dir", dir).Warnf("temp cleanup failed: %v", err)
			}
		}, nil
	default:
		return filepath.Dir(entry.Path), nil, nil
	}
}

// Invoke runs one extraction through the tool with transient retries. The
// integrity checker shares this primitive.
func Invoke(tool bsarch.Invoker, cfg retry.Config, src, dst string) error {
	return retry.Do(cfg, func() error {
		return tool.Extract(src, dst)
	})
}

// emit never blocks: a full or abandoned receiver drops events silently.
func emit(events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}
