// Package scan discovers container archives under a root directory. It
// traverses exactly two tiers (root, then each first-level "mod folder"),
// filters candidates by postfix and ignore rules, and classifies each hit by
// parsing its header.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/Jeffail/tunny"
	"github.com/sirupsen/logrus"

	"unpackrr/internal/ba2"
	"unpackrr/internal/config"
	"unpackrr/internal/model"
)

// EventKind tags scan progress events.
type EventKind int

const (
	// EventStarted opens the stream; TotalFolders is set.
	EventStarted EventKind = iota
	// EventScanningFolder reports a mod folder being entered; Folder is set.
	EventScanningFolder
	// EventFoundContainer reports one discovered archive; Entry is set.
	EventFoundContainer
	// EventCompleted closes the stream; Summary is set.
	EventCompleted
)

// Event is one element of the per-scan progress stream.
type Event struct {
	Kind         EventKind
	TotalFolders int
	Folder       string
	Entry        *model.FileEntry
	Summary      *Summary
}

// Summary aggregates a finished scan.
type Summary struct {
	Found     int    `json:"found"`
	Corrupted int    `json:"corrupted"`
	Ignored   int    `json:"ignored"`
	TotalSize uint64 `json:"total_size"`
}

// Scanner discovers archives for one settings value. Safe for repeated
// scans; each Scan builds a fresh list and emits a fresh event stream.
type Scanner struct {
	postfixes []string
	ignores   *config.IgnoreSet
	workers   int
}

// New validates settings and builds a scanner from them.
func New(settings config.Settings) (*Scanner, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	ignores, err := config.NewIgnoreSet(settings.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	postfixes := make([]string, len(settings.Postfixes))
	for i, p := range settings.Postfixes {
		postfixes[i] = strings.ToLower(p)
	}
	workers := settings.ScanWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{postfixes: postfixes, ignores: ignores, workers: workers}, nil
}

type folderResult struct {
	entries []model.FileEntry
	ignored int
}

// Scan walks root's mod folders in parallel and returns the discovered
// entries sorted by size ascending (full path breaking ties). events is
// optional; sends are best-effort and never block or fail the scan.
func (s *Scanner) Scan(root string, events chan<- Event) (model.FileEntryList, error) {
	info, err := os.Stat(root)
	if err != nil {
		return model.FileEntryList{}, fmt.Errorf("scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return model.FileEntryList{}, fmt.Errorf("scan root %s: not a directory", root)
	}

	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return model.FileEntryList{}, fmt.Errorf("read scan root %s: %w", root, err)
	}
	folders := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			folders = append(folders, filepath.Join(root, de.Name()))
		}
	}
	logrus.WithFields(logrus.Fields{"root": root, "folders": len(folders)}).Debug("starting scan")
	emit(events, Event{Kind: EventStarted, TotalFolders: len(folders)})

	pool := tunny.NewFunc(s.workers, func(payload interface{}) interface{} {
		return s.scanModFolder(payload.(string), events)
	})
	defer pool.Close()

	results := make([]folderResult, len(folders))
	var wg sync.WaitGroup
	for i, folder := range folders {
		wg.Add(1)
		go func(i int, folder string) {
			defer wg.Done()
			results[i] = pool.Process(folder).(folderResult)
		}(i, folder)
	}
	wg.Wait()

	list := model.FileEntryList{}
	ignored := 0
	for _, r := range results {
		list.Entries = append(list.Entries, r.entries...)
		ignored += r.ignored
	}
	list.Sort(model.SortBySize, false)

	summary := &Summary{
		Found:     list.Len(),
		Corrupted: list.CorruptedCount(),
		Ignored:   ignored,
		TotalSize: list.TotalSize(),
	}
	emit(events, Event{Kind: EventCompleted, Summary: summary})
	logrus.WithFields(logrus.Fields{
		"found":     summary.Found,
		"corrupted": summary.Corrupted,
		"ignored":   summary.Ignored,
	}).Debug("scan complete")
	return list, nil
}

// scanModFolder collects matching archives in one folder. Unreadable folders
// and files degrade to warnings or corrupted entries, never scan failures.
func (s *Scanner) scanModFolder(dir string, events chan<- Event) folderResult {
	folderName := filepath.Base(dir)
	emit(events, Event{Kind: EventScanningFolder, Folder: folderName})

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		logrus.WithField("folder", dir).Warnf("skipping unreadable mod folder: %v", err)
		return folderResult{}
	}

	var res folderResult
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !s.matchesPostfix(name) {
			continue
		}
		path := filepath.Join(dir, name)
		if s.ignores.MatchesPath(path) {
			logrus.WithField("file", path).Debug("ignoring archive")
			res.ignored++
			continue
		}

		entry := model.FileEntry{
			Name:      name,
			ModFolder: folderName,
			Path:      path,
		}
		if info, err := de.Info(); err == nil {
			entry.Size = uint64(info.Size())
		} else {
			logrus.WithField("file", path).Warnf("stat failed: %v", err)
			entry.Corrupted = true
		}
		if h, err := ba2.ParseFile(path); err == nil {
			entry.NumFiles = h.FileCount
		} else {
			logrus.WithField("file", path).Warnf("header parse failed: %v", err)
			entry.Corrupted = true
		}

		res.entries = append(res.entries, entry)
		emit(events, Event{Kind: EventFoundContainer, Entry: &entry})
	}
	return res
}

func (s *Scanner) matchesPostfix(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range s.postfixes {
		if strings.HasSuffix(lower, p) {
			return true
		}
	}
	return false
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
