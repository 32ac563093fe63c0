package validate

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"unpackrr/internal/errs"
	"unpackrr/internal/model"
	"unpackrr/internal/retry"
)

// fakeTool observes the temp directory it is handed so tests can assert
// cleanup behavior.
type fakeTool struct {
	mu        sync.Mutex
	listCalls []string
	extracted []string
	failFor   map[string]error
	started   chan string
	proceed   chan struct{}
}

func newFakeTool() *fakeTool {
	return &fakeTool{failFor: map[string]error{}}
}

func (f *fakeTool) Extract(src, dst string) error {
	f.mu.Lock()
	f.extracted = append(f.extracted, dst)
	err := f.failFor[src]
	f.mu.Unlock()
	if f.started != nil {
		f.started <- src
		<-f.proceed
	}
	return err
}

func (f *fakeTool) List(src string) ([]string, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, src)
	err := f.failFor[src]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return []string{"textures/a.dds"}, nil
}

func entries(paths ...string) []model.FileEntry {
	out := make([]model.FileEntry, len(paths))
	for i, p := range paths {
		out[i] = model.FileEntry{Name: filepath.Base(p), Path: p}
	}
	return out
}

func oneShot() retry.Config { return retry.Config{MaxAttempts: 1} }

func TestQuick_ClassifiesFiles(t *testing.T) {
	tool := newFakeTool()
	tool.failFor["/m/bad.ba2"] = &errs.ToolError{Path: "/m/bad.ba2", Output: "Error: unreadable"}

	c, err := New(tool, Quick, "", oneShot())
	if err != nil {
		t.Fatal(err)
	}
	report, err := c.Check(entries("/m/good.ba2", "/m/bad.ba2"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.OK != 1 || report.Corrupted != 1 || len(report.Files) != 2 {
		t.Fatalf("report = %+v", report)
	}
	if got := report.CorruptedPaths(); len(got) != 1 || got[0] != "/m/bad.ba2" {
		t.Fatalf("corrupted paths = %v", got)
	}
	if len(tool.extracted) != 0 {
		t.Fatalf("quick mode must not extract")
	}
}

func TestDeep_RemovesTempOnSuccessAndFailure(t *testing.T) {
	tool := newFakeTool()
	tool.failFor["/m/bad.ba2"] = &errs.ToolError{Path: "/m/bad.ba2", Output: "Error: broken"}

	tempRoot := t.TempDir()
	c, err := New(tool, Deep, tempRoot, oneShot())
	if err != nil {
		t.Fatal(err)
	}
	report, err := c.Check(entries("/m/good.ba2", "/m/bad.ba2"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.OK != 1 || report.Corrupted != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(tool.extracted) != 2 {
		t.Fatalf("deep mode extracted %d times, want 2", len(tool.extracted))
	}
	for _, dir := range tool.extracted {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("temp dir %s not removed", dir)
		}
	}
	left, err := os.ReadDir(tempRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Fatalf("temp root not empty: %v", left)
	}
}

func TestQuick_TransientFailureIsRetried(t *testing.T) {
	tool := newFakeTool()
	tool.failFor["/m/a.ba2"] = &errs.ToolError{Path: "/m/a.ba2", ExecFailed: true, Err: errors.New("spawn")}

	c, err := New(tool, Quick, "", retry.Config{MaxAttempts: 2, Multiplier: 1})
	if err != nil {
		t.Fatal(err)
	}
	report, err := c.Check(entries("/m/a.ba2"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Corrupted != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(tool.listCalls) != 2 {
		t.Fatalf("listed %d times, want 2", len(tool.listCalls))
	}
}

func TestCheck_CancelStopsAtBoundary(t *testing.T) {
	tool := newFakeTool()
	tool.started = make(chan string)
	tool.proceed = make(chan struct{})

	c, err := New(tool, Deep, t.TempDir(), oneShot())
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan *Report, 1)
	go func() {
		report, _ := c.Check(entries("/m/a.ba2", "/m/b.ba2", "/m/c.ba2"), nil)
		done <- report
	}()

	<-tool.started
	c.Cancel()
	tool.proceed <- struct{}{}

	report := <-done
	if !report.Cancelled || len(report.Files) != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestCheck_ProgressEvents(t *testing.T) {
	tool := newFakeTool()
	c, err := New(tool, Quick, "", oneShot())
	if err != nil {
		t.Fatal(err)
	}
	events := make(chan Event, 16)
	if _, err := c.Check(entries("/m/a.ba2", "/m/b.ba2"), events); err != nil {
		t.Fatal(err)
	}
	close(events)
	var seen int
	for ev := range events {
		if ev.Total != 2 {
			t.Errorf("event total = %d", ev.Total)
		}
		seen++
	}
	if seen != 2 {
		t.Fatalf("saw %d events, want 2", seen)
	}
}

func TestNew_RequiresTool(t *testing.T) {
	if _, err := New(nil, Quick, "", oneShot()); err == nil {
		t.Fatalf("nil tool should be rejected")
	}
}
