package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"unpackrr/internal/errs"
	"unpackrr/internal/model"
	"unpackrr/internal/retry"
)

// fakeTool scripts per-file outcomes and records invocations.
type fakeTool struct {
	mu       sync.Mutex
	calls    []string
	dests    []string
	failFor  map[string]error
	started  chan string
	proceed  chan struct{}
	validate error
}

func newFakeTool() *fakeTool {
	return &fakeTool{failFor: map[string]error{}}
}

func (f *fakeTool) Extract(src, dst string) error {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	f.dests = append(f.dests, dst)
	err := f.failFor[src]
	f.mu.Unlock()
	if f.started != nil {
		f.started <- src
		<-f.proceed
	}
	return err
}

func (f *fakeTool) List(string) ([]string, error) { return nil, nil }

func (f *fakeTool) Validate() error { return f.validate }

func (f *fakeTool) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func entries(n int) []model.FileEntry {
	out := make([]model.FileEntry, n)
	for i := range out {
		out[i] = model.FileEntry{
			Name: fmt.Sprintf("Mod%d - Main.ba2", i),
			Path: fmt.Sprintf("/mods/Mod%d/Mod%d - Main.ba2", i, i),
		}
	}
	return out
}

func quickOpts(tool *fakeTool) Options {
	return Options{Tool: tool, Retry: retry.Config{MaxAttempts: 1}}
}

func TestRun_AllSucceed(t *testing.T) {
	tool := newFakeTool()
	o, err := New(quickOpts(tool))
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Run(entries(3), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 3 || res.Failed != 0 || len(res.Files) != 3 {
		t.Fatalf("result = %+v", res)
	}
	if o.State() != StateFinished {
		t.Fatalf("state = %v, want finished", o.State())
	}
}

func TestRun_PartialFailureAccounting(t *testing.T) {
	tool := newFakeTool()
	batch := entries(5)
	tool.failFor[batch[1].Path] = &errs.ToolError{Path: batch[1].Path, Output: "Error: bad"}
	tool.failFor[batch[3].Path] = &errs.ToolError{Path: batch[3].Path, Output: "Error: bad"}

	o, err := New(quickOpts(tool))
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Run(batch, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 2 || res.Succeeded != 3 || len(res.Files) != 5 {
		t.Fatalf("result = %+v", res)
	}
	for i, fr := range res.Files {
		wantFail := i == 1 || i == 3
		if fr.Success == wantFail {
			t.Errorf("file %d success=%v", i, fr.Success)
		}
		if wantFail && fr.Error == "" {
			t.Errorf("file %d missing error message", i)
		}
	}
}

func TestRun_FilesAttemptedInOrder(t *testing.T) {
	tool := newFakeTool()
	batch := entries(4)
	o, err := New(quickOpts(tool))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Run(batch, nil); err != nil {
		t.Fatal(err)
	}
	for i, call := range tool.calls {
		if call != batch[i].Path {
			t.Fatalf("call %d = %s, want %s", i, call, batch[i].Path)
		}
	}
}

func TestRun_TransientFailureIsRetried(t *testing.T) {
	tool := newFakeTool()
	batch := entries(1)
	tool.failFor[batch[0].Path] = &errs.ToolError{Path: batch[0].Path, ExecFailed: true, Err: errors.New("spawn")}

	o, err := New(Options{
		Tool:  tool,
		Retry: retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: time.Second},
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Run(batch, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if got := tool.callCount(); got != 3 {
		t.Fatalf("tool invoked %d times, want 3", got)
	}
}

func TestRun_CancelStopsDispatch(t *testing.T) {
	tool := newFakeTool()
	tool.started = make(chan string)
	tool.proceed = make(chan struct{})

	o, err := New(quickOpts(tool))
	if err != nil {
		t.Fatal(err)
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := o.Run(entries(5), nil)
		done <- outcome{res, err}
	}()

	// Let file 0 start, cancel while it is in flight, then release it.
	<-tool.started
	o.Cancel()
	tool.proceed <- struct{}{}

	out := <-done
	if out.err != nil {
		t.Fatal(out.err)
	}
	if !out.res.Cancelled {
		t.Fatalf("result not marked cancelled: %+v", out.res)
	}
	if len(out.res.Files) != 1 {
		t.Fatalf("attempted %d files, want 1", len(out.res.Files))
	}
	if o.State() != StateCancelled {
		t.Fatalf("state = %v, want cancelled", o.State())
	}
}

func TestRun_PauseAndResume(t *testing.T) {
	tool := newFakeTool()
	tool.started = make(chan string)
	tool.proceed = make(chan struct{})

	o, err := New(quickOpts(tool))
	if err != nil {
		t.Fatal(err)
	}

	events := make(chan Event, 64)
	done := make(chan *Result, 1)
	go func() {
		res, _ := o.Run(entries(2), events)
		done <- res
	}()

	<-tool.started
	o.Pause()
	tool.proceed <- struct{}{}

	// The loop must park at the boundary instead of dispatching file 1.
	waitForState(t, o, StatePaused)
	if got := tool.callCount(); got != 1 {
		t.Fatalf("dispatched %d files while paused, want 1", got)
	}

	o.Resume()
	<-tool.started
	tool.proceed <- struct{}{}

	res := <-done
	if res.Succeeded != 2 || res.Cancelled {
		t.Fatalf("result = %+v", res)
	}

	close(events)
	var paused, resumed bool
	for ev := range events {
		switch ev.Kind {
		case EventPaused:
			paused = true
		case EventResumed:
			resumed = true
		}
	}
	if !paused || !resumed {
		t.Fatalf("paused=%v resumed=%v events missing", paused, resumed)
	}
}

func TestRun_CancelWhilePaused(t *testing.T) {
	tool := newFakeTool()
	tool.started = make(chan string)
	tool.proceed = make(chan struct{})

	o, err := New(quickOpts(tool))
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan *Result, 1)
	go func() {
		res, _ := o.Run(entries(3), nil)
		done <- res
	}()

	<-tool.started
	o.Pause()
	tool.proceed <- struct{}{}
	waitForState(t, o, StatePaused)
	o.Cancel()

	res := <-done
	if !res.Cancelled || len(res.Files) != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestRun_SecondBatchWhileRunningFails(t *testing.T) {
	tool := newFakeTool()
	tool.started = make(chan string)
	tool.proceed = make(chan struct{})

	o, err := New(quickOpts(tool))
	if err != nil {
		t.Fatal(err)
	}
	go o.Run(entries(1), nil)
	<-tool.started

	if _, err := o.Run(entries(1), nil); err == nil {
		t.Fatalf("concurrent batch should be rejected")
	}
	tool.proceed <- struct{}{}
}

func TestRun_ToolValidationIsSetupFailure(t *testing.T) {
	tool := newFakeTool()
	tool.validate = &errs.ToolNotFoundError{Path: "/missing"}

	o, err := New(quickOpts(tool))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Run(entries(2), nil); err == nil {
		t.Fatalf("missing tool should abort the batch")
	}
	if tool.callCount() != 0 {
		t.Fatalf("no files should be dispatched after setup failure")
	}
	if o.State() != StateIdle {
		t.Fatalf("state = %v, want idle after setup failure", o.State())
	}
}

func TestResolveDest_Modes(t *testing.T) {
	entry := model.FileEntry{Path: "/mods/M/M - Main.ba2"}

	o, err := New(Options{Tool: newFakeTool(), Dest: DestInPlace})
	if err != nil {
		t.Fatal(err)
	}
	dst, cleanup, err := o.resolveDest(entry)
	if err != nil || cleanup != nil || dst != "/mods/M" {
		t.Fatalf("in-place dest = %q, %v", dst, err)
	}

	custom := filepath.Join(t.TempDir(), "out")
	o, err = New(Options{Tool: newFakeTool(), Dest: DestPath, Path: custom})
	if err != nil {
		t.Fatal(err)
	}
	dst, _, err = o.resolveDest(entry)
	if err != nil || dst != custom {
		t.Fatalf("custom dest = %q, %v", dst, err)
	}
	if _, err := os.Stat(custom); err != nil {
		t.Fatalf("custom dest not created: %v", err)
	}

	o, err = New(Options{Tool: newFakeTool(), Dest: DestTemp, TempDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	dst, cleanup, err = o.resolveDest(entry)
	if err != nil || cleanup == nil {
		t.Fatalf("temp dest = %q, %v", dst, err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("temp dest not created: %v", err)
	}
	cleanup()
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("temp dest not removed")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("nil tool should be rejected")
	}
	if _, err := New(Options{Tool: newFakeTool(), Dest: DestPath}); err == nil {
		t.Fatalf("custom destination without a path should be rejected")
	}
}

func waitForState(t *testing.T, o *Orchestrator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", o.State(), want)
}
