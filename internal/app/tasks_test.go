package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raysh454/vulnprobe/internal/metrics"
	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/scanner"
	"github.com/raysh454/vulnprobe/internal/testutil"
)

type recordingSaver struct {
	mu    sync.Mutex
	saved map[string]*model.Report
	err   error
}

func (r *recordingSaver) SaveReport(_ context.Context, id string, rep *model.Report, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved == nil {
		r.saved = map[string]*model.Report{}
	}
	r.saved[id] = rep
	return r.err
}

func (r *recordingSaver) get(id string) *model.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[id]
}

func fixedResult(findings ...*model.Finding) ScanFunc {
	return func(_ context.Context, req model.ScanRequest, onEvent scanner.EventFunc) (*scanner.Result, error) {
		onEvent(scanner.Event{Type: scanner.EventScanStarted, URL: req.Target})
		for _, f := range findings {
			onEvent(scanner.Event{Type: scanner.EventFinding, Finding: f})
		}
		onEvent(scanner.Event{Type: scanner.EventScanFinished, Count: len(findings)})
		return &scanner.Result{Target: req.Target, Pages: []string{req.Target}, Findings: findings}, nil
	}
}

func waitTask(t *testing.T, tasks *Tasks) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tasks.Wait(ctx); err != nil {
		t.Fatalf("tasks did not finish: %v", err)
	}
}

// ─── Submit ────────────────────────────────────────────────────────────

func TestTasks_SubmitRejectsInvalidTarget(t *testing.T) {
	t.Parallel()
	called := false
	tasks := NewTasks(func(context.Context, model.ScanRequest, scanner.EventFunc) (*scanner.Result, error) {
		called = true
		return nil, nil
	}, nil, nil, &testutil.DummyLogger{})

	_, err := tasks.Submit(context.Background(), model.ScanRequest{Target: "not a url"})
	if !errors.Is(err, scanner.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if tasks.Len() != 0 || called {
		t.Errorf("invalid submission must not create a task")
	}
}

func TestTasks_SubmitRunsToDone(t *testing.T) {
	t.Parallel()
	finding := model.NewFinding(model.TypeSQLi, "http://h/?id=1", "SQL syntax near MySQL")
	saver := &recordingSaver{}
	tasks := NewTasks(fixedResult(finding), saver, nil, &testutil.DummyLogger{})

	task, err := tasks.Submit(context.Background(), model.ScanRequest{Target: "http://h/"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(task.ID) != TaskIDLength {
		t.Errorf("task id %q should have %d characters", task.ID, TaskIDLength)
	}
	if task.Status != model.ScanQueued {
		t.Errorf("initial status = %s, want queued", task.Status)
	}
	waitTask(t, tasks)

	got, err := tasks.Get(task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.ScanDone || got.Findings != 1 || got.Pages != 1 {
		t.Errorf("unexpected final task: %+v", got)
	}

	rep, err := tasks.Report(task.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if rep.Target != "http://h/" || len(rep.Findings) != 1 {
		t.Errorf("unexpected report: %+v", rep)
	}
	if saver.get(task.ID) == nil {
		t.Error("expected report to be saved")
	}
}

func TestTasks_SubmitOutlivesRequestContext(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	tasks := NewTasks(func(ctx context.Context, req model.ScanRequest, _ scanner.EventFunc) (*scanner.Result, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &scanner.Result{Target: req.Target}, nil
	}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	task, err := tasks.Submit(ctx, model.ScanRequest{Target: "http://h/"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()
	close(release)
	waitTask(t, tasks)

	got, _ := tasks.Get(task.ID)
	if got.Status != model.ScanDone {
		t.Errorf("status = %s (%s), want done", got.Status, got.Error)
	}
}

// ─── Failure ───────────────────────────────────────────────────────────

func TestTasks_RunErrorMarksTaskError(t *testing.T) {
	t.Parallel()
	tasks := NewTasks(func(context.Context, model.ScanRequest, scanner.EventFunc) (*scanner.Result, error) {
		return nil, errors.New("boom")
	}, nil, nil, &testutil.DummyLogger{})

	task, _ := tasks.Submit(context.Background(), model.ScanRequest{Target: "http://h/"})
	waitTask(t, tasks)

	got, _ := tasks.Get(task.ID)
	if got.Status != model.ScanError || got.Error != "boom" {
		t.Errorf("unexpected task: %+v", got)
	}
	if _, err := tasks.Report(task.ID); !errors.Is(err, ErrReportNotReady) {
		t.Errorf("expected ErrReportNotReady, got %v", err)
	}
}

func TestTasks_RunPanicIsRecovered(t *testing.T) {
	t.Parallel()
	tasks := NewTasks(func(context.Context, model.ScanRequest, scanner.EventFunc) (*scanner.Result, error) {
		panic("kaboom")
	}, nil, nil, &testutil.DummyLogger{})

	task, _ := tasks.Submit(context.Background(), model.ScanRequest{Target: "http://h/"})
	waitTask(t, tasks)

	got, _ := tasks.Get(task.ID)
	if got.Status != model.ScanError {
		t.Errorf("status = %s, want error", got.Status)
	}
}

func TestTasks_CancelStopsScan(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	tasks := NewTasks(func(ctx context.Context, _ model.ScanRequest, _ scanner.EventFunc) (*scanner.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}, nil, nil, nil)

	task, _ := tasks.Submit(context.Background(), model.ScanRequest{Target: "http://h/"})
	<-started
	tasks.Cancel(task.ID)
	waitTask(t, tasks)

	got, _ := tasks.Get(task.ID)
	if got.Status != model.ScanError || got.Error != context.Canceled.Error() {
		t.Errorf("unexpected task after cancel: %+v", got)
	}
}

// ─── Lookup ────────────────────────────────────────────────────────────

func TestTasks_UnknownID(t *testing.T) {
	t.Parallel()
	tasks := NewTasks(fixedResult(), nil, nil, nil)

	if _, err := tasks.Get("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Get: expected ErrTaskNotFound, got %v", err)
	}
	if _, err := tasks.Report("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Report: expected ErrTaskNotFound, got %v", err)
	}
	if _, err := tasks.Events("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Events: expected ErrTaskNotFound, got %v", err)
	}
	tasks.Cancel("missing")
}

func TestTasks_RegistryGrowsWithSubmissions(t *testing.T) {
	t.Parallel()
	tasks := NewTasks(fixedResult(), nil, nil, nil)
	for i := 0; i < 5; i++ {
		if _, err := tasks.Submit(context.Background(), model.ScanRequest{Target: "http://h/"}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	waitTask(t, tasks)

	if tasks.Len() != 5 {
		t.Errorf("Len = %d, want 5", tasks.Len())
	}
	list := tasks.List()
	if len(list) != 5 {
		t.Fatalf("List = %d entries", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.Before(list[i-1].CreatedAt) {
			t.Errorf("list not ordered by creation time")
		}
	}
}

// ─── Events & metrics ──────────────────────────────────────────────────

func TestTasks_EventsStreamAndClose(t *testing.T) {
	t.Parallel()
	m, err := metrics.NewCollector()
	if err != nil {
		t.Fatal(err)
	}
	finding := model.NewFinding(model.TypeXSSReflected, "http://h/?q=1", "payload reflected in response body")
	tasks := NewTasks(fixedResult(finding), nil, m, nil)

	task, _ := tasks.Submit(context.Background(), model.ScanRequest{Target: "http://h/"})
	events, err := tasks.Events(task.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}

	var statuses []model.ScanStatus
	scanEvents := 0
	for ev := range events {
		if ev.TaskID != task.ID {
			t.Errorf("event for wrong task: %+v", ev)
		}
		switch ev.Type {
		case TaskEventStatus:
			statuses = append(statuses, ev.Status)
		case TaskEventScan:
			scanEvents++
		}
	}

	want := []model.ScanStatus{model.ScanQueued, model.ScanRunning, model.ScanDone}
	if len(statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("status[%d] = %s, want %s", i, statuses[i], want[i])
		}
	}
	if scanEvents != 3 {
		t.Errorf("scan events = %d, want 3", scanEvents)
	}
}
