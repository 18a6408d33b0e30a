package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/metrics"
	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/scanner"
	"github.com/raysh454/vulnprobe/internal/utils"
)

var (
	ErrTaskNotFound   = errors.New("scan not found")
	ErrReportNotReady = errors.New("scan has not completed")
)

// TaskIDLength is the number of uuid characters kept in a task id.
const TaskIDLength = 8

const taskEventBuffer = 256

type TaskEventType string

const (
	TaskEventStatus TaskEventType = "status"
	TaskEventScan   TaskEventType = "scan"
)

// TaskEvent is streamed to websocket clients.
type TaskEvent struct {
	TaskID string           `json:"task_id"`
	Type   TaskEventType    `json:"type"`
	Status model.ScanStatus `json:"status,omitempty"`
	Error  string           `json:"error,omitempty"`
	Scan   *scanner.Event   `json:"scan,omitempty"`
}

// Task is one asynchronous scan.
type Task struct {
	ID        string           `json:"id"`
	Target    string           `json:"target"`
	Depth     int              `json:"depth,omitempty"`
	MaxPages  int              `json:"max_pages,omitempty"`
	Status    model.ScanStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
	Pages     int              `json:"pages"`
	Findings  int              `json:"findings"`
	CreatedAt time.Time        `json:"created_at"`
	StartedAt time.Time        `json:"started_at,omitempty"`
	EndedAt   time.Time        `json:"ended_at,omitempty"`

	Events chan TaskEvent `json:"-"`
	report *model.Report
}

// ScanFunc runs one scan, reporting progress through onEvent.
type ScanFunc func(ctx context.Context, req model.ScanRequest, onEvent scanner.EventFunc) (*scanner.Result, error)

// ReportSaver persists completed reports.
type ReportSaver interface {
	SaveReport(ctx context.Context, id string, rep *model.Report, pages int) error
}

// Tasks is the process-wide scan task registry. Entries are created on
// submission and are never removed; Len reports the current size.
type Tasks struct {
	run     ScanFunc
	saver   ReportSaver
	metrics *metrics.Collector
	logger  logging.Logger

	wg sync.WaitGroup

	tasksMu sync.Mutex
	tasks   map[string]*Task
	cancels map[string]context.CancelFunc
}

// NewTasks creates a registry that runs scans with run. saver and m are optional.
func NewTasks(run ScanFunc, saver ReportSaver, m *metrics.Collector, logger logging.Logger) *Tasks {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Tasks{
		run:     run,
		saver:   saver,
		metrics: m,
		logger:  logger.With(logging.Field{Key: "component", Value: "tasks"}),
		tasks:   make(map[string]*Task),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Submit validates req and starts the scan in the background. The scan
// outlives ctx's cancellation so a request context can be passed directly.
func (t *Tasks) Submit(ctx context.Context, req model.ScanRequest) (Task, error) {
	if !utils.ValidateURL(req.Target) {
		return Task{}, fmt.Errorf("%w: %q", scanner.ErrInvalidTarget, req.Target)
	}
	if req.Depth < 0 || req.MaxPages < 0 {
		return Task{}, fmt.Errorf("depth and max_pages must be >= 0")
	}

	task := &Task{
		Target:    req.Target,
		Depth:     req.Depth,
		MaxPages:  req.MaxPages,
		Status:    model.ScanQueued,
		CreatedAt: time.Now().UTC(),
		Events:    make(chan TaskEvent, taskEventBuffer),
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	t.tasksMu.Lock()
	task.ID = t.newIDLocked()
	t.tasks[task.ID] = task
	t.cancels[task.ID] = cancel
	snapshot := *task
	t.tasksMu.Unlock()

	t.emit(task.ID, TaskEvent{Type: TaskEventStatus, Status: model.ScanQueued})
	t.logger.Info("scan queued",
		logging.Field{Key: "task_id", Value: task.ID},
		logging.Field{Key: "target", Value: req.Target})

	t.wg.Add(1)
	go t.execute(runCtx, task.ID, req)

	return snapshot, nil
}

func (t *Tasks) newIDLocked() string {
	for {
		id := uuid.New().String()[:TaskIDLength]
		if _, taken := t.tasks[id]; !taken {
			return id
		}
	}
}

func (t *Tasks) execute(ctx context.Context, id string, req model.ScanRequest) {
	defer t.wg.Done()
	defer func() {
		t.tasksMu.Lock()
		if cancel := t.cancels[id]; cancel != nil {
			cancel()
		}
		delete(t.cancels, id)
		task := t.tasks[id]
		t.tasksMu.Unlock()
		// Close events channel so websocket loops terminate.
		if task != nil && task.Events != nil {
			close(task.Events)
		}
	}()

	t.update(id, func(task *Task) {
		task.Status = model.ScanRunning
		task.StartedAt = time.Now().UTC()
	})
	t.emit(id, TaskEvent{Type: TaskEventStatus, Status: model.ScanRunning})

	start := time.Now()
	res, err := t.safeRun(ctx, req, func(ev scanner.Event) {
		if t.metrics != nil {
			t.metrics.Observe(ev)
		}
		t.emit(id, TaskEvent{Type: TaskEventScan, Scan: &ev})
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		t.update(id, func(task *Task) {
			task.Status = model.ScanError
			task.Error = err.Error()
			task.EndedAt = time.Now().UTC()
		})
		if t.metrics != nil {
			t.metrics.ScanCompleted(string(model.ScanError), elapsed)
		}
		t.logger.Warn("scan failed",
			logging.Field{Key: "task_id", Value: id},
			logging.Field{Key: "error", Value: err})
		t.emit(id, TaskEvent{Type: TaskEventStatus, Status: model.ScanError, Error: err.Error()})
		return
	}

	rep := model.NewReport(res.Target, res.Findings)
	if t.saver != nil {
		if err := t.saver.SaveReport(ctx, id, rep, len(res.Pages)); err != nil {
			t.logger.Warn("saving report",
				logging.Field{Key: "task_id", Value: id},
				logging.Field{Key: "error", Value: err})
		}
	}

	t.update(id, func(task *Task) {
		task.Status = model.ScanDone
		task.Pages = len(res.Pages)
		task.Findings = len(res.Findings)
		task.EndedAt = time.Now().UTC()
		task.report = rep
	})
	if t.metrics != nil {
		t.metrics.ScanCompleted(string(model.ScanDone), elapsed)
	}
	t.logger.Info("scan done",
		logging.Field{Key: "task_id", Value: id},
		logging.Field{Key: "findings", Value: len(res.Findings)})
	t.emit(id, TaskEvent{Type: TaskEventStatus, Status: model.ScanDone})
}

func (t *Tasks) safeRun(ctx context.Context, req model.ScanRequest, onEvent scanner.EventFunc) (res *scanner.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan panicked: %v", r)
		}
	}()
	if t.run == nil {
		return nil, errors.New("no scan runner configured")
	}
	res, err = t.run(ctx, req, onEvent)
	if err == nil && res == nil {
		err = errors.New("scan returned no result")
	}
	return res, err
}

func (t *Tasks) update(id string, fn func(*Task)) {
	t.tasksMu.Lock()
	defer t.tasksMu.Unlock()
	if task, ok := t.tasks[id]; ok {
		fn(task)
	}
}

func (t *Tasks) emit(id string, ev TaskEvent) {
	t.tasksMu.Lock()
	task, ok := t.tasks[id]
	t.tasksMu.Unlock()
	if !ok || task.Events == nil {
		return
	}
	ev.TaskID = id

	// Non-blocking send; drop if buffer is full.
	select {
	case task.Events <- ev:
	default:
	}
}

// Get returns a snapshot of the task.
func (t *Tasks) Get(id string) (Task, error) {
	t.tasksMu.Lock()
	defer t.tasksMu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return *task, nil
}

// List returns snapshots of every task, oldest first.
func (t *Tasks) List() []Task {
	t.tasksMu.Lock()
	out := make([]Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, *task)
	}
	t.tasksMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Report returns the in-memory report of a completed task.
func (t *Tasks) Report(id string) (*model.Report, error) {
	t.tasksMu.Lock()
	defer t.tasksMu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if task.Status != model.ScanDone || task.report == nil {
		return nil, ErrReportNotReady
	}
	return task.report, nil
}

// Events returns the task's event stream. It is closed when the scan ends.
// Each event is delivered to a single reader.
func (t *Tasks) Events(id string) (<-chan TaskEvent, error) {
	t.tasksMu.Lock()
	defer t.tasksMu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task.Events, nil
}

// Cancel stops a running scan. Unknown or finished ids are ignored.
func (t *Tasks) Cancel(id string) {
	t.tasksMu.Lock()
	cancel := t.cancels[id]
	t.tasksMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Len is the number of tasks ever submitted.
func (t *Tasks) Len() int {
	t.tasksMu.Lock()
	defer t.tasksMu.Unlock()
	return len(t.tasks)
}

// Wait blocks until every running scan has finished or ctx is done.
func (t *Tasks) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
