package models

import (
	"fmt"
)

// TaskStatus is the lifecycle state of one backend task within a generation
// run. Tasks only move forward: pending to running, running to completed or
// failed. A running task may report running again to merge progress data.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// allowedTransitions maps a task status to the statuses it may move to.
var allowedTransitions = map[TaskStatus][]TaskStatus{
	TaskPending: {TaskRunning},
	TaskRunning: {TaskRunning, TaskCompleted, TaskFailed},
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Task is one unit of backend work declared by the initial stream event and
// updated by subsequent events.
type Task struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Duration    string     `json:"duration,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// TaskUpdate carries one observed task-state change to apply to a TaskMap.
type TaskUpdate struct {
	TaskID   string
	Status   TaskStatus
	Duration string
	Data     any
	Error    string
}

// TaskMap is the ordered collection of all tasks for one generation run,
// keyed by id. Iteration order is the order tasks were declared. Once
// initialized no task is ever removed, and updates may only reference
// declared ids.
type TaskMap struct {
	order []string
	tasks map[string]*Task
}

// NewTaskMap builds a TaskMap from the declared tasks, preserving their
// order. Declarations without a status start pending. Duplicate ids keep the
// first declaration.
func NewTaskMap(decls []Task) *TaskMap {
	m := &TaskMap{tasks: make(map[string]*Task, len(decls))}
	for _, decl := range decls {
		if _, exists := m.tasks[decl.ID]; exists {
			continue
		}
		t := decl
		if t.Status == "" {
			t.Status = TaskPending
		}
		m.order = append(m.order, t.ID)
		m.tasks[t.ID] = &t
	}
	return m
}

// Apply merges one update into the map. Status and duration overwrite, data
// is stored as the task's result. Unknown ids and invalid transitions leave
// the map untouched and return an error for the caller to report.
func (m *TaskMap) Apply(u TaskUpdate) error {
	task, ok := m.tasks[u.TaskID]
	if !ok {
		return fmt.Errorf("unknown task id %q", u.TaskID)
	}

	if !CanTransition(task.Status, u.Status) {
		return fmt.Errorf("task %q cannot move from %s to %s", u.TaskID, task.Status, u.Status)
	}

	task.Status = u.Status
	if u.Duration != "" {
		task.Duration = u.Duration
	}
	if u.Data != nil {
		task.Result = u.Data
	}
	if u.Error != "" {
		task.Error = u.Error
	}

	return nil
}

// Get returns a copy of the task with the given id.
func (m *TaskMap) Get(id string) (Task, bool) {
	task, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Tasks returns copies of all tasks in declaration order.
func (m *TaskMap) Tasks() []Task {
	out := make([]Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.tasks[id])
	}
	return out
}

// IDs returns the task ids in declaration order.
func (m *TaskMap) IDs() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of declared tasks.
func (m *TaskMap) Len() int {
	return len(m.order)
}

// Settled reports whether every task has reached a terminal status.
func (m *TaskMap) Settled() bool {
	for _, task := range m.tasks {
		if task.Status != TaskCompleted && task.Status != TaskFailed {
			return false
		}
	}
	return true
}
