package models

import (
	"testing"
)

func declarations() []Task {
	return []Task{
		{ID: "compile_track_list", Label: "Compiling Tracks", Description: "..."},
		{ID: "build_kd_tree", Label: "Building KD-Tree", Description: "..."},
		{ID: "compile_final_results", Label: "Compiling Final Results", Description: "..."},
	}
}

func TestNewTaskMap(t *testing.T) {
	m := NewTaskMap(declarations())

	if m.Len() != 3 {
		t.Fatalf("expected 3 tasks, got %d", m.Len())
	}

	ids := m.IDs()
	want := []string{"compile_track_list", "build_kd_tree", "compile_final_results"}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("task %d: expected id %s, got %s", i, id, ids[i])
		}
	}

	for _, task := range m.Tasks() {
		if task.Status != TaskPending {
			t.Errorf("task %s: expected pending, got %s", task.ID, task.Status)
		}
	}
}

func TestTaskMap_DuplicateDeclarations(t *testing.T) {
	m := NewTaskMap([]Task{
		{ID: "a", Label: "First"},
		{ID: "a", Label: "Second"},
	})

	if m.Len() != 1 {
		t.Fatalf("expected duplicate declaration to be dropped, got %d tasks", m.Len())
	}

	task, _ := m.Get("a")
	if task.Label != "First" {
		t.Errorf("expected first declaration to win, got label %s", task.Label)
	}
}

func TestTaskMap_Apply(t *testing.T) {
	t.Run("full run completes every task", func(t *testing.T) {
		decls := declarations()
		m := NewTaskMap(decls)

		for _, decl := range decls {
			if err := m.Apply(TaskUpdate{TaskID: decl.ID, Status: TaskRunning}); err != nil {
				t.Fatalf("running update for %s: %v", decl.ID, err)
			}
			if err := m.Apply(TaskUpdate{TaskID: decl.ID, Status: TaskCompleted, Duration: "12ms", Data: map[string]any{"count": 1}}); err != nil {
				t.Fatalf("completed update for %s: %v", decl.ID, err)
			}
		}

		if m.Len() != len(decls) {
			t.Errorf("expected no extra tasks, got %d", m.Len())
		}

		for _, task := range m.Tasks() {
			if task.Status != TaskCompleted {
				t.Errorf("task %s: expected completed, got %s", task.ID, task.Status)
			}
			if task.Duration != "12ms" {
				t.Errorf("task %s: expected duration 12ms, got %q", task.ID, task.Duration)
			}
			if task.Result == nil {
				t.Errorf("task %s: expected result data", task.ID)
			}
		}

		if !m.Settled() {
			t.Error("expected map to be settled")
		}
	})

	t.Run("unknown task id", func(t *testing.T) {
		m := NewTaskMap(declarations())

		err := m.Apply(TaskUpdate{TaskID: "made_up", Status: TaskRunning})
		if err == nil {
			t.Fatal("expected error for unknown task id")
		}

		if m.Len() != 3 {
			t.Errorf("unknown id must not create a task, got %d", m.Len())
		}
	})

	t.Run("invalid transitions", func(t *testing.T) {
		tc := []struct {
			name string
			from TaskStatus
			to   TaskStatus
		}{
			{name: "pending to completed", from: TaskPending, to: TaskCompleted},
			{name: "completed to running", from: TaskCompleted, to: TaskRunning},
			{name: "failed to completed", from: TaskFailed, to: TaskCompleted},
			{name: "pending to failed", from: TaskPending, to: TaskFailed},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				m := NewTaskMap([]Task{{ID: "a", Status: tt.from}})
				if err := m.Apply(TaskUpdate{TaskID: "a", Status: tt.to}); err == nil {
					t.Errorf("expected transition %s -> %s to be rejected", tt.from, tt.to)
				}
			})
		}
	})

	t.Run("progress merge keeps task running", func(t *testing.T) {
		m := NewTaskMap(declarations())

		if err := m.Apply(TaskUpdate{TaskID: "build_kd_tree", Status: TaskRunning}); err != nil {
			t.Fatal(err)
		}
		if err := m.Apply(TaskUpdate{TaskID: "build_kd_tree", Status: TaskRunning, Data: map[string]any{"depth": 4}}); err != nil {
			t.Fatal(err)
		}

		task, _ := m.Get("build_kd_tree")
		if task.Status != TaskRunning {
			t.Errorf("expected task still running, got %s", task.Status)
		}
		if task.Result == nil {
			t.Error("expected progress data stored as result")
		}
	})

	t.Run("failed is terminal", func(t *testing.T) {
		m := NewTaskMap(declarations())

		if err := m.Apply(TaskUpdate{TaskID: "compile_track_list", Status: TaskRunning}); err != nil {
			t.Fatal(err)
		}
		if err := m.Apply(TaskUpdate{TaskID: "compile_track_list", Status: TaskFailed, Error: "no sources"}); err != nil {
			t.Fatal(err)
		}

		task, _ := m.Get("compile_track_list")
		if task.Error != "no sources" {
			t.Errorf("expected error recorded, got %q", task.Error)
		}

		if err := m.Apply(TaskUpdate{TaskID: "compile_track_list", Status: TaskRunning}); err == nil {
			t.Error("expected update after failure to be rejected")
		}
	})
}

func TestTaskMap_GetReturnsCopy(t *testing.T) {
	m := NewTaskMap(declarations())

	task, ok := m.Get("build_kd_tree")
	if !ok {
		t.Fatal("expected task to exist")
	}

	task.Status = TaskCompleted

	stored, _ := m.Get("build_kd_tree")
	if stored.Status != TaskPending {
		t.Errorf("mutating a returned task must not affect the map, got %s", stored.Status)
	}
}
