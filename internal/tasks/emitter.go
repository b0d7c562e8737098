package tasks

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/Jack-Penn/AlgoRhythms/internal/stream"
)

// Emitter serializes pipeline transitions into wire frames. Writes are
// serialized under a mutex; once a write fails the emitter is dead and every
// later call returns the same error, so the engine can stop computing for a
// client that hung up.
type Emitter struct {
	mu    sync.Mutex
	w     io.Writer
	flush func()
	err   error
}

// NewEmitter wraps a writer. When the writer is an [http.Flusher] each frame
// is flushed as it is written so clients observe transitions live.
func NewEmitter(w io.Writer) *Emitter {
	e := &Emitter{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flush = f.Flush
	}
	return e
}

// Initial declares the full task list, every task pending.
func (e *Emitter) Initial(tasks []models.Task) error {
	return e.send(stream.Event{Type: stream.EventInitial, Tasks: tasks})
}

// Running marks a task started.
func (e *Emitter) Running(taskID string) error {
	return e.send(stream.Event{
		Type:   stream.EventUpdate,
		TaskID: taskID,
		Status: stream.StatusRunning,
	})
}

// Progress reports partial data from a task that is still running.
func (e *Emitter) Progress(taskID string, data any) error {
	ev := stream.Event{
		Type:   stream.EventUpdate,
		TaskID: taskID,
		Status: stream.StatusProgress,
	}
	if err := attachData(&ev, data); err != nil {
		return err
	}
	return e.send(ev)
}

// Completed marks a task finished, with its duration and optional result
// payload.
func (e *Emitter) Completed(taskID, duration string, data any) error {
	ev := stream.Event{
		Type:     stream.EventUpdate,
		TaskID:   taskID,
		Status:   stream.StatusCompleted,
		Duration: duration,
	}
	if err := attachData(&ev, data); err != nil {
		return err
	}
	return e.send(ev)
}

// Failed marks a task failed. Duration may be empty for cancelled tasks.
func (e *Emitter) Failed(taskID, duration string, taskErr error) error {
	return e.send(stream.Event{
		Type:     stream.EventUpdate,
		TaskID:   taskID,
		Status:   stream.StatusFailed,
		Duration: duration,
		Error:    taskErr.Error(),
	})
}

// Final carries the assembled result and closes out the stream. It is sent
// even after a task failure, with whatever the pipeline managed to produce.
func (e *Emitter) Final(result models.FinalResult) error {
	ev := stream.Event{Type: stream.EventFinal}
	if err := attachData(&ev, result); err != nil {
		return err
	}
	return e.send(ev)
}

// RunError reports a failure of the runner itself, outside any one task.
func (e *Emitter) RunError(runErr error) error {
	return e.send(stream.Event{
		Type:    stream.EventError,
		Message: fmt.Sprintf("task runner failed: %v", runErr),
	})
}

// Err returns the write error that killed the emitter, if any.
func (e *Emitter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Emitter) send(ev stream.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return e.err
	}

	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	frame, err := stream.EncodeEvent(ev)
	if err != nil {
		return err
	}

	if _, err := e.w.Write(frame); err != nil {
		e.err = fmt.Errorf("%w: %v", shared.ErrStreamConnection, err)
		return e.err
	}
	if e.flush != nil {
		e.flush()
	}
	return nil
}

func attachData(ev *stream.Event, data any) error {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	ev.Data = raw
	return nil
}
