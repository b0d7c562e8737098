package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/charmbracelet/log"
)

const maxFrameSize = 1 << 20

// Run is the handle for one generation stream. Frames are decoded and
// applied sequentially in arrival order, then forwarded on Updates. The run
// settles when the final or error event arrives, the connection fails, or
// Cancel is called; after that Updates is closed and no further state
// changes.
type Run struct {
	// ID names this run in logs.
	ID string

	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger

	mu     sync.Mutex
	status models.RunStatus
	tasks  *models.TaskMap
	final  *models.FinalResult
	err    error

	updates chan Event
	done    chan struct{}
}

func newRun(ctx context.Context, cancel context.CancelFunc, logger *log.Logger) *Run {
	return &Run{
		ID:      shared.GenerateID(),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		status:  models.RunStreaming,
		tasks:   models.NewTaskMap(nil),
		updates: make(chan Event, 16),
		done:    make(chan struct{}),
	}
}

// Updates delivers every applied event in order. The channel closes once the
// run settles.
func (r *Run) Updates() <-chan Event { return r.updates }

// Done closes when the run has settled.
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel abandons the run and releases the underlying connection. Events
// still in flight are discarded. Safe to call from any goroutine, any number
// of times.
func (r *Run) Cancel() { r.cancel() }

// Wait blocks until the run settles or ctx expires, returning the run's
// terminal error if any.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports the run's current overall state.
func (r *Run) Status() models.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Tasks returns a snapshot of the task map in declaration order.
func (r *Run) Tasks() []models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks.Tasks()
}

// Final returns the terminal result once the run has completed, or nil.
func (r *Run) Final() *models.FinalResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.final
}

// Err returns the terminal error for a failed run, or nil.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// consume reads frames off the response body until the stream settles.
// Malformed frames are logged and skipped; anything after the terminal event
// is ignored.
func (r *Run) consume(body io.ReadCloser) {
	defer close(r.done)
	defer close(r.updates)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	scanner.Split(splitFrames)

	for scanner.Scan() {
		event, err := DecodeEvent(scanner.Bytes())
		if err != nil {
			r.logger.Warn("skipping malformed frame", "run", r.ID, "error", err)
			continue
		}
		if event == nil {
			continue
		}

		r.apply(event)
		r.forward(*event)

		if r.Status() != models.RunStreaming {
			return
		}
	}

	if r.ctx.Err() != nil {
		r.abandon()
		return
	}
	if err := scanner.Err(); err != nil {
		r.fail(fmt.Errorf("%w: %v", shared.ErrStreamConnection, err))
		return
	}
	r.fail(fmt.Errorf("%w: stream ended before the final event", shared.ErrStreamConnection))
}

// abandon settles a cancelled run without treating it as a stream failure.
func (r *Run) abandon() {
	r.mu.Lock()
	settled := r.status != models.RunStreaming
	if !settled {
		r.status = models.RunError
		r.err = r.ctx.Err()
	}
	r.mu.Unlock()

	if !settled {
		r.logger.Info("generation stream abandoned", "run", r.ID)
	}
}

func (r *Run) apply(event *Event) {
	switch event.Type {
	case EventInitial:
		r.mu.Lock()
		if r.tasks.Len() > 0 {
			r.logger.Warn("duplicate initial event replaces the task map", "run", r.ID)
		}
		r.tasks = models.NewTaskMap(event.Tasks)
		r.mu.Unlock()

	case EventUpdate:
		update, err := event.taskUpdate()
		if err != nil {
			r.logger.Warn("skipping update", "run", r.ID, "task", event.TaskID, "error", err)
			return
		}

		r.mu.Lock()
		err = r.tasks.Apply(update)
		r.mu.Unlock()

		if err != nil {
			r.logger.Warn("skipping update", "run", r.ID, "task", event.TaskID,
				"error", fmt.Errorf("%w: %v", shared.ErrProtocolViolation, err))
		}

	case EventFinal:
		var result models.FinalResult
		if len(event.Data) > 0 {
			if err := json.Unmarshal(event.Data, &result); err != nil {
				r.fail(fmt.Errorf("%w: final payload: %v", shared.ErrFrameDecode, err))
				return
			}
		}

		r.mu.Lock()
		r.final = &result
		r.status = models.RunCompleted
		r.mu.Unlock()

	case EventError:
		message := event.Error
		if message == "" {
			message = event.Message
		}
		r.fail(fmt.Errorf("generation failed: %s", message))

	default:
		r.logger.Warn("skipping event of unknown type", "run", r.ID, "type", event.Type)
	}
}

// forward hands the event to the consumer, giving up if the run is
// abandoned.
func (r *Run) forward(event Event) {
	select {
	case r.updates <- event:
	case <-r.ctx.Done():
	}
}

// fail marks a still-streaming run as failed. Terminal states never change.
func (r *Run) fail(err error) {
	r.mu.Lock()
	settled := r.status != models.RunStreaming
	if !settled {
		r.status = models.RunError
		r.err = err
	}
	r.mu.Unlock()

	if !settled {
		r.logger.Error("generation stream failed", "run", r.ID, "error", err)
	}
}
