package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
)

// EventType discriminates the frames of the generation protocol.
type EventType string

const (
	// EventInitial declares the complete ordered task list, every task
	// pending. It arrives first and at most once.
	EventInitial EventType = "initial"
	// EventUpdate moves one declared task through its lifecycle.
	EventUpdate EventType = "update"
	// EventFinal carries the ranked result and ends the stream.
	EventFinal EventType = "final"
	// EventError reports a run-level failure from the producer and ends the
	// stream.
	EventError EventType = "error"
)

// Wire statuses an update event may carry. A progress report keeps the task
// running while delivering partial data.
const (
	StatusRunning   = "running"
	StatusProgress  = "progress"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Event is one decoded frame. Which fields are populated depends on Type:
// initial fills Tasks, update fills TaskID/Status/Duration/Data, final fills
// Data, error fills Error and Message.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp string          `json:"timestamp,omitempty"`
	Tasks     []models.Task   `json:"tasks,omitempty"`
	TaskID    string          `json:"task_id,omitempty"`
	Status    string          `json:"status,omitempty"`
	Duration  string          `json:"duration,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// taskUpdate converts a wire update into the task-map operation it implies.
func (e *Event) taskUpdate() (models.TaskUpdate, error) {
	u := models.TaskUpdate{TaskID: e.TaskID, Duration: e.Duration, Error: e.Error}

	switch e.Status {
	case StatusRunning, StatusProgress:
		u.Status = models.TaskRunning
	case StatusCompleted:
		u.Status = models.TaskCompleted
	case StatusFailed:
		u.Status = models.TaskFailed
	default:
		return u, fmt.Errorf("%w: unknown update status %q", shared.ErrProtocolViolation, e.Status)
	}

	if len(e.Data) > 0 {
		var data any
		if err := json.Unmarshal(e.Data, &data); err != nil {
			return u, fmt.Errorf("%w: update data: %v", shared.ErrFrameDecode, err)
		}
		u.Data = data
	}

	return u, nil
}

var frameSeparator = []byte("\n\n")

// splitFrames is a [bufio.SplitFunc] cutting the byte stream on blank lines.
// Partial frames stay buffered until their separator arrives, so event
// boundaries need not align with read chunks.
func splitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.Index(data, frameSeparator); i >= 0 {
		return i + len(frameSeparator), data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// DecodeEvent parses one frame into an Event. Blank frames decode to nil
// without error; anything else that fails to parse or lacks a type reports
// [shared.ErrFrameDecode].
func DecodeEvent(frame []byte) (*Event, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return nil, nil
	}

	var event Event
	if err := json.Unmarshal(frame, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFrameDecode, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: frame missing type discriminator", shared.ErrFrameDecode)
	}

	return &event, nil
}

// EncodeEvent renders an event as one wire frame, separator included.
func EncodeEvent(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	return append(data, frameSeparator...), nil
}
