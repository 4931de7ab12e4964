package audiounlock

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskID identifies one submitted input for its whole lifetime.
type TaskID = uuid.UUID

// TaskState is the lifecycle state of a task.
type TaskState int

const (
	// TaskDecrypting is the initial state: the input is being read or
	// decoded.
	TaskDecrypting TaskState = iota
	// TaskFinished is terminal: the task has a Result.
	TaskFinished
	// TaskError is terminal: the task has an Err.
	TaskError
)

// String returns the state name.
func (s TaskState) String() string {
	switch s {
	case TaskDecrypting:
		return "decrypting"
	case TaskFinished:
		return "finished"
	case TaskError:
		return "error"
	default:
		return fmt.Sprintf("TaskState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TaskState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TaskState) UnmarshalText(text []byte) error {
	for _, st := range []TaskState{TaskDecrypting, TaskFinished, TaskError} {
		if string(text) == st.String() {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown task state %q", text)
}

// Terminal reports whether no further transitions can occur.
func (s TaskState) Terminal() bool {
	return s == TaskFinished || s == TaskError
}

// placeholderName is shown for failed tasks whose input name is unknown.
const placeholderName = "ERROR"

// Result is the success bundle of a finished task.
type Result struct {
	*Payload
	// OriginalName is the submitted input name.
	OriginalName string
	// Name is the derived output file name.
	Name string
	// Path is where a Sink stored the output, if one was configured.
	Path string
}

// Task is the consumer-facing view of one submitted input.
type Task struct {
	SubmittedAt time.Time
	FinishedAt  time.Time
	Err         error
	Result      *Result
	Name        string
	ID          TaskID
	State       TaskState
}

// Message returns the error message of a failed task, or "".
func (t Task) Message() string {
	if t.Err == nil {
		return ""
	}
	return t.Err.Error()
}

// OutputName returns the derived output name of a finished task, or "".
func (t Task) OutputName() string {
	if t.Result == nil {
		return ""
	}
	return t.Result.Name
}

// Completion is the terminal outcome of one task, tagged with its id.
// Exactly one of Result and Err is set.
type Completion struct {
	Result *Result
	Err    error
	ID     TaskID
}
