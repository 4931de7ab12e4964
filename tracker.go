package audiounlock

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tracker is the ordered, id-indexed store of task state shared by Pool
// and Session.
//
// Tasks are appended in submission order and never removed or reordered.
// A completion mutates its task in place, found through the id index.
// Tracker is not safe for concurrent use; each substrate confines it to a
// single goroutine.
type Tracker struct {
	now     func() time.Time
	index   map[TaskID]int
	tasks   []Task
	pending int
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		now:   time.Now,
		index: make(map[TaskID]int),
	}
}

func (t *Tracker) append(task Task) TaskID {
	task.ID = uuid.New()
	task.SubmittedAt = t.now()
	t.index[task.ID] = len(t.tasks)
	t.tasks = append(t.tasks, task)
	return task.ID
}

// Add appends a task in the Decrypting state and returns its fresh id.
func (t *Tracker) Add(name string) TaskID {
	t.pending++
	return t.append(Task{Name: name, State: TaskDecrypting})
}

// AddFailed appends a task that is already terminal with err. It never
// passes through Decrypting.
func (t *Tracker) AddFailed(name string, err error) TaskID {
	if name == "" {
		name = placeholderName
	}
	now := t.now()
	return t.append(Task{Name: name, State: TaskError, Err: err, FinishedAt: now})
}

// Apply moves the task named by c to its terminal state and returns the
// updated task. It returns ErrUnknownTask for ids it never issued and
// ErrTaskTerminal for tasks that already completed; neither changes any
// state.
func (t *Tracker) Apply(c Completion) (Task, error) {
	i, ok := t.index[c.ID]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrUnknownTask, c.ID)
	}

	task := &t.tasks[i]
	if task.State.Terminal() {
		return *task, fmt.Errorf("%w: %s is %s", ErrTaskTerminal, c.ID, task.State)
	}

	t.pending--
	task.FinishedAt = t.now()
	if c.Err != nil || c.Result == nil {
		task.State = TaskError
		task.Err = c.Err
		if task.Err == nil {
			task.Err = errors.New("task completed without a result")
		}
		if task.Name == "" {
			task.Name = placeholderName
		}
		return *task, nil
	}

	task.State = TaskFinished
	task.Result = c.Result
	return *task, nil
}

// Get returns the task with the given id.
func (t *Tracker) Get(id TaskID) (Task, bool) {
	i, ok := t.index[id]
	if !ok {
		return Task{}, false
	}
	return t.tasks[i], true
}

// Tasks returns a snapshot of all tasks in submission order.
func (t *Tracker) Tasks() []Task {
	out := make([]Task, len(t.tasks))
	copy(out, t.tasks)
	return out
}

// Len returns the number of tasks.
func (t *Tracker) Len() int {
	return len(t.tasks)
}

// Pending returns the number of tasks still Decrypting.
func (t *Tracker) Pending() int {
	return t.pending
}
