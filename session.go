package audiounlock

import (
	"context"
	"fmt"
	"sync"

	"github.com/simonhull/audiounlock/internal/types"
)

// Session is the interactive substrate: submissions return immediately,
// each input is read asynchronously, and completions are applied to the
// session's Tracker in whatever order the reads finish.
//
// All task state is owned by one loop goroutine. Reads run concurrently,
// but decoding happens on the loop after a read completes, so a slow
// decode delays the delivery of other completions. Once a read starts, its
// task always reaches a terminal state unless the session is closed.
type Session struct {
	cfg *runConfig

	ctx    context.Context
	cancel context.CancelFunc

	ops   chan func(*sessionState)
	quit  chan struct{}
	done  chan struct{}
	reads sync.WaitGroup

	closeOnce sync.Once
}

// sessionState is touched only by the loop goroutine.
type sessionState struct {
	tracker *Tracker
	// handles holds in-flight reads until they complete.
	handles map[TaskID]Source
	// names keeps output names distinct for the session's lifetime.
	names   *nameClaims
	waiters []chan struct{}
}

// NewSession starts a session. Close releases it.
func NewSession(opts ...RunOption) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:    newRunConfig(opts),
		ctx:    ctx,
		cancel: cancel,
		ops:    make(chan func(*sessionState)),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	st := &sessionState{
		tracker: NewTracker(),
		handles: make(map[TaskID]Source),
		names:   newNameClaims(),
	}
	for {
		select {
		case op := <-s.ops:
			op(st)
		case <-s.quit:
			return
		}
	}
}

// call runs fn on the loop goroutine and waits for it to finish.
func (s *Session) call(fn func(*sessionState)) error {
	finished := make(chan struct{})
	op := func(st *sessionState) {
		defer close(finished)
		fn(st)
	}
	select {
	case s.ops <- op:
	case <-s.done:
		return ErrSessionClosed
	}
	<-finished
	return nil
}

// post queues fn on the loop without waiting. It is dropped when the
// session has been closed.
func (s *Session) post(fn func(*sessionState)) {
	select {
	case s.ops <- fn:
	case <-s.done:
	}
}

// Submit registers sources and returns their task ids in order. Each
// source is classified first: a rejected source becomes a task that is
// already in the Error state and is never read. Accepted sources start
// Decrypting and are read in the background. Submit does not wait for any
// read.
func (s *Session) Submit(sources ...Source) ([]TaskID, error) {
	ids := make([]TaskID, 0, len(sources))
	err := s.call(func(st *sessionState) {
		for _, src := range sources {
			ids = append(ids, s.submit(st, src))
		}
		st.notifyIdle()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Session) submit(st *sessionState, src Source) TaskID {
	name := src.Name()
	v, err := Classify(name)
	if err != nil {
		id := st.tracker.AddFailed(name, err)
		s.cfg.logger.Warn(fmt.Sprintf("%s: %s", name, err), "task_id", id, "kind", KindOf(err).String())
		task, _ := st.tracker.Get(id)
		s.cfg.reporter.Report(task)
		return id
	}

	id := st.tracker.Add(name)
	st.handles[id] = src
	s.cfg.logger.Debug("task submitted", "task_id", id, "input", name, "variant", v.String())

	s.reads.Add(1)
	go func() {
		defer s.reads.Done()
		raw, err := src.Read(s.ctx)
		s.post(func(st *sessionState) {
			s.complete(st, id, v, raw, err)
		})
	}()
	return id
}

// complete runs on the loop once a read finishes.
func (s *Session) complete(st *sessionState, id TaskID, v Variant, raw []byte, readErr error) {
	src, ok := st.handles[id]
	delete(st.handles, id)
	if !ok {
		s.cfg.logger.Error("cannot find task", "task_id", id)
		return
	}

	c := s.decode(id, src.Name(), v, raw, readErr, st.names)
	s.apply(st, c)
}

func (s *Session) decode(id TaskID, name string, v Variant, raw []byte, readErr error, names *nameClaims) (c Completion) {
	c.ID = id
	defer func() {
		if r := recover(); r != nil {
			c = Completion{ID: id, Err: types.Errorf(KindIO, name, "decoder panic: %v", r)}
		}
	}()

	if readErr != nil {
		c.Err = types.Wrap(KindIO, name, "read input", readErr)
		return c
	}
	res, err := runPipeline(s.ctx, s.cfg.decoder, BytesSource{Filename: name, Data: raw}, v)
	if err != nil {
		c.Err = err
		return c
	}

	res.Name = names.claim(res.Name)
	if s.cfg.sink != nil {
		path, err := s.cfg.sink.Write(s.ctx, res.Name, res.Payload)
		if err != nil {
			c.Err = types.Wrap(KindIO, name, "write output", err)
			return c
		}
		res.Path = path
	}
	c.Result = res
	return c
}

// apply records c and notifies the reporter and idle waiters. Unknown ids
// are logged and dropped.
func (s *Session) apply(st *sessionState, c Completion) {
	task, err := st.tracker.Apply(c)
	if err != nil {
		s.cfg.logger.Error("cannot apply completion", "task_id", c.ID, "error", err)
		return
	}

	if task.State == TaskError {
		s.cfg.logger.Warn(fmt.Sprintf("%s: %s", task.Name, task.Message()),
			"task_id", task.ID, "kind", KindOf(task.Err).String())
	} else {
		s.cfg.logger.Info("task finished", "task_id", task.ID, "input", task.Name, "output", task.OutputName())
	}
	s.cfg.reporter.Report(task)
	st.notifyIdle()
}

func (st *sessionState) notifyIdle() {
	if st.tracker.Pending() > 0 {
		return
	}
	for _, w := range st.waiters {
		close(w)
	}
	st.waiters = nil
}

// Tasks returns a snapshot of every task in submission order.
func (s *Session) Tasks() ([]Task, error) {
	var tasks []Task
	err := s.call(func(st *sessionState) {
		tasks = st.tracker.Tasks()
	})
	return tasks, err
}

// Task returns one task by id.
func (s *Session) Task(id TaskID) (Task, error) {
	var (
		task Task
		ok   bool
	)
	if err := s.call(func(st *sessionState) {
		task, ok = st.tracker.Get(id)
	}); err != nil {
		return Task{}, err
	}
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	return task, nil
}

// Wait blocks until no task is Decrypting, ctx is done, or the session is
// closed.
func (s *Session) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	err := s.call(func(st *sessionState) {
		st.waiters = append(st.waiters, idle)
		st.notifyIdle()
	})
	if err != nil {
		return err
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
}

// Close stops the session. In-flight reads are cancelled through their
// context and their completions are discarded. Close waits for every read
// goroutine to return.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.quit)
		<-s.done
		s.reads.Wait()
	})
	return nil
}
