package audiounlock

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/simonhull/audiounlock/internal/types"
)

// Job is one unit of batch work. It is immutable once created.
type Job struct {
	Source  Source
	ID      TaskID
	Variant Variant
}

// message is what travels on a worker channel: a job, or the shutdown
// sentinel that ends the worker's loop.
type message struct {
	job      Job
	shutdown bool
}

// Summary is the outcome of a Pool run.
type Summary struct {
	// Tasks holds every input in submission order, all terminal.
	Tasks    []Task
	Finished int
	Failed   int
}

// Pool decodes a batch of inputs on a fixed number of workers.
//
// Each worker owns one channel. Jobs are dealt round-robin, then every
// worker receives exactly one shutdown sentinel. Run returns once every
// job has been attempted and every worker has exited. A failing job is
// logged and recorded; it never stops its worker or its siblings.
type Pool struct {
	cfg *runConfig

	// onShutdown and onJob observe worker activity in tests.
	onShutdown func(worker int)
	onJob      func(worker int, job Job)
}

// NewPool returns a Pool configured by opts.
func NewPool(opts ...RunOption) *Pool {
	return &Pool{cfg: newRunConfig(opts)}
}

// Run decodes the files at inputs.
func (p *Pool) Run(ctx context.Context, inputs ...string) (*Summary, error) {
	sources := lo.Map(inputs, func(in string, _ int) Source {
		return FileSource(in)
	})
	return p.RunSources(ctx, sources...)
}

// RunSources decodes sources. Inputs that do not classify are recorded as
// failed tasks without reaching a worker.
//
// ctx is handed to sources and the sink; cancelling it makes the remaining
// jobs fail quickly but does not skip them.
func (p *Pool) RunSources(ctx context.Context, sources ...Source) (*Summary, error) {
	workers := p.cfg.workers
	if workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, workers)
	}

	tracker := NewTracker()
	jobs := make([]Job, 0, len(sources))
	for _, src := range sources {
		v, err := Classify(src.Name())
		if err != nil {
			id := tracker.AddFailed(src.Name(), err)
			p.logFailure(src.Name(), id, -1, err)
			task, _ := tracker.Get(id)
			p.cfg.reporter.Report(task)
			continue
		}
		jobs = append(jobs, Job{ID: tracker.Add(src.Name()), Source: src, Variant: v})
	}

	perWorker := (len(jobs)+workers-1)/workers + 1
	channels := make([]chan message, workers)
	for i := range channels {
		channels[i] = make(chan message, perWorker)
	}

	completions := make(chan Completion)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for c := range completions {
			task, err := tracker.Apply(c)
			if err != nil {
				p.cfg.logger.Error("cannot apply completion", "job_id", c.ID, "error", err)
				continue
			}
			p.cfg.reporter.Report(task)
		}
	}()

	names := newNameClaims()
	var g errgroup.Group
	for i, ch := range channels {
		g.Go(func() error {
			p.work(ctx, i, ch, completions, names)
			return nil
		})
	}

	for i, job := range jobs {
		channels[i%workers] <- message{job: job}
	}
	for _, ch := range channels {
		ch <- message{shutdown: true}
	}

	// Workers always return nil; failures are carried per job.
	_ = g.Wait()
	close(completions)
	<-collected

	sum := &Summary{Tasks: tracker.Tasks()}
	for _, t := range sum.Tasks {
		if t.State == TaskFinished {
			sum.Finished++
		} else {
			sum.Failed++
		}
	}
	p.cfg.logger.Info("batch complete",
		"inputs", len(sources), "finished", sum.Finished, "failed", sum.Failed, "workers", workers)
	return sum, nil
}

// work is one worker's loop. It exits only on the shutdown sentinel.
func (p *Pool) work(ctx context.Context, worker int, in <-chan message, out chan<- Completion, names *nameClaims) {
	logger := p.cfg.logger.With("worker", worker)
	for msg := range in {
		if msg.shutdown {
			logger.Debug("worker stopping")
			if p.onShutdown != nil {
				p.onShutdown(worker)
			}
			return
		}

		if p.onJob != nil {
			p.onJob(worker, msg.job)
		}
		c := p.process(ctx, msg.job, names)
		if c.Err != nil {
			p.logFailure(msg.job.Source.Name(), msg.job.ID, worker, c.Err)
		} else {
			logger.Info("decoded", "job_id", msg.job.ID, "input", msg.job.Source.Name(), "output", c.Result.Path)
		}
		out <- c
	}
}

// process runs one job to a Completion. It never panics.
func (p *Pool) process(ctx context.Context, job Job, names *nameClaims) (c Completion) {
	c.ID = job.ID
	name := job.Source.Name()
	defer func() {
		if r := recover(); r != nil {
			c = Completion{ID: job.ID, Err: types.Errorf(KindIO, name, "decoder panic: %v", r)}
		}
	}()

	res, err := runPipeline(ctx, p.cfg.decoder, job.Source, job.Variant)
	if err != nil {
		c.Err = err
		return c
	}

	res.Name = names.claim(res.Name)
	if p.cfg.sink != nil {
		path, err := p.cfg.sink.Write(ctx, res.Name, res.Payload)
		if err != nil {
			c.Err = types.Wrap(KindIO, name, "write output", err)
			return c
		}
		res.Path = path
	}
	c.Result = res
	return c
}

// logFailure logs one failure as "<input>: <message>". worker is -1 for
// inputs rejected before dispatch.
func (p *Pool) logFailure(input string, id TaskID, worker int, err error) {
	msg := err.Error()
	var de *DecodeError
	if errors.As(err, &de) && de.Path == input {
		// The message already leads with the input; avoid repeating it.
		msg = strings.TrimPrefix(msg, input+": ")
	}
	attrs := []any{"job_id", id, "kind", KindOf(err).String()}
	if worker >= 0 {
		attrs = append(attrs, "worker", worker)
	}
	p.cfg.logger.Error(fmt.Sprintf("%s: %s", input, msg), attrs...)
}

// runPipeline reads, decodes and names one input.
func runPipeline(ctx context.Context, dec Decoder, src Source, v Variant) (*Result, error) {
	name := src.Name()
	raw, err := src.Read(ctx)
	if err != nil {
		return nil, types.Wrap(KindIO, name, "read input", err)
	}

	payload, err := dec.Decode(name, v, raw)
	if err != nil {
		return nil, asDecodeError(err, KindFormat, name)
	}

	outName, err := OutputName(name, payload)
	if err != nil {
		return nil, err
	}
	return &Result{Payload: payload, OriginalName: name, Name: outName}, nil
}

// nameClaims makes output names unique within one run. The first job to
// claim a name keeps it; later ones get " (2)", " (3)" and so on.
type nameClaims struct {
	seen map[string]int
	mu   sync.Mutex
}

func newNameClaims() *nameClaims {
	return &nameClaims{seen: make(map[string]int)}
}

func (n *nameClaims) claim(name string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := strings.ToLower(name)
	count := n.seen[key]
	n.seen[key] = count + 1
	if count == 0 {
		return name
	}

	ext := filepath.Ext(name)
	for i := count + 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), i, ext)
		ck := strings.ToLower(candidate)
		if n.seen[ck] == 0 {
			n.seen[ck] = 1
			return candidate
		}
	}
}
