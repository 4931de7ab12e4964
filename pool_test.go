package audiounlock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/audiounlock/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// poolProbe records worker activity through the Pool test hooks.
type poolProbe struct {
	mu        sync.Mutex
	shutdowns []int
	jobs      map[TaskID]int
	assigned  map[int][]string
}

func attachProbe(p *Pool) *poolProbe {
	probe := &poolProbe{jobs: make(map[TaskID]int), assigned: make(map[int][]string)}
	p.onShutdown = func(worker int) {
		probe.mu.Lock()
		defer probe.mu.Unlock()
		probe.shutdowns = append(probe.shutdowns, worker)
	}
	p.onJob = func(worker int, job Job) {
		probe.mu.Lock()
		defer probe.mu.Unlock()
		probe.jobs[job.ID]++
		probe.assigned[worker] = append(probe.assigned[worker], job.Source.Name())
	}
	return probe
}

func TestPool_ThreeInputsTwoWorkers(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	var inputs []string
	for _, title := range []string{"One", "Two", "Three"} {
		raw := testutil.NCM(t, testutil.Metadata(title, "mp3"), nil, testutil.MP3())
		inputs = append(inputs, testutil.WriteFile(t, in, title+".ncm", raw))
	}

	pool := NewPool(WithWorkers(2), WithSink(NewDirSink(out)), WithLogger(quietLogger()))
	probe := attachProbe(pool)

	sum, err := pool.Run(context.Background(), inputs...)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Finished)
	assert.Equal(t, 0, sum.Failed)

	assert.ElementsMatch(t, []int{0, 1}, probe.shutdowns, "one sentinel per worker")
	assert.Equal(t, []string{inputs[0], inputs[2]}, probe.assigned[0])
	assert.Equal(t, []string{inputs[1]}, probe.assigned[1])

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"One.mp3", "Two.mp3", "Three.mp3"}, names)

	for i, task := range sum.Tasks {
		assert.Equal(t, inputs[i], task.Name)
		assert.Equal(t, TaskFinished, task.State)
	}
}

func TestPool_EveryJobAttemptedOnce(t *testing.T) {
	stub := DecoderFunc(func(name string, v Variant, raw []byte) (*Payload, error) {
		return &Payload{Format: MediaMP3, Audio: raw}, nil
	})

	for workers := 1; workers <= 4; workers++ {
		for n := 0; n <= 9; n++ {
			t.Run(fmt.Sprintf("w%d_n%d", workers, n), func(t *testing.T) {
				sources := make([]Source, n)
				for i := range sources {
					sources[i] = BytesSource{Filename: fmt.Sprintf("in%d.ncm", i), Data: []byte{byte(i)}}
				}

				pool := NewPool(WithWorkers(workers), WithDecoder(stub), WithLogger(quietLogger()))
				probe := attachProbe(pool)

				sum, err := pool.RunSources(context.Background(), sources...)
				require.NoError(t, err)
				assert.Equal(t, n, sum.Finished)
				assert.Len(t, probe.shutdowns, workers)
				assert.Len(t, probe.jobs, n)
				for id, count := range probe.jobs {
					assert.Equal(t, 1, count, "job %s", id)
				}
			})
		}
	}
}

func TestPool_FailureIsolation(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	sink := NewMemorySink()

	var reported []Task
	pool := NewPool(
		WithWorkers(2),
		WithSink(sink),
		WithLogger(logger),
		WithReporter(ReporterFunc(func(t Task) { reported = append(reported, t) })),
	)

	sources := []Source{
		BytesSource{Filename: "good.ncm", Data: testutil.NCM(t, testutil.Metadata("Good", "mp3"), nil, testutil.MP3())},
		BytesSource{Filename: "broken.ncm", Data: []byte("CTENFDAM\x01\x70")},
		BytesSource{Filename: "clip.xyz", Data: []byte("ignored")},
		BytesSource{Filename: "track.qmcflac", Data: testutil.QMC(testutil.FLAC())},
	}

	sum, err := pool.RunSources(context.Background(), sources...)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Finished)
	assert.Equal(t, 2, sum.Failed)
	assert.Len(t, reported, 4)

	require.Len(t, sum.Tasks, 4)
	assert.Equal(t, TaskFinished, sum.Tasks[0].State)
	assert.Equal(t, TaskError, sum.Tasks[1].State)
	assert.ErrorIs(t, sum.Tasks[1].Err, ErrKey)
	assert.Equal(t, TaskError, sum.Tasks[2].State)
	assert.ErrorIs(t, sum.Tasks[2].Err, ErrFormat)
	assert.Equal(t, TaskFinished, sum.Tasks[3].State)

	assert.Equal(t, []string{"Good.mp3", "track.flac"}, sink.Names())
	assert.Contains(t, logs.String(), "clip.xyz: format error: invalid file type")
	assert.Contains(t, logs.String(), "broken.ncm: key error: cannot read key length")
}

func TestPool_InvalidWorkerCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := NewPool(WithWorkers(n), WithLogger(quietLogger())).Run(context.Background(), "a.ncm")
		assert.ErrorIs(t, err, ErrInvalidWorkerCount)
	}
}

func TestPool_DuplicateTitles(t *testing.T) {
	raw := testutil.NCM(t, testutil.Metadata("Same", "mp3"), nil, testutil.MP3())
	sink := NewMemorySink()
	pool := NewPool(WithWorkers(3), WithSink(sink), WithLogger(quietLogger()))

	sum, err := pool.RunSources(context.Background(),
		BytesSource{Filename: "a.ncm", Data: raw},
		BytesSource{Filename: "b.ncm", Data: raw},
		BytesSource{Filename: "c.ncm", Data: raw},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Finished)
	assert.Equal(t, []string{"Same (2).mp3", "Same (3).mp3", "Same.mp3"}, sink.Names())
}

func TestPool_DecoderPanic(t *testing.T) {
	boom := DecoderFunc(func(string, Variant, []byte) (*Payload, error) {
		panic("corrupt state")
	})
	pool := NewPool(WithWorkers(1), WithDecoder(boom), WithLogger(quietLogger()))

	sum, err := pool.RunSources(context.Background(),
		BytesSource{Filename: "a.ncm"},
		BytesSource{Filename: "b.ncm"},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Failed)
	assert.ErrorIs(t, sum.Tasks[1].Err, ErrIO)
}

func TestPool_MissingFile(t *testing.T) {
	pool := NewPool(WithLogger(quietLogger()))
	sum, err := pool.Run(context.Background(), "/nonexistent/song.ncm")
	require.NoError(t, err)
	require.Len(t, sum.Tasks, 1)
	assert.ErrorIs(t, sum.Tasks[0].Err, ErrIO)
	assert.ErrorIs(t, sum.Tasks[0].Err, os.ErrNotExist)
}

func TestNameClaims(t *testing.T) {
	n := newNameClaims()
	assert.Equal(t, "a.mp3", n.claim("a.mp3"))
	assert.Equal(t, "A (2).mp3", n.claim("A.mp3"))
	assert.Equal(t, "a (2) (2).mp3", n.claim("a (2).mp3"))
	assert.Equal(t, "a (3).mp3", n.claim("a.mp3"))
	assert.Equal(t, "b.flac", n.claim("b.flac"))
}
