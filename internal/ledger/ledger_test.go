package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/audiounlock"
	"github.com/simonhull/audiounlock/internal/testutil"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLedger_RecordsPoolRun(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	runID, err := l.StartRun(ctx, 2)
	require.NoError(t, err)

	pool := audiounlock.NewPool(
		audiounlock.WithWorkers(2),
		audiounlock.WithSink(audiounlock.NewMemorySink()),
		audiounlock.WithReporter(l.Reporter(ctx, runID, nil)),
	)
	sum, err := pool.RunSources(ctx,
		audiounlock.BytesSource{Filename: "clip.xyz"},
		audiounlock.BytesSource{Filename: "a.ncm", Data: testutil.NCM(t, testutil.Metadata("A", "mp3"), nil, testutil.MP3())},
	)
	require.NoError(t, err)
	require.NoError(t, l.FinishRun(ctx, runID, sum.Finished, sum.Failed))

	entries, err := l.Entries(ctx, runID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "clip.xyz", entries[0].Input)
	assert.Equal(t, "error", entries[0].State)
	assert.Equal(t, "format", entries[0].Kind)
	assert.Contains(t, entries[0].Error, "invalid file type")

	assert.Equal(t, "a.ncm", entries[1].Input)
	assert.Equal(t, "finished", entries[1].State)
	assert.Equal(t, "mem://A.mp3", entries[1].Output)
	assert.Empty(t, entries[1].Error)

	runs, err := l.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, 2, run.Workers)
	assert.Equal(t, 1, run.Finished)
	assert.Equal(t, 1, run.Failed)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestLedger_UnknownRun(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	_, err := l.Run(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownRun)
	assert.ErrorIs(t, l.FinishRun(ctx, "missing", 0, 0), ErrUnknownRun)

	entries, err := l.Entries(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedger_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	l, err := Open(ctx, path)
	require.NoError(t, err)
	runID, err := l.StartRun(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, Entry{RunID: runID, TaskID: "t1", Input: "a.ncm", State: "finished", Output: "A.mp3"}))
	require.NoError(t, l.Close())

	l, err = Open(ctx, path)
	require.NoError(t, err)
	defer l.Close()

	entries, err := l.Entries(ctx, runID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A.mp3", entries[0].Output)
}

func TestLedger_RejectsNonTerminalState(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)
	runID, err := l.StartRun(ctx, 1)
	require.NoError(t, err)

	err = l.Record(ctx, Entry{RunID: runID, TaskID: "t1", Input: "a.ncm", State: "decrypting"})
	assert.Error(t, err)
}
