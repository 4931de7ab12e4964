package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/audiounlock/internal/config"
	"github.com/simonhull/audiounlock/internal/ledger"
	"github.com/simonhull/audiounlock/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(config.DefaultConfig())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBatch_DecodesAndSkipsFailures(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	ncm := testutil.WriteFile(t, in, "a.ncm", testutil.NCM(t, testutil.Metadata("Alpha", "mp3"), nil, testutil.MP3()))
	qmc := testutil.WriteFile(t, in, "b.qmcflac", testutil.QMC(testutil.FLAC()))
	bad := testutil.WriteFile(t, in, "c.xyz", []byte("x"))
	db := filepath.Join(t.TempDir(), "runs.db")

	stdout, err := execute(t, "-n", ncm, "-q", qmc, bad, ncm, "-w", "2", "-o", out, "--ledger", db, "--log-level", "error")
	require.NoError(t, err, "failed inputs do not fail the run")
	assert.Equal(t, "2 decoded, 1 failed\n", stdout)

	for _, name := range []string{"Alpha.mp3", "b.flac"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}

	l, err := ledger.Open(t.Context(), db)
	require.NoError(t, err)
	defer l.Close()

	runs, err := l.Runs(t.Context())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Workers)
	assert.Equal(t, 2, runs[0].Finished)
	assert.Equal(t, 1, runs[0].Failed)

	entries, err := l.Entries(t.Context(), runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestBatch_InvalidWorkers(t *testing.T) {
	_, err := execute(t, "-w", "0", "a.ncm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be at least 1")
}

func TestBatch_NoInputsPrintsHelp(t *testing.T) {
	stdout, err := execute(t)
	require.NoError(t, err)
	assert.True(t, strings.Contains(stdout, "Usage:"))
}

func TestVersion(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "audiounlock "))
}
