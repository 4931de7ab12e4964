package audiounlock

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Sink stores the audio of finished tasks.
type Sink interface {
	// Write stores p.Audio under name and returns where it was stored.
	Write(ctx context.Context, name string, p *Payload) (string, error)
}

// DirSink writes outputs into a directory.
//
// Each file is written to a temporary file in the same directory, synced
// and renamed into place, so a reader never observes a partial output.
type DirSink struct {
	Dir  string
	Perm os.FileMode
}

// NewDirSink returns a DirSink writing into dir. An empty dir means the
// current working directory.
func NewDirSink(dir string) *DirSink {
	if dir == "" {
		dir = "."
	}
	return &DirSink{Dir: dir, Perm: 0o644}
}

// Write stores p.Audio as Dir/name, creating Dir when missing.
func (s *DirSink) Write(ctx context.Context, name string, p *Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name != filepath.Base(name) {
		return "", fmt.Errorf("output name %q is not a plain file name", name)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	outputPath := filepath.Join(s.Dir, name)
	tempFile, err := os.CreateTemp(s.Dir, ".audiounlock-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	// Ensure cleanup on any error
	success := false
	defer func() {
		if !success {
			_ = tempFile.Close()    //nolint:errcheck // Best effort cleanup
			_ = os.Remove(tempPath) //nolint:errcheck // Best effort cleanup
		}
	}()

	if _, err := tempFile.Write(p.Audio); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}

	// Sync temp file (fsync) to ensure data is on disk
	if err := tempFile.Sync(); err != nil {
		return "", fmt.Errorf("sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}

	// Atomic rename temp -> output
	if err := os.Rename(tempPath, outputPath); err != nil {
		return "", fmt.Errorf("rename temp to output: %w", err)
	}

	success = true
	return outputPath, nil
}

// MemorySink keeps outputs in memory. It is safe for concurrent use.
type MemorySink struct {
	files map[string][]byte
	mu    sync.RWMutex
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// Write stores p.Audio under name. The returned location is "mem://name".
func (s *MemorySink) Write(ctx context.Context, name string, p *Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.files[name] = p.Audio
	s.mu.Unlock()
	return "mem://" + name, nil
}

// Get returns the stored audio for name.
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.files[name]
	return b, ok
}

// Names returns the stored names, sorted.
func (s *MemorySink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.files))
}
