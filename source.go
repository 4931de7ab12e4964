package audiounlock

import (
	"context"
	"os"
)

// Source is a named byte source submitted for decoding. The name drives
// classification and output naming; Read is called at most once.
type Source interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
}

// FileSource reads an input file from disk.
type FileSource string

// Name returns the file path.
func (f FileSource) Name() string {
	return string(f)
}

// Read returns the file contents.
func (f FileSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(string(f))
}

// BytesSource is an in-memory input, such as an uploaded file.
type BytesSource struct {
	Filename string
	Data     []byte
}

// Name returns the file name.
func (b BytesSource) Name() string {
	return b.Filename
}

// Read returns the data.
func (b BytesSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Data, nil
}
