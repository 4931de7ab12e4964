package audiounlock

import (
	"errors"

	"github.com/simonhull/audiounlock/internal/types"
)

// DecodeError is the error returned for a failed decode, re-exported from
// internal/types. Match kinds with errors.Is against the Err* sentinels.
type DecodeError = types.DecodeError

// ErrorKind is an alias to types.ErrorKind.
type ErrorKind = types.ErrorKind

// Warning is an alias to types.Warning.
type Warning = types.Warning

// Error kinds.
const (
	KindFormat      = types.KindFormat
	KindKey         = types.KindKey
	KindMetadata    = types.KindMetadata
	KindImageFormat = types.KindImageFormat
	KindTagBuild    = types.KindTagBuild
	KindTagWrite    = types.KindTagWrite
	KindIO          = types.KindIO
	KindName        = types.KindName
)

// Sentinels matching any DecodeError of the same kind.
var (
	ErrFormat      = types.ErrFormat
	ErrKey         = types.ErrKey
	ErrMetadata    = types.ErrMetadata
	ErrImageFormat = types.ErrImageFormat
	ErrTagBuild    = types.ErrTagBuild
	ErrTagWrite    = types.ErrTagWrite
	ErrIO          = types.ErrIO
	ErrName        = types.ErrName
)

var (
	// ErrUnknownTask is returned when a completion or lookup names an id
	// that was never issued.
	ErrUnknownTask = errors.New("unknown task")

	// ErrTaskTerminal is returned when a completion targets a task that
	// already reached Finished or Error.
	ErrTaskTerminal = errors.New("task already terminal")

	// ErrSessionClosed is returned by Session methods after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidWorkerCount is returned by Pool.Run when fewer than one
	// worker is configured.
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")
)

// KindOf returns the kind of the first DecodeError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	return types.KindOf(err)
}

// asDecodeError guarantees err is a *DecodeError carrying path.
func asDecodeError(err error, kind ErrorKind, path string) *DecodeError {
	var de *DecodeError
	if errors.As(err, &de) {
		if de.Path == "" {
			cp := *de
			cp.Path = path
			return &cp
		}
		return de
	}
	return types.Wrap(kind, path, "", err)
}
