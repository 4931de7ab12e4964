package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why decoding a single input failed.
type ErrorKind int

const (
	// KindFormat means the container or extension was not recognised.
	KindFormat ErrorKind = iota + 1
	// KindKey means the content key could not be recovered.
	KindKey
	// KindMetadata means the container metadata was unreadable.
	KindMetadata
	// KindImageFormat means embedded artwork was unreadable or unsupported.
	KindImageFormat
	// KindTagBuild means a tag could not be assembled from the metadata.
	KindTagBuild
	// KindTagWrite means the tag could not be embedded into the audio.
	KindTagWrite
	// KindIO means reading the input or writing the output failed.
	KindIO
	// KindName means no usable output base name could be derived.
	KindName
)

// String returns the short kind label used in log attributes.
func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindKey:
		return "key"
	case KindMetadata:
		return "metadata"
	case KindImageFormat:
		return "image_format"
	case KindTagBuild:
		return "tag_build"
	case KindTagWrite:
		return "tag_write"
	case KindIO:
		return "io"
	case KindName:
		return "name"
	default:
		return "unknown"
	}
}

// DecodeError is the single error type produced by a decode pipeline.
type DecodeError struct {
	Err    error
	Path   string
	Reason string
	Kind   ErrorKind
}

func (e *DecodeError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s error: %s", e.Path, e.Kind, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DecodeError of the same kind. This lets the
// Err* sentinels match any error of their kind.
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Path == "" && t.Reason == "" && t.Err == nil
}

// Errorf builds a DecodeError of the given kind.
func Errorf(kind ErrorKind, path, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Wrap builds a DecodeError of the given kind around err.
func Wrap(kind ErrorKind, path, reason string, err error) *DecodeError {
	return &DecodeError{Kind: kind, Path: path, Reason: reason, Err: err}
}

// KindOf returns the kind of the first DecodeError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// Sentinels for errors.Is matching by kind.
var (
	ErrFormat      = &DecodeError{Kind: KindFormat}
	ErrKey         = &DecodeError{Kind: KindKey}
	ErrMetadata    = &DecodeError{Kind: KindMetadata}
	ErrImageFormat = &DecodeError{Kind: KindImageFormat}
	ErrTagBuild    = &DecodeError{Kind: KindTagBuild}
	ErrTagWrite    = &DecodeError{Kind: KindTagWrite}
	ErrIO          = &DecodeError{Kind: KindIO}
	ErrName        = &DecodeError{Kind: KindName}
)

// Warning represents a non-fatal issue encountered while decoding.
//
// Warnings never fail a task. They are attached to the decoded payload,
// for example when oversized artwork is dropped.
type Warning struct {
	// Stage where the warning occurred: "metadata", "artwork", "tag".
	Stage string

	Message string
}

// String returns a human-readable warning message.
func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Stage, w.Message)
}
