package utils

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindTransport ErrorKind = iota + 1
	KindFilesystem
	KindConcurrency
	KindInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFilesystem:
		return "filesystem"
	case KindConcurrency:
		return "concurrency"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

// DownloadError tags a job failure with the stage that produced it.
type DownloadError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *DownloadError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

func TransportError(op string, err error) error {
	return wrapKind(KindTransport, op, err)
}

func FilesystemError(op string, err error) error {
	return wrapKind(KindFilesystem, op, err)
}

func ConcurrencyError(op string, err error) error {
	return wrapKind(KindConcurrency, op, err)
}

func InputError(op string, err error) error {
	return wrapKind(KindInput, op, err)
}

// wrapKind leaves errors that already carry a kind untouched so the
// innermost classification wins.
func wrapKind(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DownloadError
	if errors.As(err, &de) {
		return err
	}
	return &DownloadError{Kind: kind, Op: op, Err: err}
}

func IsKind(err error, kind ErrorKind) bool {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
