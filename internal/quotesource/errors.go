package quotesource

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks a request the source refuses to send upstream.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownSource is returned by Get for names nobody registered.
	ErrUnknownSource = errors.New("unknown quote source")
	// ErrData matches every *DataError.
	ErrData = errors.New("data error")
)

// DataError wraps any upstream failure during a spot batch.
type DataError struct {
	Source string
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: data error: %v", e.Source, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

func (e *DataError) Is(target error) bool { return target == ErrData }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
