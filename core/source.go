package core

import (
	"fmt"
	"github.com/pkg/errors"
)

// ErrTraceRestarted is returned by Source.ReadEvent when the capture started
// over. The caller must call Source.Restart before reading further.
var ErrTraceRestarted = errors.New("trace stream restarted")

// DecodeError marks a single record that could not be decoded. The source
// has already skipped it; reading may continue.
type DecodeError struct {
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode record at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Source delivers decoded events in capture order. ReadEvent returns io.EOF
// at the end of the stream. Any error other than io.EOF, ErrTraceRestarted
// or a *DecodeError is fatal.
type Source interface {
	Metadata() Metadata
	ReadEvent() (Event, error)
	Restart() (Metadata, error)
}
