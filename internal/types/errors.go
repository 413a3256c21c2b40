package types

import (
	"errors"
	"fmt"
)

var (
	ErrNoSubtitleStream   = errors.New("no matching subtitle stream")
	ErrNoValidTimestamps  = errors.New("no valid timestamps in transcript")
	ErrSourceMediaMissing = errors.New("source media missing")
	ErrWindowOutOfRange   = errors.New("clip window out of range")
	ErrEncodeFailure      = errors.New("encode failed")
)

// EncodeError carries the encoder's diagnostic output.
type EncodeError struct {
	Output     string
	Diagnostic string
	Err        error
}

func (e *EncodeError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("encode %s: %v", e.Output, e.Err)
	if e.Diagnostic != "" {
		msg += "\n" + e.Diagnostic
	}
	return msg
}

func (e *EncodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *EncodeError) Is(target error) bool { return target == ErrEncodeFailure }

// Kind maps err onto a stable identifier used by the job store, the HTTP API
// and CLI output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSubtitleStream):
		return "no_subtitle_stream"
	case errors.Is(err, ErrNoValidTimestamps):
		return "no_valid_timestamps"
	case errors.Is(err, ErrSourceMediaMissing):
		return "source_media_missing"
	case errors.Is(err, ErrWindowOutOfRange):
		return "window_out_of_range"
	case errors.Is(err, ErrEncodeFailure):
		return "encode_failure"
	default:
		return "internal"
	}
}
