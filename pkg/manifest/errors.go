package manifest

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateStreamID       = errors.New("manifest: duplicate stream_id")
	ErrDuplicateName           = errors.New("manifest: duplicate name")
	ErrSizeMismatch            = errors.New("manifest: payload size does not match layout")
	ErrInvalidMulticastAddress = errors.New("manifest: invalid multicast address")
	ErrInvalidFrequency        = errors.New("manifest: invalid frequency")
	ErrUnknownKind             = errors.New("manifest: unknown payload kind")
	ErrInvalidTrafficClass     = errors.New("manifest: invalid traffic class")
	ErrNotFound                = errors.New("manifest: stream not found")
)

// ValidationError reports the entry that rejected a manifest build.
type ValidationError struct {
	Index    int
	Name     string
	StreamID uint64
	Err      error
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: entry=%d name=%q stream_id=%d", e.Err, e.Index, e.Name, e.StreamID)
	}
	return fmt.Sprintf("%v: entry=%d name=%q stream_id=%d: %s", e.Err, e.Index, e.Name, e.StreamID, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
