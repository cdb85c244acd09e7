package trace

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no structurally valid record exists in a buffer.
	ErrNotFound = errors.New("feathertrace record not found")

	// ErrTruncated is returned when fewer than RecordSize bytes are available
	// for a record.
	ErrTruncated = errors.New("feathertrace record truncated")
)

// DecodeError represents a window that cannot hold a record.
type DecodeError struct {
	// Offset is the position of the window in the scanned buffer
	Offset int
	// Want is the required window size
	Want int
	// Got is the actual window size
	Got int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode record at offset %#x: need %d bytes, have %d", e.Offset, e.Want, e.Got)
}

func (e *DecodeError) Unwrap() error {
	return ErrTruncated
}

// NotFoundError is returned by Locate when every candidate was rejected.
type NotFoundError struct {
	// Candidates is the number of magic-word matches examined
	Candidates int
	// Rejected lists the offsets whose magic or primary marker did not match
	Rejected []int
	// TruncatedAt is the offset of the last candidate if it ran past the end
	// of the buffer, or -1
	TruncatedAt int
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Candidates == 0:
		return "feathertrace record not found: magic word not present in image"
	case e.TruncatedAt >= 0:
		return fmt.Sprintf("feathertrace record not found: %d candidate(s), last one at %#x is truncated",
			e.Candidates, e.TruncatedAt)
	default:
		return fmt.Sprintf("feathertrace record not found: %d candidate(s) rejected", e.Candidates)
	}
}

// Unwrap exposes ErrNotFound, plus ErrTruncated when the last candidate was cut
// off by the end of the buffer.
func (e *NotFoundError) Unwrap() []error {
	if e.TruncatedAt >= 0 {
		return []error{ErrNotFound, ErrTruncated}
	}
	return []error{ErrNotFound}
}
