package burn

import (
	"errors"
	"fmt"
)

// ErrSourceUnreadable marks a source PDF that could not be parsed. The stored
// object may be transiently unavailable, so callers treat this as retryable.
var ErrSourceUnreadable = errors.New("source PDF unreadable")

// ErrImageDecode marks signature image bytes that are not a decodable raster
// image. Recoverable: the submitter is asked for a new image, nothing is
// persisted.
var ErrImageDecode = errors.New("signature image undecodable")

// SourceError wraps a parse failure of the source document.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%v: %v", ErrSourceUnreadable, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is reports ErrSourceUnreadable so callers can classify with errors.Is.
func (e *SourceError) Is(target error) bool { return target == ErrSourceUnreadable }

// ImageError wraps a signature image decode failure.
type ImageError struct {
	Err error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("%v: %v", ErrImageDecode, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

func (e *ImageError) Is(target error) bool { return target == ErrImageDecode }
