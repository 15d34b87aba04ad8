package loader

import (
	"errors"
	"fmt"
)

// Loader errors.
var (
	ErrEmptyURL  = errors.New("empty model URL")
	ErrCancelled = errors.New("load cancelled")
)

// UnsupportedFormatError reports an asset whose extension has no decoder.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return "unsupported model format: no file extension"
	}
	return fmt.Sprintf("unsupported model format: .%s", e.Extension)
}

// LoadFailedError reports a fetch or decode failure.
type LoadFailedError struct {
	URL   string
	Cause error
}

func (e *LoadFailedError) Error() string {
	return fmt.Sprintf("load %q: %v", e.URL, e.Cause)
}

func (e *LoadFailedError) Unwrap() error {
	return e.Cause
}
