package index

import (
	"errors"
	"fmt"
)

var (
	ErrBuildFailed       = errors.New("index build failed")
	ErrRebuildInProgress = errors.New("index rebuild already queued")
	ErrRequestNotFound   = errors.New("rebuild request not found")
)

// BuildError reports that the approved-document read failed during a build.
// The previously served index stays in place.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s", ErrBuildFailed, e.Err)
}

func (e *BuildError) Is(target error) bool {
	return target == ErrBuildFailed
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
