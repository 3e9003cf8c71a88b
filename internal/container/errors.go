package container

import (
	"fmt"
	"strings"
)

// MissingDependencyError reports required dependencies absent at a wiring stage
type MissingDependencyError struct {
	Stage   string // "wire" or "validate"
	Missing []string
}

func missing(stage string, deps ...string) *MissingDependencyError {
	return &MissingDependencyError{Stage: stage, Missing: deps}
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("container %s: missing %s", e.Stage, strings.Join(e.Missing, ", "))
}
