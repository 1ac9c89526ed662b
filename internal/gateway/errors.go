package gateway

import "fmt"

// StartupDependencyError reports a resource the gateway cannot run without,
// such as a static root or the entry page.
type StartupDependencyError struct {
	Dependency string
	Err        error
}

func (e *StartupDependencyError) Error() string {
	return fmt.Sprintf("startup dependency %s: %v", e.Dependency, e.Err)
}

func (e *StartupDependencyError) Unwrap() error {
	return e.Err
}
