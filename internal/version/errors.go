package version

import "fmt"

// ValidationError reports a malformed version string.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// MonotonicityError reports a new version that is older than the one
// already recorded on the ref.
type MonotonicityError struct {
	Component int
	Next      Version
	Prev      Version
	// Missing is set when a 4-component lineage would lose its cve component.
	Missing bool
}

func (e *MonotonicityError) Error() string {
	if e.Missing {
		return fmt.Sprintf("<%s> of version doesn't exist (%s after %s)", ComponentName(e.Component), e.Next, e.Prev)
	}
	return fmt.Sprintf("<%s> of version is getting older (%s after %s)", ComponentName(e.Component), e.Next, e.Prev)
}

// PolicyError reports a versioning request that cannot be honoured given
// the state of the ref.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}
