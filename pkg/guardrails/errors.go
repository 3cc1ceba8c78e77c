package guardrails

import "errors"

// Sentinel errors for policy mutations. Mutations that fail leave the policy
// set unchanged.
var (
	// ErrDuplicatePolicy indicates a policy with the same id already exists.
	ErrDuplicatePolicy = errors.New("policy id already exists")

	// ErrPolicyNotFound indicates no policy exists for the given id.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrInvalidThreshold indicates a risk threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("risk threshold must be in [0, 1]")

	// ErrInvalidAction indicates an action outside the closed action set.
	ErrInvalidAction = errors.New("invalid policy action")
)
