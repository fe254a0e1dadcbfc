package domain

import "fmt"

// ValidationError reports malformed caller input. No state is mutated when a
// validation error is returned; callers recover by re-prompting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an action referencing an entity id that does not
// resolve. The request fails with no partial mutation.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// AccessDeniedError reports a role lacking permission for a view. It is never
// downgraded to a different view.
type AccessDeniedError struct {
	Role Role
	View View
}

func (e AccessDeniedError) Error() string {
	return fmt.Sprintf("role %s may not access %s", e.Role, e.View)
}

// AggregationError reports a malformed synthetic series. It is recovered
// inside the analytics aggregator by substituting zero-filled defaults and is
// surfaced only as a warning on the snapshot, never as a failed read.
type AggregationError struct {
	Generator string
	Reason    string
}

func (e AggregationError) Error() string {
	return fmt.Sprintf("aggregation: %s series invalid: %s", e.Generator, e.Reason)
}
