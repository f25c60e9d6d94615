package posting

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRuleNotFound is returned when a referenced schedule doesn't exist.
	ErrRuleNotFound = errors.New("schedule not found")

	// ErrRuleInactive is returned when posting is attempted against a
	// deactivated schedule.
	ErrRuleInactive = errors.New("schedule is inactive")

	// ErrDuplicateEntry is returned when a (rule, due date) pair has
	// already been posted. Expected on retries.
	ErrDuplicateEntry = errors.New("occurrence already posted")
)
