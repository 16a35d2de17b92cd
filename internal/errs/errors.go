package errs

import (
	"errors"
	"strings"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrInvalid  = errors.New("invalid")
	ErrConflict = errors.New("conflict")
	// ErrPeriodClosed gates mutations that target a closed billing period.
	// It is a state gate, not a data-shape problem, and is reported to the
	// caller the same way as a validation failure.
	ErrPeriodClosed = errors.New("period_closed")
	// ErrGoalArchived indicates a deposit into an archived goal; archived
	// goals accept only withdrawals.
	ErrGoalArchived = errors.New("goal_archived")
	// ErrGoalBalance indicates a withdrawal exceeding the goal's derived balance.
	ErrGoalBalance = errors.New("goal_balance_exceeded")
)

// Severity classifies a validation error for display purposes.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is a single violated business rule tied to a field.
type ValidationError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	// Err carries the sentinel this violation maps to, if any.
	Err error `json:"-"`
}

func (e ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e ValidationError) Unwrap() error { return e.Err }

// ValidationErrors collects every rule violated by a single request.
// Rules are evaluated fully, not short-circuited, so the caller sees
// all problems at once.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is reports whether any collected violation wraps target, so
// errors.Is(errs, ErrPeriodClosed) works on the whole collection.
func (e ValidationErrors) Is(target error) bool {
	for _, v := range e {
		if errors.Is(v, target) {
			return true
		}
	}
	return false
}

// OrNil returns the collection as an error, or nil when empty.
func (e ValidationErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
