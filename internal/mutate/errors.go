package mutate

import (
	"errors"
	"fmt"

	"taskbridge/internal/model"
)

var (
	ErrEmptyDescription = errors.New("description is required")
	ErrEmptyNote        = errors.New("annotation note is required")
	ErrInvalidPriority  = errors.New("invalid priority (expected H, M or L)")
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ConfirmationRequiredError is returned for destructive operations that were not
// explicitly confirmed.
type ConfirmationRequiredError struct {
	Ref string
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("confirmation required to delete task %s", e.Ref)
}

type InvalidTransitionError struct {
	From model.ViewState
	To   model.ViewState
}

func (e *InvalidTransitionError) Error() string {
	if e.From == model.ViewPending || e.From == model.ViewBlocked {
		if e.To == model.ViewArchived {
			return fmt.Sprintf("cannot archive a %s task; complete it first", e.From)
		}
	}
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// PlanError reports the first intent of a plan that failed. Intents before Index
// were applied and are not rolled back.
type PlanError struct {
	Index  int
	Intent Intent
	Err    error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Intent, e.Err)
}

func (e *PlanError) Unwrap() error { return e.Err }
