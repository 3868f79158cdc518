package mutate

import (
	"strings"

	"taskbridge/internal/model"
)

// PlanComplete marks an open task done. Completed and archived tasks yield an
// empty plan.
func PlanComplete(current model.ViewTask) []Intent {
	if current.State.Terminal() {
		return nil
	}
	return []Intent{completeIntent(current)}
}

// PlanReopen brings a blocked, completed or archived task back to pending.
func PlanReopen(current model.ViewTask) []Intent {
	switch current.State {
	case model.ViewBlocked:
		return unblockPair()
	case model.ViewCompleted, model.ViewArchived:
		out := []Intent{{Kind: KindReopen}}
		if current.HasTag(model.ArchivedTag) {
			out = append(out, removeTag(model.ArchivedTag))
		}
		return out
	default:
		return nil
	}
}

func PlanBlock(current model.ViewTask) []Intent {
	if current.State == model.ViewBlocked {
		return nil
	}
	return []Intent{{Kind: KindBlock}}
}

func PlanUnblock(current model.ViewTask) []Intent {
	if current.State != model.ViewBlocked {
		return nil
	}
	return unblockPair()
}

func PlanAnnotate(note string) ([]Intent, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, ErrEmptyNote
	}
	return []Intent{{Kind: KindAnnotate, Note: note}}, nil
}

// PlanDelete requires an explicit confirmation; ref is only used for the error.
func PlanDelete(ref string, confirmed bool) ([]Intent, error) {
	if !confirmed {
		return nil, &ConfirmationRequiredError{Ref: ref}
	}
	return []Intent{{Kind: KindDelete}}, nil
}
