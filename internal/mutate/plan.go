package mutate

import (
	"strings"

	"taskbridge/internal/model"
)

// UpdateRequest is a partial update. Nil fields are absent.
type UpdateRequest struct {
	Description *string          `json:"description,omitempty"`
	Project     *string          `json:"project,omitempty"`
	Priority    *model.Priority  `json:"priority,omitempty"`
	Tags        *[]string        `json:"tags,omitempty"`
	Status      *model.ViewState `json:"status,omitempty"`
}

// HasAttributes reports whether any non-status field is present.
func (r UpdateRequest) HasAttributes() bool {
	return r.Description != nil || r.Project != nil || r.Priority != nil || r.Tags != nil
}

// Plan turns an update request into the ordered intents needed to bring current
// to the requested state. It performs no I/O.
//
// Blocking and completing are exclusive: every other field of the request is
// dropped. Unblocking, reopening and the archive toggles are followed by the
// attribute update for the remaining fields. Fields are validated only when
// they are applied, so an exclusive request never fails on a dropped field.
func Plan(current model.ViewTask, req UpdateRequest) ([]Intent, error) {
	if req.Status == nil || *req.Status == current.State {
		if err := validateAttributes(req); err != nil {
			return nil, err
		}
		return planAttributes(current.Task, req), nil
	}

	to := *req.Status
	from := current.State
	var out []Intent
	switch to {
	case model.ViewBlocked:
		return []Intent{{Kind: KindBlock}}, nil

	case model.ViewCompleted:
		if from == model.ViewArchived {
			out = append(out, removeTag(model.ArchivedTag))
			break
		}
		return []Intent{completeIntent(current)}, nil

	case model.ViewPending:
		switch from {
		case model.ViewBlocked:
			out = append(out, unblockPair()...)
		case model.ViewCompleted, model.ViewArchived:
			out = append(out, Intent{Kind: KindReopen})
			if current.HasTag(model.ArchivedTag) {
				out = append(out, removeTag(model.ArchivedTag))
			}
		}

	case model.ViewArchived:
		if from != model.ViewCompleted {
			return nil, &InvalidTransitionError{From: from, To: to}
		}
		out = append(out, addTag(model.ArchivedTag))

	default:
		return nil, &InvalidTransitionError{From: from, To: to}
	}

	if err := validateAttributes(req); err != nil {
		return nil, err
	}
	return append(out, planAttributes(current.Task, req)...), nil
}

func validateAttributes(req UpdateRequest) error {
	if req.Description != nil && strings.TrimSpace(*req.Description) == "" {
		return ErrEmptyDescription
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// planAttributes emits SetAttributes for the present fields that differ, then
// tag removals, then tag additions. The archived sentinel is never touched.
func planAttributes(current model.Task, req UpdateRequest) []Intent {
	var attrs Attributes
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		if d != current.Description {
			attrs.Description = &d
		}
	}
	if req.Project != nil {
		p := strings.TrimSpace(*req.Project)
		cur := current.Project
		if cur == model.DefaultProject {
			cur = ""
		}
		cmp := p
		if cmp == model.DefaultProject {
			cmp = ""
		}
		if cmp != cur {
			attrs.Project = &p
		}
	}
	if req.Priority != nil && *req.Priority != current.Priority {
		p := *req.Priority
		attrs.Priority = &p
	}

	var out []Intent
	if !attrs.Empty() {
		out = append(out, setAttributes(attrs))
	}
	if req.Tags != nil {
		d := DiffTags(withoutTag(current.Tags, model.ArchivedTag), withoutTag(*req.Tags, model.ArchivedTag))
		out = append(out, tagIntents(d)...)
	}
	return out
}
