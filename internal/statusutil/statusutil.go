package statusutil

import (
	"fmt"
	"strings"

	"taskbridge/internal/model"
)

// PriorityFilterAll matches every priority.
const PriorityFilterAll = "all"

// NormalizePriority maps user input onto H/M/L. Blank input returns "" with no
// error so callers can tell "not given" apart from an invalid value.
func NormalizePriority(s string) (model.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "h", "high":
		return model.PriorityHigh, nil
	case "m", "medium", "med":
		return model.PriorityMedium, nil
	case "l", "low":
		return model.PriorityLow, nil
	default:
		return "", fmt.Errorf("invalid priority: %q (expected H|M|L)", strings.TrimSpace(s))
	}
}

// NormalizePriorityFilter accepts all|H|M|L and the long spellings high|medium|low.
func NormalizePriorityFilter(s string) (string, error) {
	v := strings.TrimSpace(s)
	if v == "" || strings.EqualFold(v, PriorityFilterAll) {
		return PriorityFilterAll, nil
	}
	p, err := NormalizePriority(v)
	if err != nil {
		return "", fmt.Errorf("invalid priority filter: %q (expected all|H|M|L)", v)
	}
	return string(p), nil
}

// NormalizeStatus lowercases a Taskwarrior status. Records without a status are
// pending, which is what `task export` implies for freshly imported data.
func NormalizeStatus(s string) model.Status {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return model.StatusPending
	}
	return model.Status(v)
}

// NormalizeViewState parses a view name. "waiting" is accepted for blocked and
// "done" for completed, matching the words Taskwarrior itself uses.
func NormalizeViewState(s string) (model.ViewState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "todo", "open":
		return model.ViewPending, nil
	case "blocked", "waiting":
		return model.ViewBlocked, nil
	case "completed", "done":
		return model.ViewCompleted, nil
	case "archived":
		return model.ViewArchived, nil
	case "":
		return "", fmt.Errorf("invalid status: empty")
	default:
		return "", fmt.Errorf("invalid status: %q (expected pending|blocked|completed|archived)", strings.TrimSpace(s))
	}
}
