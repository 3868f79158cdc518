// Package lifecycle derives the view state of a task and decides when a
// completed task is due for automatic archival.
package lifecycle

import (
	"errors"
	"time"

	"taskbridge/internal/model"
)

// DefaultArchiveAfter is how long a completed task stays in the completed view
// before it is archived automatically.
const DefaultArchiveAfter = 60 * 24 * time.Hour

// ErrDeleted is returned for deleted tasks, which must be dropped before
// classification.
var ErrDeleted = errors.New("deleted tasks have no view state")

type Result struct {
	State model.ViewState
	// ArchiveRecommended asks the caller to archive the task. The task is still
	// reported as completed for the current read.
	ArchiveRecommended bool
}

// Classify evaluates, in order: blocked, archived, completed, pending. A task
// that is both waiting and completed is reported as blocked.
//
// archiveAfter <= 0 disables the auto-archive recommendation.
func Classify(t model.Task, now time.Time, archiveAfter time.Duration) (Result, error) {
	if t.Status == model.StatusDeleted {
		return Result{}, ErrDeleted
	}
	switch {
	case t.Waiting():
		return Result{State: model.ViewBlocked}, nil
	case t.Status == model.StatusCompleted && t.HasTag(model.ArchivedTag):
		return Result{State: model.ViewArchived}, nil
	case t.Status == model.StatusCompleted:
		return Result{State: model.ViewCompleted, ArchiveRecommended: ArchiveDue(t, now, archiveAfter)}, nil
	default:
		return Result{State: model.ViewPending}, nil
	}
}

// ArchiveDue reports whether t should be archived at now: it is completed, not yet
// archived, has a known end time, and has been completed for strictly longer than
// archiveAfter. Once true it stays true for every later now until archived.
func ArchiveDue(t model.Task, now time.Time, archiveAfter time.Duration) bool {
	if archiveAfter <= 0 {
		return false
	}
	if t.Status != model.StatusCompleted || t.HasTag(model.ArchivedTag) {
		return false
	}
	if t.End.IsZero() {
		return false
	}
	return now.Sub(t.End.Time) > archiveAfter
}

// ClassifyAll classifies every task. Tasks that cannot be classified are left out
// and returned separately so that one bad record does not fail the whole read.
func ClassifyAll(tasks []model.Task, now time.Time, archiveAfter time.Duration) ([]model.ViewTask, []model.Task) {
	out := make([]model.ViewTask, 0, len(tasks))
	var rejected []model.Task
	for _, t := range tasks {
		res, err := Classify(t, now, archiveAfter)
		if err != nil {
			rejected = append(rejected, t)
			continue
		}
		out = append(out, model.ViewTask{Task: t, State: res.State, ArchiveDue: res.ArchiveRecommended})
	}
	return out, rejected
}

// InView returns the tasks in the given view, preserving order.
func InView(tasks []model.ViewTask, view model.ViewState) []model.ViewTask {
	out := make([]model.ViewTask, 0, len(tasks))
	for _, t := range tasks {
		if t.State == view {
			out = append(out, t)
		}
	}
	return out
}

// Counts returns the number of tasks per view state.
func Counts(tasks []model.ViewTask) map[model.ViewState]int {
	out := make(map[model.ViewState]int, 4)
	for _, v := range model.ViewStates() {
		out[v] = 0
	}
	for _, t := range tasks {
		out[t.State]++
	}
	return out
}
