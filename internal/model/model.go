package model

import "strings"

// ArchivedTag is the sentinel tag that marks a completed task as archived.
const ArchivedTag = "archived"

// DefaultProject is used when Taskwarrior reports no project.
const DefaultProject = "default"

type Priority string

const (
	PriorityHigh   Priority = "H"
	PriorityMedium Priority = "M"
	PriorityLow    Priority = "L"
)

// Rank orders priorities for sorting: H=3, M=2, L=1, anything else 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool { return p.Rank() > 0 }

// Status is the textual status reported by Taskwarrior.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusDeleted   Status = "deleted"

	// Legacy/auxiliary values some Taskwarrior versions still report.
	StatusWaiting   Status = "waiting"
	StatusRecurring Status = "recurring"
)

// ViewState is the derived lifecycle state of a task. It is computed on every
// read and never written back to Taskwarrior.
type ViewState string

const (
	ViewPending   ViewState = "pending"
	ViewBlocked   ViewState = "blocked"
	ViewCompleted ViewState = "completed"
	ViewArchived  ViewState = "archived"
)

// ViewStates lists every view state in display order.
func ViewStates() []ViewState {
	return []ViewState{ViewPending, ViewBlocked, ViewCompleted, ViewArchived}
}

// Terminal reports whether the view state belongs to a completed task.
func (v ViewState) Terminal() bool {
	return v == ViewCompleted || v == ViewArchived
}

type Annotation struct {
	Description string    `json:"description"`
	Entry       Timestamp `json:"entry,omitzero"`
}

type Task struct {
	ID              int      `json:"id"`
	UUID            string   `json:"uuid"`
	Description     string   `json:"description"`
	FullDescription string   `json:"fullDescription"`
	Project         string   `json:"project"`
	Priority        Priority `json:"priority"`
	Tags            []string `json:"tags"`
	Status          Status   `json:"status"`

	// Wait is the raw deferred-until marker. Any non-empty value means blocked.
	Wait string `json:"wait,omitempty"`

	Entry    Timestamp `json:"entry,omitzero"`
	End      Timestamp `json:"end,omitzero"`
	Modified Timestamp `json:"modified,omitzero"`
	Due      Timestamp `json:"due,omitzero"`

	Urgency     float64      `json:"urgency"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

func (t Task) HasTag(tag string) bool {
	for _, x := range t.Tags {
		if x == tag {
			return true
		}
	}
	return false
}

// Waiting reports whether Taskwarrior signals the task as deferred, either through
// a wait marker or through the textual "waiting" status.
func (t Task) Waiting() bool {
	if strings.TrimSpace(t.Wait) != "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(string(t.Status)), string(StatusWaiting))
}

// ViewTask is a task together with its classification for the current read.
type ViewTask struct {
	Task
	State      ViewState `json:"state"`
	ArchiveDue bool      `json:"archiveDue,omitempty"`
}

// NewTask is the input for creating a task.
type NewTask struct {
	Description     string   `json:"description"`
	FullDescription string   `json:"fullDescription,omitempty"`
	Project         string   `json:"project,omitempty"`
	Priority        Priority `json:"priority,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}
