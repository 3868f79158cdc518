package mutate

import (
	"fmt"
	"strings"

	"taskbridge/internal/model"
)

type IntentKind string

const (
	KindSetAttributes IntentKind = "set_attributes"
	KindAddTag        IntentKind = "add_tag"
	KindRemoveTag     IntentKind = "remove_tag"
	KindComplete      IntentKind = "complete"
	KindBlock         IntentKind = "block"
	KindUnblock       IntentKind = "unblock"
	KindClearWaiting  IntentKind = "clear_waiting"
	KindReopen        IntentKind = "reopen"
	KindAnnotate      IntentKind = "annotate"
	KindDelete        IntentKind = "delete"

	// KindAdd only appears in the journal; creation goes through the tool's Add.
	KindAdd IntentKind = "add"
)

// Attributes carries the scalar fields of a SetAttributes intent. Nil fields are
// left untouched.
type Attributes struct {
	Description *string         `json:"description,omitempty"`
	Project     *string         `json:"project,omitempty"`
	Priority    *model.Priority `json:"priority,omitempty"`
}

func (a Attributes) Empty() bool {
	return a.Description == nil && a.Project == nil && a.Priority == nil
}

// Intent is one atomic change, applied by a single call to the task tool.
type Intent struct {
	Kind       IntentKind  `json:"kind"`
	Attributes *Attributes `json:"attributes,omitempty"`
	Tag        string      `json:"tag,omitempty"`
	Note       string      `json:"note,omitempty"`

	// ClearWait asks Complete to drop the wait marker in the same call, so a
	// blocked task does not stay waiting once it is done.
	ClearWait bool `json:"clearWait,omitempty"`

	// ContinueOnError lets the executor move on to the next intent when this one fails.
	ContinueOnError bool `json:"continueOnError,omitempty"`
}

// StatusTransition reports whether the intent changes the task's lifecycle state.
// ClearWaiting only accompanies Unblock and is not counted.
func (i Intent) StatusTransition() bool {
	switch i.Kind {
	case KindComplete, KindBlock, KindUnblock, KindReopen:
		return true
	default:
		return false
	}
}

func (i Intent) String() string {
	switch i.Kind {
	case KindAddTag:
		return "+" + i.Tag
	case KindRemoveTag:
		return "-" + i.Tag
	case KindSetAttributes:
		if i.Attributes == nil {
			return string(i.Kind)
		}
		var parts []string
		if i.Attributes.Description != nil {
			parts = append(parts, "description")
		}
		if i.Attributes.Project != nil {
			parts = append(parts, "project")
		}
		if i.Attributes.Priority != nil {
			parts = append(parts, "priority")
		}
		return fmt.Sprintf("%s(%s)", i.Kind, strings.Join(parts, ","))
	default:
		return string(i.Kind)
	}
}

func setAttributes(a Attributes) Intent { return Intent{Kind: KindSetAttributes, Attributes: &a} }
func addTag(tag string) Intent         { return Intent{Kind: KindAddTag, Tag: tag} }
func removeTag(tag string) Intent      { return Intent{Kind: KindRemoveTag, Tag: tag} }

func completeIntent(current model.ViewTask) Intent {
	return Intent{Kind: KindComplete, ClearWait: current.State == model.ViewBlocked || current.Wait != ""}
}

// unblockPair clears both the wait marker and a textual waiting status. Either
// half may be a no-op for the task at hand, so a failure does not stop the other.
func unblockPair() []Intent {
	return []Intent{
		{Kind: KindUnblock, ContinueOnError: true},
		{Kind: KindClearWaiting, ContinueOnError: true},
	}
}
