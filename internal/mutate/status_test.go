package mutate

import (
	"errors"
	"testing"

	"taskbridge/internal/model"
)

func TestNamedTransitions(t *testing.T) {
	cases := []struct {
		name string
		plan func(model.ViewTask) []Intent
		from model.ViewTask
		want []IntentKind
	}{
		{"complete pending", PlanComplete, viewTask(model.ViewPending), []IntentKind{KindComplete}},
		{"complete completed", PlanComplete, viewTask(model.ViewCompleted), nil},
		{"reopen blocked", PlanReopen, viewTask(model.ViewBlocked), []IntentKind{KindUnblock, KindClearWaiting}},
		{"reopen completed", PlanReopen, viewTask(model.ViewCompleted), []IntentKind{KindReopen}},
		{"reopen archived", PlanReopen, viewTask(model.ViewArchived, model.ArchivedTag), []IntentKind{KindReopen, KindRemoveTag}},
		{"reopen pending", PlanReopen, viewTask(model.ViewPending), nil},
		{"block pending", PlanBlock, viewTask(model.ViewPending), []IntentKind{KindBlock}},
		{"block blocked", PlanBlock, viewTask(model.ViewBlocked), nil},
		{"unblock blocked", PlanUnblock, viewTask(model.ViewBlocked), []IntentKind{KindUnblock, KindClearWaiting}},
		{"unblock pending", PlanUnblock, viewTask(model.ViewPending), nil},
		{"unarchive archived", PlanUnarchive, viewTask(model.ViewArchived, "a", model.ArchivedTag), []IntentKind{KindRemoveTag}},
		{"unarchive completed", PlanUnarchive, viewTask(model.ViewCompleted, "a"), nil},
	}
	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(tt.plan(tt.from))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestPlanComplete_ClearsWaitOfBlockedTask(t *testing.T) {
	got := PlanComplete(viewTask(model.ViewBlocked))
	if len(got) != 1 || got[0].Kind != KindComplete || !got[0].ClearWait {
		t.Fatalf("blocked task: expected one complete clearing the wait marker, got %+v", got)
	}
	if got := PlanComplete(viewTask(model.ViewPending)); got[0].ClearWait {
		t.Fatalf("pending task should not touch the wait marker")
	}
}

func TestPlanArchive(t *testing.T) {
	got, err := PlanArchive(viewTask(model.ViewCompleted, "a"))
	if err != nil {
		t.Fatalf("PlanArchive: %v", err)
	}
	if len(got) != 1 || got[0].Kind != KindAddTag || got[0].Tag != model.ArchivedTag {
		t.Fatalf("unexpected plan %v", got)
	}

	got, err = PlanArchive(viewTask(model.ViewArchived, model.ArchivedTag))
	if err != nil || len(got) != 0 {
		t.Fatalf("already archived: %v %v", got, err)
	}

	_, err = PlanArchive(viewTask(model.ViewPending))
	var te *InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if te.From != model.ViewPending || te.To != model.ViewArchived {
		t.Fatalf("unexpected error fields %+v", te)
	}
}

func TestPlanAnnotateAndDelete(t *testing.T) {
	if _, err := PlanAnnotate("   "); !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("expected ErrEmptyNote, got %v", err)
	}
	got, err := PlanAnnotate("  call back  ")
	if err != nil || len(got) != 1 || got[0].Note != "call back" {
		t.Fatalf("PlanAnnotate = %v %v", got, err)
	}

	_, err = PlanDelete("12", false)
	var ce *ConfirmationRequiredError
	if !errors.As(err, &ce) || ce.Ref != "12" {
		t.Fatalf("expected ConfirmationRequiredError, got %v", err)
	}
	got, err = PlanDelete("12", true)
	if err != nil || len(got) != 1 || got[0].Kind != KindDelete {
		t.Fatalf("PlanDelete = %v %v", got, err)
	}
}
