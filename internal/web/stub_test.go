package web

import (
	"context"
	"sync"

	"taskbridge/internal/journal"
	"taskbridge/internal/model"
	"taskbridge/internal/mutate"
	"taskbridge/internal/query"
	"taskbridge/internal/tasks"
)

type call struct {
	op   string
	ref  string
	arg  any
	view model.ViewState
}

// stubService records calls and answers from canned values.
type stubService struct {
	mu    sync.Mutex
	calls []call

	list    tasks.ListResult
	listErr error
	facets  query.FacetSet
	task    model.ViewTask
	getErr  error
	preview tasks.Preview
	res     tasks.MutationResult
	mutErr  error
	entries []journal.Entry
}

func (s *stubService) record(c call) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

func (s *stubService) last() call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return call{}
	}
	return s.calls[len(s.calls)-1]
}

func (s *stubService) List(_ context.Context, view model.ViewState, q query.Query) (tasks.ListResult, error) {
	s.record(call{op: "list", view: view, arg: q})
	return s.list, s.listErr
}

func (s *stubService) Facets(_ context.Context, view model.ViewState) (query.FacetSet, error) {
	s.record(call{op: "facets", view: view})
	return s.facets, s.listErr
}

func (s *stubService) Get(_ context.Context, ref string) (model.ViewTask, error) {
	s.record(call{op: "get", ref: ref})
	return s.task, s.getErr
}

func (s *stubService) Create(_ context.Context, in model.NewTask) (tasks.MutationResult, error) {
	s.record(call{op: "create", arg: in})
	return s.res, s.mutErr
}

func (s *stubService) PlanUpdate(_ context.Context, ref string, req mutate.UpdateRequest) (tasks.Preview, error) {
	s.record(call{op: "plan", ref: ref, arg: req})
	return s.preview, s.mutErr
}

func (s *stubService) Update(_ context.Context, ref string, req mutate.UpdateRequest) (tasks.MutationResult, error) {
	s.record(call{op: "update", ref: ref, arg: req})
	return s.res, s.mutErr
}

func (s *stubService) transition(op, ref string) (tasks.MutationResult, error) {
	s.record(call{op: op, ref: ref})
	return s.res, s.mutErr
}

func (s *stubService) Complete(_ context.Context, ref string) (tasks.MutationResult, error) {
	return s.transition("complete", ref)
}

func (s *stubService) Reopen(_ context.Context, ref string) (tasks.MutationResult, error) {
	return s.transition("reopen", ref)
}

func (s *stubService) Block(_ context.Context, ref string) (tasks.MutationResult, error) {
	return s.transition("block", ref)
}

func (s *stubService) Unblock(_ context.Context, ref string) (tasks.MutationResult, error) {
	return s.transition("unblock", ref)
}

func (s *stubService) Archive(_ context.Context, ref string) (tasks.MutationResult, error) {
	return s.transition("archive", ref)
}

func (s *stubService) Unarchive(_ context.Context, ref string) (tasks.MutationResult, error) {
	return s.transition("unarchive", ref)
}

func (s *stubService) Annotate(_ context.Context, ref, note string) (tasks.MutationResult, error) {
	s.record(call{op: "annotate", ref: ref, arg: note})
	return s.res, s.mutErr
}

func (s *stubService) Delete(_ context.Context, ref string, confirmed bool) (tasks.MutationResult, error) {
	s.record(call{op: "delete", ref: ref, arg: confirmed})
	if !confirmed {
		return tasks.MutationResult{}, &mutate.ConfirmationRequiredError{Ref: ref}
	}
	return s.res, s.mutErr
}

func (s *stubService) History(_ context.Context, opts journal.ListOptions) ([]journal.Entry, error) {
	s.record(call{op: "history", arg: opts})
	return s.entries, s.listErr
}
