// Package tasks is the application core: it reads tasks from the task tool,
// classifies them, and turns requested changes into executed plans.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"taskbridge/internal/journal"
	"taskbridge/internal/lifecycle"
	"taskbridge/internal/logging"
	"taskbridge/internal/model"
	"taskbridge/internal/mutate"
	"taskbridge/internal/query"
	"taskbridge/internal/record"
)

const DefaultArchiveTimeout = 30 * time.Second

// Tool is the external task manager.
type Tool interface {
	Export(ctx context.Context) ([]record.Raw, error)
	Add(ctx context.Context, t model.NewTask) (model.Identifier, error)
	mutate.Mutator
}

// Service holds no task state: every call re-exports and re-classifies.
type Service struct {
	Tool    Tool
	Journal journal.Journal
	Logger  logging.Logger
	Now     func() time.Time

	// ArchiveAfter is the auto-archive threshold; <= 0 disables auto-archive.
	ArchiveAfter   time.Duration
	ArchiveTimeout time.Duration

	archives singleflight.Group
	inflight sync.WaitGroup
}

// Snapshot is one classified read of every task.
type Snapshot struct {
	Tasks   []model.ViewTask               `json:"tasks"`
	Skipped []*record.MalformedRecordError `json:"skipped"`
}

type ListResult struct {
	View    model.ViewState                `json:"view,omitempty"`
	Query   string                         `json:"query,omitempty"`
	Tasks   []model.ViewTask               `json:"tasks"`
	Counts  map[model.ViewState]int        `json:"counts"`
	Skipped []*record.MalformedRecordError `json:"skipped"`
}

// MutationResult describes an executed plan. Task is the state re-read after
// the plan ran; it is nil after a delete or when the re-read failed.
type MutationResult struct {
	Task    *model.ViewTask `json:"task,omitempty"`
	Plan    []mutate.Intent `json:"plan"`
	Steps   []mutate.Step   `json:"steps"`
	Changed bool            `json:"changed"`
}

// Preview is a plan that was derived but not executed.
type Preview struct {
	Task model.ViewTask  `json:"task"`
	Plan []mutate.Intent `json:"plan"`
	// Tags is the tag set the task would end up with.
	Tags []string `json:"tags"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() logging.Logger {
	if s.Logger == nil {
		return logging.Nop()
	}
	return s.Logger
}

func (s *Service) journal() journal.Journal {
	if s.Journal == nil {
		return journal.Nop()
	}
	return s.Journal
}

// Snapshot exports, normalizes and classifies every task. Malformed records are
// reported in Skipped instead of failing the read. Completed tasks past the
// archive threshold are archived in the background.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	raws, err := s.Tool.Export(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("export tasks: %w", err)
	}
	normalized, skipped := record.NormalizeAll(raws)
	for _, m := range skipped {
		s.logger().Warn("skipping malformed record", logging.F("index", m.Index), logging.F("uuid", m.UUID), logging.F("reason", m.Reason))
	}
	classified, _ := lifecycle.ClassifyAll(normalized, s.now(), s.ArchiveAfter)
	for _, t := range classified {
		if t.ArchiveDue {
			s.scheduleArchive(ctx, t)
		}
	}
	if skipped == nil {
		skipped = []*record.MalformedRecordError{}
	}
	return Snapshot{Tasks: classified, Skipped: skipped}, nil
}

// List returns the tasks in view (every view when empty) that match q.
func (s *Service) List(ctx context.Context, view model.ViewState, q query.Query) (ListResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return ListResult{}, err
	}
	tasks := snap.Tasks
	if view != "" {
		tasks = lifecycle.InView(tasks, view)
	}
	out, err := q.Apply(tasks, view)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{
		View:    view,
		Query:   q.Values().Encode(),
		Tasks:   out,
		Counts:  lifecycle.Counts(snap.Tasks),
		Skipped: snap.Skipped,
	}, nil
}

// Facets lists the tags and projects in view (every view when empty).
func (s *Service) Facets(ctx context.Context, view model.ViewState) (query.FacetSet, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return query.FacetSet{}, err
	}
	tasks := snap.Tasks
	if view != "" {
		tasks = lifecycle.InView(tasks, view)
	}
	return query.Facets(tasks), nil
}

// Get finds a task by uuid or working-set id.
func (s *Service) Get(ctx context.Context, ref string) (model.ViewTask, error) {
	id, err := model.ParseIdentifier(ref)
	if err != nil {
		return model.ViewTask{}, err
	}
	return s.find(ctx, id, ref)
}

func (s *Service) find(ctx context.Context, id model.Identifier, ref string) (model.ViewTask, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.ViewTask{}, err
	}
	for _, t := range snap.Tasks {
		if id.Matches(t.Task) {
			return t, nil
		}
	}
	return model.ViewTask{}, mutate.NotFoundError{Kind: "task", ID: strings.TrimSpace(ref)}
}

// Create adds a task. A full description that differs from the short one is
// stored as the first annotation.
func (s *Service) Create(ctx context.Context, in model.NewTask) (MutationResult, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return MutationResult{}, mutate.ErrEmptyDescription
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return MutationResult{}, mutate.ErrInvalidPriority
	}
	id, err := s.Tool.Add(ctx, in)
	if err != nil {
		return MutationResult{}, fmt.Errorf("add task: %w", err)
	}
	s.record(ctx, "create", id, "", mutate.Step{Intent: mutate.Intent{Kind: mutate.KindAdd, Note: in.Description}, Outcome: mutate.OutcomeSucceeded})

	var plan []mutate.Intent
	if full := strings.TrimSpace(in.FullDescription); full != "" && full != in.Description {
		plan, _ = mutate.PlanAnnotate(full)
	}
	res, err := s.apply(ctx, "create", id, "", plan)
	if err != nil {
		return res, err
	}
	res.Changed = true
	if t, err := s.find(ctx, id, id.String()); err == nil {
		res.Task = &t
	} else {
		s.logger().Warn("re-read after create failed", logging.F("id", id.String()), logging.Err(err))
	}
	return res, nil
}

// PlanUpdate derives the plan for req without executing it.
func (s *Service) PlanUpdate(ctx context.Context, ref string, req mutate.UpdateRequest) (Preview, error) {
	cur, err := s.Get(ctx, ref)
	if err != nil {
		return Preview{}, err
	}
	plan, err := mutate.Plan(cur, req)
	if err != nil {
		return Preview{}, err
	}
	tags := cur.Tags
	for _, in := range plan {
		switch in.Kind {
		case mutate.KindAddTag:
			tags = mutate.ApplyTagDiff(tags, mutate.TagDiff{Add: []string{in.Tag}})
		case mutate.KindRemoveTag:
			tags = mutate.ApplyTagDiff(tags, mutate.TagDiff{Remove: []string{in.Tag}})
		}
	}
	if tags == nil {
		tags = []string{}
	}
	if plan == nil {
		plan = []mutate.Intent{}
	}
	return Preview{Task: cur, Plan: plan, Tags: tags}, nil
}

func (s *Service) Update(ctx context.Context, ref string, req mutate.UpdateRequest) (MutationResult, error) {
	return s.mutateTask(ctx, "update", ref, func(cur model.ViewTask) ([]mutate.Intent, error) {
		return mutate.Plan(cur, req)
	})
}

func (s *Service) Complete(ctx context.Context, ref string) (MutationResult, error) {
	return s.mutateTask(ctx, "complete", ref, infallible(mutate.PlanComplete))
}

func (s *Service) Reopen(ctx context.Context, ref string) (MutationResult, error) {
	return s.mutateTask(ctx, "reopen", ref, infallible(mutate.PlanReopen))
}

func (s *Service) Block(ctx context.Context, ref string) (MutationResult, error) {
	return s.mutateTask(ctx, "block", ref, infallible(mutate.PlanBlock))
}

func (s *Service) Unblock(ctx context.Context, ref string) (MutationResult, error) {
	return s.mutateTask(ctx, "unblock", ref, infallible(mutate.PlanUnblock))
}

func (s *Service) Archive(ctx context.Context, ref string) (MutationResult, error) {
	return s.mutateTask(ctx, "archive", ref, mutate.PlanArchive)
}

func (s *Service) Unarchive(ctx context.Context, ref string) (MutationResult, error) {
	return s.mutateTask(ctx, "unarchive", ref, infallible(mutate.PlanUnarchive))
}

func (s *Service) Annotate(ctx context.Context, ref, note string) (MutationResult, error) {
	return s.mutateTask(ctx, "annotate", ref, func(model.ViewTask) ([]mutate.Intent, error) {
		return mutate.PlanAnnotate(note)
	})
}

// Delete removes a task. Nothing is sent to the tool unless confirmed is set.
func (s *Service) Delete(ctx context.Context, ref string, confirmed bool) (MutationResult, error) {
	if _, err := mutate.PlanDelete(ref, confirmed); err != nil {
		return MutationResult{}, err
	}
	return s.mutateTask(ctx, "delete", ref, func(model.ViewTask) ([]mutate.Intent, error) {
		return mutate.PlanDelete(ref, confirmed)
	})
}

// History lists journal entries, newest first.
func (s *Service) History(ctx context.Context, opts journal.ListOptions) ([]journal.Entry, error) {
	return s.journal().List(ctx, opts)
}

// Drain waits for background side effects (auto-archive) to finish.
func (s *Service) Drain() {
	s.inflight.Wait()
}

func infallible(fn func(model.ViewTask) []mutate.Intent) func(model.ViewTask) ([]mutate.Intent, error) {
	return func(t model.ViewTask) ([]mutate.Intent, error) { return fn(t), nil }
}

func (s *Service) mutateTask(ctx context.Context, op, ref string, planFn func(model.ViewTask) ([]mutate.Intent, error)) (MutationResult, error) {
	cur, err := s.Get(ctx, ref)
	if err != nil {
		return MutationResult{}, err
	}
	plan, err := planFn(cur)
	if err != nil {
		return MutationResult{}, err
	}
	id, err := model.ResolveIdentifier(cur.Task, cur.State)
	if err != nil {
		return MutationResult{}, err
	}
	res, err := s.apply(ctx, op, id, cur.UUID, plan)
	if err != nil {
		return res, err
	}
	if op == "delete" || !res.Changed {
		if !res.Changed {
			res.Task = &cur
		}
		return res, nil
	}
	if t, err := s.find(ctx, id, ref); err == nil {
		res.Task = &t
	} else {
		s.logger().Warn("re-read after mutation failed", logging.F("op", op), logging.F("ref", ref), logging.Err(err))
	}
	return res, nil
}

func (s *Service) apply(ctx context.Context, op string, id model.Identifier, taskUUID string, plan []mutate.Intent) (MutationResult, error) {
	if plan == nil {
		plan = []mutate.Intent{}
	}
	applied, err := mutate.Apply(ctx, s.Tool, id, plan, mutate.OnStep(func(step mutate.Step) {
		s.record(ctx, op, id, taskUUID, step)
	}))
	res := MutationResult{Plan: plan, Steps: applied.Steps, Changed: applied.Changed()}
	if err != nil {
		var pe *mutate.PlanError
		if errors.As(err, &pe) {
			s.logger().Warn("plan step failed",
				logging.F("op", op),
				logging.F("task", id.String()),
				logging.F("index", pe.Index),
				logging.F("intent", pe.Intent.String()),
				logging.Err(pe.Err),
			)
		}
		return res, err
	}
	return res, nil
}

func (s *Service) record(ctx context.Context, op string, id model.Identifier, taskUUID string, step mutate.Step) {
	if taskUUID == "" {
		taskUUID, _ = id.UUID()
	}
	err := s.journal().Append(ctx, journal.Entry{
		At:        s.now(),
		Operation: op,
		TaskUUID:  taskUUID,
		TaskRef:   id.Arg(),
		Index:     step.Index,
		Intent:    step.Intent,
		Outcome:   step.Outcome,
		Error:     step.Error,
	})
	if err != nil {
		s.logger().Warn("journal append failed", logging.F("op", op), logging.Err(err))
	}
}

// scheduleArchive archives t in the background. Concurrent reads that find the
// same task due share one in-flight archive call. The side effect is detached
// from ctx so a finished request does not cancel it.
func (s *Service) scheduleArchive(ctx context.Context, t model.ViewTask) {
	if strings.TrimSpace(t.UUID) == "" {
		return
	}
	id := model.Stable(t.UUID)
	timeout := s.ArchiveTimeout
	if timeout <= 0 {
		timeout = DefaultArchiveTimeout
	}
	detached := context.WithoutCancel(ctx)

	s.inflight.Add(1)
	ch := s.archives.DoChan(id.String(), func() (any, error) {
		ctx, cancel := context.WithTimeout(detached, timeout)
		defer cancel()
		plan, err := mutate.PlanArchive(t)
		if err != nil {
			return nil, err
		}
		res, err := s.apply(ctx, "auto-archive", id, t.UUID, plan)
		if err != nil {
			s.logger().Error("auto-archive failed", logging.F("uuid", t.UUID), logging.Err(err))
			return res, err
		}
		s.logger().Info("auto-archived task", logging.F("uuid", t.UUID), logging.F("end", t.End.String()))
		return res, nil
	})
	go func() {
		defer s.inflight.Done()
		<-ch
	}()
}
