package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"taskbridge/internal/journal"
	"taskbridge/internal/model"
	"taskbridge/internal/mutate"
	"taskbridge/internal/record"
)

// fakeTool is an in-memory task tool.
type fakeTool struct {
	mu        sync.Mutex
	records   []record.Raw
	nextID    int
	mutations []mutate.Intent
	exportErr error
	failOn    func(mutate.Intent) error
	// gate, when set, holds every Mutate call until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeTool(records ...record.Raw) *fakeTool {
	f := &fakeTool{records: records, nextID: 100}
	return f
}

func (f *fakeTool) Export(context.Context) ([]record.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	out := make([]record.Raw, len(f.records))
	for i, r := range f.records {
		r.Tags = append([]string(nil), r.Tags...)
		r.Annotations = append([]record.RawAnnotation(nil), r.Annotations...)
		out[i] = r
	}
	return out, nil
}

func (f *fakeTool) Add(_ context.Context, t model.NewTask) (model.Identifier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := uuid.NewString()
	f.records = append(f.records, record.Raw{
		ID:          f.nextID,
		UUID:        u,
		Description: t.Description,
		Project:     t.Project,
		Priority:    string(t.Priority),
		Tags:        append([]string(nil), t.Tags...),
		Status:      "pending",
		Entry:       "20240301T090000Z",
	})
	return model.Stable(u), nil
}

func (f *fakeTool) Mutate(ctx context.Context, id model.Identifier, in mutate.Intent) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations = append(f.mutations, in)
	if f.failOn != nil {
		if err := f.failOn(in); err != nil {
			return err
		}
	}
	idx := -1
	for i, r := range f.records {
		if u, ok := id.UUID(); ok && strings.EqualFold(r.UUID, u) {
			idx = i
		}
		if n, ok := id.Number(); ok && r.ID == n {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("no task matches %s", id)
	}
	r := &f.records[idx]
	switch in.Kind {
	case mutate.KindSetAttributes:
		if in.Attributes.Description != nil {
			r.Description = *in.Attributes.Description
		}
		if in.Attributes.Project != nil {
			r.Project = *in.Attributes.Project
		}
		if in.Attributes.Priority != nil {
			r.Priority = string(*in.Attributes.Priority)
		}
	case mutate.KindAddTag:
		r.Tags = append(r.Tags, in.Tag)
	case mutate.KindRemoveTag:
		r.Tags = mutate.ApplyTagDiff(r.Tags, mutate.TagDiff{Remove: []string{in.Tag}})
	case mutate.KindComplete:
		if in.ClearWait {
			r.Wait = ""
		}
		r.Status = "completed"
		r.End = "20240301T100000Z"
		r.ID = 0
	case mutate.KindBlock:
		r.Wait = "20991231T000000Z"
	case mutate.KindUnblock:
		if r.Wait == "" {
			return errors.New("Modified 0 tasks.")
		}
		r.Wait = ""
	case mutate.KindClearWaiting, mutate.KindReopen:
		r.Status = "pending"
		r.End = ""
	case mutate.KindAnnotate:
		r.Annotations = append(r.Annotations, record.RawAnnotation{Description: in.Note, Entry: "20240301T100000Z"})
	case mutate.KindDelete:
		r.Status = "deleted"
	default:
		return fmt.Errorf("unsupported intent %s", in.Kind)
	}
	return nil
}

func (f *fakeTool) count(kind mutate.IntentKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, in := range f.mutations {
		if in.Kind == kind {
			n++
		}
	}
	return n
}

func (f *fakeTool) raw(uuid string) record.Raw {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.UUID == uuid {
			return r
		}
	}
	return record.Raw{}
}

type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (m *memJournal) Append(_ context.Context, e journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJournal) List(_ context.Context, opts journal.ListOptions) ([]journal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []journal.Entry{}
	for i := len(m.entries) - 1; i >= 0; i-- {
		if opts.TaskUUID != "" && m.entries[i].TaskUUID != opts.TaskUUID {
			continue
		}
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *memJournal) Close() error { return nil }

func (m *memJournal) ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Operation+":"+string(e.Intent.Kind)+":"+string(e.Outcome))
	}
	return out
}
