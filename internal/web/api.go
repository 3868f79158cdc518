package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"taskbridge/internal/journal"
	"taskbridge/internal/model"
	"taskbridge/internal/mutate"
	"taskbridge/internal/query"
	"taskbridge/internal/statusutil"
	"taskbridge/internal/tasks"
)

const maxBodyBytes = 1 << 20

type transitionFunc func(ctx context.Context, ref string) (tasks.MutationResult, error)

func (s *Server) transitions() map[string]transitionFunc {
	return map[string]transitionFunc{
		"complete":  s.svc.Complete,
		"reopen":    s.svc.Reopen,
		"block":     s.svc.Block,
		"unblock":   s.svc.Unblock,
		"archive":   s.svc.Archive,
		"unarchive": s.svc.Unarchive,
	}
}

// parseView reads an optional view name. Blank means every view.
func parseView(raw string) (model.ViewState, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	v, err := statusutil.NormalizeViewState(raw)
	if err != nil {
		return "", &query.InvalidQueryError{Field: "view", Value: raw, Reason: "expected pending|blocked|completed|archived"}
	}
	return v, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid json: %v", err)
	}
	return nil
}

func (s *Server) mutated(w http.ResponseWriter, status int, res tasks.MutationResult, err error) {
	if err != nil {
		if res.Changed {
			s.hub.broadcast()
		}
		writeMutationError(w, res, err)
		return
	}
	if res.Changed {
		s.hub.broadcast()
	}
	writeJSON(w, status, res)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	view, err := parseView(r.URL.Query().Get("view"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q, err := query.Parse(r.URL.Query())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := s.svc.List(r.Context(), view, q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Get(r.Context(), r.PathValue("ref"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	view, err := parseView(r.URL.Query().Get("view"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	f, err := s.svc.Facets(r.Context(), view)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type createBody struct {
	Description     string   `json:"description"`
	FullDescription string   `json:"fullDescription"`
	Project         string   `json:"project"`
	Priority        string   `json:"priority"`
	Tags            []string `json:"tags"`
}

func (b createBody) newTask() (model.NewTask, error) {
	p, err := statusutil.NormalizePriority(b.Priority)
	if err != nil {
		return model.NewTask{}, mutate.ErrInvalidPriority
	}
	return model.NewTask{
		Description:     b.Description,
		FullDescription: b.FullDescription,
		Project:         strings.TrimSpace(b.Project),
		Priority:        p,
		Tags:            b.Tags,
	}, nil
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	in, err := body.newTask()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := s.svc.Create(r.Context(), in)
	s.mutated(w, http.StatusCreated, res, err)
}

type updateBody struct {
	Description *string   `json:"description"`
	Project     *string   `json:"project"`
	Priority    *string   `json:"priority"`
	Tags        *[]string `json:"tags"`
	Status      *string   `json:"status"`
}

// request converts the wire body. "waiting" is accepted for blocked; an
// unknown status or priority is passed through so the planner decides whether
// the field is applied and rejects it then.
func (b updateBody) request() (mutate.UpdateRequest, error) {
	req := mutate.UpdateRequest{
		Description: b.Description,
		Project:     b.Project,
		Tags:        b.Tags,
	}
	if b.Priority != nil {
		p, err := statusutil.NormalizePriority(*b.Priority)
		if err != nil || p == "" {
			p = model.Priority(strings.TrimSpace(*b.Priority))
		}
		req.Priority = &p
	}
	if b.Status != nil && strings.TrimSpace(*b.Status) != "" {
		st, err := statusutil.NormalizeViewState(*b.Status)
		if err != nil {
			st = model.ViewState(strings.TrimSpace(*b.Status))
		}
		req.Status = &st
	}
	return req, nil
}

func (s *Server) decodeUpdate(r *http.Request) (mutate.UpdateRequest, error) {
	var body updateBody
	if err := decodeBody(r, &body); err != nil {
		return mutate.UpdateRequest{}, err
	}
	return body.request()
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeUpdate(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := s.svc.Update(r.Context(), r.PathValue("ref"), req)
	s.mutated(w, http.StatusOK, res, err)
}

func (s *Server) handlePlanTask(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeUpdate(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	p, err := s.svc.PlanUpdate(r.Context(), r.PathValue("ref"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAnnotateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note string `json:"note"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := s.svc.Annotate(r.Context(), r.PathValue("ref"), body.Note)
	s.mutated(w, http.StatusOK, res, err)
}

func (s *Server) handleTransition(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn := s.transitions()[name]
		res, err := fn(r.Context(), r.PathValue("ref"))
		s.mutated(w, http.StatusOK, res, err)
	}
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	confirmed := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("confirm")), "yes")
	res, err := s.svc.Delete(r.Context(), r.PathValue("ref"), confirmed)
	s.mutated(w, http.StatusOK, res, err)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	opts := journal.ListOptions{Limit: journal.DefaultListLimit}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeServiceError(w, badRequest("invalid limit: %q", raw))
			return
		}
		opts.Limit = n
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("task")); raw != "" {
		id, err := model.ParseIdentifier(raw)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		u, ok := id.UUID()
		if !ok {
			writeServiceError(w, badRequest("journal filter needs a task uuid"))
			return
		}
		opts.TaskUUID = u
	}
	entries, err := s.svc.History(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
