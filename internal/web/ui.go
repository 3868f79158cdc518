package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"taskbridge/internal/logging"
	"taskbridge/internal/model"
	"taskbridge/internal/query"
	"taskbridge/internal/statusutil"
	"taskbridge/internal/tasks"
)

const keepAliveEvery = 25 * time.Second

// uiSignals are the Datastar signals the page sends with every request.
type uiSignals struct {
	View string `json:"view"`
	Q    string `json:"q"`
	Sort string `json:"sort"`
	Note string `json:"note"`

	NewDescription string `json:"newDescription"`
	NewProject     string `json:"newProject"`
	NewPriority    string `json:"newPriority"`
	NewTags        string `json:"newTags"`
}

func readUISignals(r *http.Request) uiSignals {
	var sig uiSignals
	// A GET without signals (plain link, curl) is not an error.
	_ = datastar.ReadSignals(r, &sig)
	if v := strings.TrimSpace(r.URL.Query().Get("view")); v != "" {
		sig.View = v
	}
	return sig
}

func (sig uiSignals) view() model.ViewState {
	v, err := statusutil.NormalizeViewState(sig.View)
	if err != nil {
		return model.ViewPending
	}
	return v
}

func (sig uiSignals) query() (query.Query, error) {
	return query.Parse(url.Values{"q": {sig.Q}, "sort": {sig.Sort}})
}

type homeVM struct {
	View  model.ViewState
	Views []model.ViewState
}

type rowsVM struct {
	View  model.ViewState
	Tasks []model.ViewTask
}

type actionVM struct {
	Name    string
	Label   string
	Confirm string
}

// rowActions lists the buttons shown for a task in its current state.
func rowActions(t model.ViewTask) []actionVM {
	var out []actionVM
	switch t.State {
	case model.ViewPending:
		out = append(out, actionVM{Name: "complete", Label: "Done"}, actionVM{Name: "block", Label: "Block"})
	case model.ViewBlocked:
		out = append(out, actionVM{Name: "unblock", Label: "Unblock"}, actionVM{Name: "complete", Label: "Done"})
	case model.ViewCompleted:
		out = append(out, actionVM{Name: "reopen", Label: "Reopen"}, actionVM{Name: "archive", Label: "Archive"})
	case model.ViewArchived:
		out = append(out, actionVM{Name: "unarchive", Label: "Unarchive"}, actionVM{Name: "reopen", Label: "Reopen"})
	}
	return append(out, actionVM{Name: "delete", Label: "Delete", Confirm: "Delete this task?"})
}

// taskRef is the identifier the UI sends back: the uuid when known.
func taskRef(t model.ViewTask) string {
	if u := strings.TrimSpace(t.UUID); u != "" {
		return u
	}
	return strconv.Itoa(t.ID)
}

func visibleTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != model.ArchivedTag {
			out = append(out, t)
		}
	}
	return out
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	view := model.ViewPending
	if v, err := statusutil.NormalizeViewState(r.URL.Query().Get("view")); err == nil {
		view = v
	}
	s.writeHTMLTemplate(w, "index", homeVM{View: view, Views: model.ViewStates()})
}

type listFrame struct {
	html    string
	signals map[string]any
}

// renderList reads the current view. Errors are reported through the error
// signal so the stream keeps running.
func (s *Server) renderList(ctx context.Context, sig uiSignals) listFrame {
	view := sig.view()
	signals := map[string]any{"view": string(view), "error": ""}
	q, err := sig.query()
	if err != nil {
		signals["error"] = err.Error()
		return listFrame{signals: signals}
	}
	res, err := s.svc.List(ctx, view, q)
	if err != nil {
		signals["error"] = err.Error()
		return listFrame{signals: signals}
	}
	html, err := s.renderTemplate("rows", rowsVM{View: view, Tasks: res.Tasks})
	if err != nil {
		signals["error"] = err.Error()
		return listFrame{signals: signals}
	}
	counts := map[string]int{}
	for k, v := range res.Counts {
		counts[string(k)] = v
	}
	signals["counts"] = counts
	signals["skipped"] = len(res.Skipped)
	return listFrame{html: html, signals: signals}
}

func patchList(sse *datastar.ServerSentEventGenerator, f listFrame) {
	if f.html != "" {
		_ = sse.PatchElements(f.html, datastar.WithSelector("#task-rows"), datastar.WithMode(datastar.ElementPatchModeInner))
	}
	_ = sse.MarshalAndPatchSignals(f.signals)
}

func (f listFrame) same(o listFrame) bool {
	return f.html == o.html && fmt.Sprint(f.signals) == fmt.Sprint(o.signals)
}

// handleUIStream keeps the task list of one view current. It re-reads on
// every refresh tick and after mutations made through this server, and only
// sends a patch when the rendered list changed.
func (s *Server) handleUIStream(w http.ResponseWriter, r *http.Request) {
	sig := readUISignals(r)
	sse := datastar.NewSSE(w, r)
	ctx := sse.Context()

	last := s.renderList(ctx, sig)
	patchList(sse, last)

	ch, cancel := s.hub.subscribe()
	defer cancel()

	refresh := time.NewTicker(s.cfg.Refresh)
	defer refresh.Stop()
	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
			continue
		case <-refresh.C:
		case <-ch:
		}
		next := s.renderList(ctx, sig)
		if next.same(last) {
			continue
		}
		last = next
		patchList(sse, next)
	}
}

type detailVM struct {
	Task model.ViewTask
	Body template.HTML
}

func (s *Server) handleUIDetail(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	t, err := s.svc.Get(sse.Context(), r.PathValue("ref"))
	if err != nil {
		_ = sse.MarshalAndPatchSignals(map[string]any{"error": err.Error()})
		return
	}
	html, err := s.renderTemplate("detail", detailVM{Task: t, Body: renderTaskHTML(t)})
	if err != nil {
		_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
		return
	}
	_ = sse.PatchElements(html, datastar.WithSelector("#task-detail"), datastar.WithMode(datastar.ElementPatchModeInner))
}

func (s *Server) handleUIAction(w http.ResponseWriter, r *http.Request) {
	sig := readUISignals(r)
	ref, action := r.PathValue("ref"), r.PathValue("action")

	var (
		res tasks.MutationResult
		err error
	)
	switch action {
	case "annotate":
		res, err = s.svc.Annotate(r.Context(), ref, sig.Note)
	case "delete":
		// The page asks for confirmation before posting.
		res, err = s.svc.Delete(r.Context(), ref, true)
	default:
		fn, ok := s.transitions()[action]
		if !ok {
			http.NotFound(w, r)
			return
		}
		res, err = fn(r.Context(), ref)
	}
	s.finishUIMutation(w, r, sig, res, err, action)
}

func (s *Server) handleUICreate(w http.ResponseWriter, r *http.Request) {
	sig := readUISignals(r)
	body := createBody{
		Description: sig.NewDescription,
		Project:     sig.NewProject,
		Priority:    sig.NewPriority,
		Tags:        strings.Split(sig.NewTags, ","),
	}
	in, err := body.newTask()
	var res tasks.MutationResult
	if err == nil {
		res, err = s.svc.Create(r.Context(), in)
	}
	s.finishUIMutation(w, r, sig, res, err, "create")
}

func (s *Server) finishUIMutation(w http.ResponseWriter, r *http.Request, sig uiSignals, res tasks.MutationResult, err error, action string) {
	if res.Changed {
		s.hub.broadcast()
	}
	sse := datastar.NewSSE(w, r)
	if err != nil {
		s.log.Warn("ui action failed", logging.F("action", action), logging.Err(err))
		_ = sse.MarshalAndPatchSignals(map[string]any{"error": err.Error()})
		return
	}
	f := s.renderList(sse.Context(), sig)
	if action == "create" {
		f.signals["newDescription"] = ""
		f.signals["newTags"] = ""
	}
	if action == "annotate" {
		f.signals["note"] = ""
	}
	patchList(sse, f)
	if action == "delete" {
		_ = sse.PatchElements(`<p class="muted">Select a task.</p>`, datastar.WithSelector("#task-detail"), datastar.WithMode(datastar.ElementPatchModeInner))
		return
	}
	if res.Task != nil {
		html, err := s.renderTemplate("detail", detailVM{Task: *res.Task, Body: renderTaskHTML(*res.Task)})
		if err == nil {
			_ = sse.PatchElements(html, datastar.WithSelector("#task-detail"), datastar.WithMode(datastar.ElementPatchModeInner))
		}
	}
}
