// Package web serves the REST API and the browser UI.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"taskbridge/internal/journal"
	"taskbridge/internal/logging"
	"taskbridge/internal/model"
	"taskbridge/internal/mutate"
	"taskbridge/internal/query"
	"taskbridge/internal/tasks"
)

//go:embed templates/*.html static/*.css static/*.js
var assetsFS embed.FS

const (
	DefaultRefresh  = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// TaskService is the application core as seen by HTTP handlers.
type TaskService interface {
	List(ctx context.Context, view model.ViewState, q query.Query) (tasks.ListResult, error)
	Facets(ctx context.Context, view model.ViewState) (query.FacetSet, error)
	Get(ctx context.Context, ref string) (model.ViewTask, error)
	Create(ctx context.Context, in model.NewTask) (tasks.MutationResult, error)
	PlanUpdate(ctx context.Context, ref string, req mutate.UpdateRequest) (tasks.Preview, error)
	Update(ctx context.Context, ref string, req mutate.UpdateRequest) (tasks.MutationResult, error)
	Complete(ctx context.Context, ref string) (tasks.MutationResult, error)
	Reopen(ctx context.Context, ref string) (tasks.MutationResult, error)
	Block(ctx context.Context, ref string) (tasks.MutationResult, error)
	Unblock(ctx context.Context, ref string) (tasks.MutationResult, error)
	Archive(ctx context.Context, ref string) (tasks.MutationResult, error)
	Unarchive(ctx context.Context, ref string) (tasks.MutationResult, error)
	Annotate(ctx context.Context, ref, note string) (tasks.MutationResult, error)
	Delete(ctx context.Context, ref string, confirmed bool) (tasks.MutationResult, error)
	History(ctx context.Context, opts journal.ListOptions) ([]journal.Entry, error)
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Refresh is how often UI streams re-read the task list.
	Refresh time.Duration
	Logger  logging.Logger
}

type Server struct {
	cfg  ServerConfig
	svc  TaskService
	tmpl *template.Template
	log  logging.Logger
	hub  *changeHub
}

func NewServer(cfg ServerConfig, svc TaskService) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if svc == nil {
		return nil, errors.New("web: task service is nil")
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = DefaultRefresh
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim":    strings.TrimSpace,
		"ref":     taskRef,
		"tags":    visibleTags,
		"actions": rowActions,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:  cfg,
		svc:  svc,
		tmpl: tmpl,
		log:  cfg.Logger.With(logging.F("component", "web")),
		hub:  newChangeHub(),
	}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /api/tasks/{ref}", s.handleGetTask)
	mux.HandleFunc("PUT /api/tasks/{ref}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /api/tasks/{ref}", s.handleDeleteTask)
	mux.HandleFunc("POST /api/tasks/{ref}/plan", s.handlePlanTask)
	mux.HandleFunc("POST /api/tasks/{ref}/annotate", s.handleAnnotateTask)
	for name := range s.transitions() {
		mux.HandleFunc("POST /api/tasks/{ref}/"+name, s.handleTransition(name))
	}
	mux.HandleFunc("GET /api/facets", s.handleFacets)
	mux.HandleFunc("GET /api/journal", s.handleJournal)

	mux.HandleFunc("GET /static/app.css", s.handleStatic("static/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /static/app.js", s.handleStatic("static/app.js", "application/javascript; charset=utf-8"))
	mux.HandleFunc("GET /ui/stream", s.handleUIStream)
	mux.HandleFunc("GET /ui/tasks/{ref}", s.handleUIDetail)
	mux.HandleFunc("POST /ui/tasks", s.handleUICreate)
	mux.HandleFunc("POST /ui/tasks/{ref}/{action}", s.handleUIAction)
	mux.HandleFunc("GET /{$}", s.handleHome)
	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           LoggingMiddleware(s.log, s.Handler()),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", logging.F("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatic(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(name)
		if err != nil || len(b) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

// changeHub wakes UI streams after a mutation made through this server.
// Changes made outside (the task CLI) are picked up by the refresh ticker.
type changeHub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newChangeHub() *changeHub {
	return &changeHub{subs: map[chan struct{}]struct{}{}}
}

func (h *changeHub) subscribe() (ch chan struct{}, cancel func()) {
	ch = make(chan struct{}, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}
}

func (h *changeHub) broadcast() {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}
