package handler

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chetan-code/tasktracker/internal/models"
	"github.com/chetan-code/tasktracker/internal/session"
	"github.com/chetan-code/tasktracker/internal/tasklist"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

// ProfileLookup finds display details for an email. A nil profile with a
// nil error means nothing is known.
type ProfileLookup interface {
	Lookup(ctx context.Context, email string) (*models.Profile, error)
}

type Options struct {
	Store     *session.Store
	Tasks     *tasklist.Manager
	Persister tasklist.Persister
	Profiles  ProfileLookup

	AuthMode      string
	JWTSecret     string
	CookieSecure  bool
	GoogleEnabled bool
	LoadTimeout   time.Duration
}

// TodoHandler is the HTTP face of the session store and task list. The
// server calls it from many goroutines; mu keeps every call into the core
// on one thread of control.
type TodoHandler struct {
	mu      sync.Mutex
	store   *session.Store
	tasks   *tasklist.Manager
	persist tasklist.Persister
	lookup  ProfileLookup

	authMode      string
	jwtKey        []byte
	cookieSecure  bool
	googleEnabled bool
	loadTimeout   time.Duration

	// generation whose stored tasks have been applied; saves wait for it
	loadedGen uint64

	tmpl    *template.Template
	pending sync.WaitGroup
}

func NewTodoHandler(opts Options) *TodoHandler {
	timeout := opts.LoadTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TodoHandler{
		store:         opts.Store,
		tasks:         opts.Tasks,
		persist:       opts.Persister,
		lookup:        opts.Profiles,
		authMode:      opts.AuthMode,
		jwtKey:        []byte(opts.JWTSecret),
		cookieSecure:  opts.CookieSecure,
		googleEnabled: opts.GoogleEnabled,
		loadTimeout:   timeout,
		tmpl:          template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

func (h *TodoHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.HomeHandler)
	r.Get("/healthz", HealthHandler)
	r.Get("/login", h.LoginHandler)
	r.Post("/login", h.LoginHandler)
	r.Get("/signup", h.SignupHandler)
	r.Post("/signup", h.SignupHandler)
	r.Post("/logout", h.LogoutHandler)
	if h.googleEnabled {
		r.Get("/auth/google", h.beginGoogleAuth)
		r.Get("/auth/google/callback", h.AuthCallbackHandler)
	}

	//only user with valid auth and jwt can access these routes
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Get("/todos", h.TodoHandler)
		r.Post("/todos", h.TodoHandler)
		r.Post("/todos/toggle", h.ToggleHandler)
		r.Post("/todos/edit", h.EditHandler)
		r.Post("/todos/delete", h.DeleteHandler)
		r.Post("/todos/clear", h.ClearHandler)
	})

	return r
}

// Wait blocks until background loads started by logins have finished.
func (h *TodoHandler) Wait() {
	h.pending.Wait()
}

func HomeRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *TodoHandler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if _, err := h.VerifyToken(cookie.Value); err == nil {
			http.Redirect(w, r, "/todos", http.StatusSeeOther)
			return
		}
	}
	HomeRedirect(w, r)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

type pageData struct {
	Identity      models.Identity
	Tasks         []models.Task
	Stats         tasklist.Stats
	Search        string
	Status        tasklist.Status
	Statuses      []tasklist.Status
	GoogleEnabled bool
	Editing       string
	Errors        map[string]string
	Form          map[string]string
	Notice        string
}

func (h *TodoHandler) newPage() pageData {
	return pageData{
		Statuses:      []tasklist.Status{tasklist.All, tasklist.Pending, tasklist.Completed},
		Status:        tasklist.All,
		GoogleEnabled: h.googleEnabled,
	}
}

func (h *TodoHandler) render(w http.ResponseWriter, name string, data pageData) {
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("template_render_failed", "template", name, "error", err)
	}
}

func (h *TodoHandler) renderFormErrors(w http.ResponseWriter, name string, err error, form map[string]string) {
	data := h.newPage()
	data.Form = form

	var verr *session.ValidationError
	if errors.As(err, &verr) {
		data.Errors = verr.Fields
		w.WriteHeader(http.StatusUnprocessableEntity)
	} else {
		slog.Error("form_submit_failed", "template", name, "error", err)
		data.Errors = map[string]string{"general": "Something went wrong. Try again."}
		w.WriteHeader(http.StatusInternalServerError)
	}
	h.render(w, name, data)
}

// view builds the page for the active session. Caller holds h.mu.
func (h *TodoHandler) view(r *http.Request) (pageData, error) {
	all, err := h.tasks.List()
	if err != nil {
		return pageData{}, err
	}
	id, _ := h.store.Current()

	data := h.newPage()
	data.Identity = id
	data.Search = r.FormValue("search")
	data.Status = tasklist.ParseStatus(r.FormValue("status"))
	data.Tasks = tasklist.Project(all, data.Search, data.Status)
	data.Stats = tasklist.Count(all)
	data.Editing = r.FormValue("editing")
	return data, nil
}

// respond renders the list after a change: partials for htmx, otherwise a
// redirect back to the page. Caller holds h.mu.
func (h *TodoHandler) respond(w http.ResponseWriter, r *http.Request) {
	//check if we have htmx request - then just update element avoid redirect
	if r.Header.Get("HX-Request") != "true" {
		http.Redirect(w, r, "/todos", http.StatusSeeOther)
		return
	}

	data, err := h.view(r)
	if err != nil {
		w.Header().Set("HX-Redirect", "/login")
		return
	}
	//we use "task-list" name we used in html {{block}}
	h.render(w, "task-list", data)

	//Append the Stats block with the hx-swap-oob attribute
	//find element with "stats-container" id and replace it
	fmt.Fprint(w, `<div id="stats-container" hx-swap-oob="true" class="stats">`)
	h.render(w, "stats-container", data)
	fmt.Fprint(w, `</div>`)
}

// save hands the collection to the record store. Until the stored tasks
// of this session are loaded, writing would replace them, so the change
// stays in memory and goes out with the merge in loadTasks. The write is
// not tied to the request: the change is already in memory. Caller holds h.mu.
func (h *TodoHandler) save() {
	if h.persist == nil {
		return
	}
	tk, ok := h.store.Ticket()
	if !ok {
		return
	}
	if tk.Gen() != h.loadedGen {
		slog.Debug("task_save_deferred", "email", tk.Email)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.loadTimeout)
	defer cancel()
	h.saveLocked(ctx, tk.Email)
}

func (h *TodoHandler) saveLocked(ctx context.Context, owner string) {
	all, err := h.tasks.List()
	if err != nil {
		return
	}
	if err := h.persist.Save(ctx, owner, all); err != nil {
		slog.Error("task_save_failed", "email", owner, "error", err)
	}
}

func (h *TodoHandler) TodoHandler(w http.ResponseWriter, r *http.Request) {
	if !h.acquire(r) {
		HomeRedirect(w, r)
		return
	}
	defer h.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		task, ok, err := h.tasks.Add(r.FormValue("task"))
		if err != nil {
			HomeRedirect(w, r)
			return
		}
		if !ok {
			slog.Debug("empty_task",
				"method", r.Method,
				"path", r.URL.Path,
				"ip", r.RemoteAddr)
		} else {
			slog.Info("task_added", "id", task.ID)
			h.save()
		}
		h.respond(w, r)

	case http.MethodGet:
		data, err := h.view(r)
		if err != nil {
			HomeRedirect(w, r)
			return
		}
		//check if we have htmx request - and update the part
		if r.Header.Get("HX-Request") == "true" {
			h.render(w, "task-list", data)
			return
		}
		//render full page
		h.render(w, "todos.html", data)
	}
}

func (h *TodoHandler) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if !h.acquire(r) {
		HomeRedirect(w, r)
		return
	}
	defer h.mu.Unlock()

	task, ok, err := h.tasks.Toggle(id)
	if err != nil {
		HomeRedirect(w, r)
		return
	}
	if ok {
		slog.Info("task_toggled", "id", id, "completed", task.Completed)
		h.save()
	} else {
		slog.Debug("toggle_unknown_task", "id", id, "ip", r.RemoteAddr)
	}
	h.respond(w, r)
}

func (h *TodoHandler) EditHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if !h.acquire(r) {
		HomeRedirect(w, r)
		return
	}
	defer h.mu.Unlock()

	_, err := h.tasks.Edit(id, r.FormValue("title"))
	switch {
	case errors.Is(err, tasklist.ErrNotFound):
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	case errors.Is(err, tasklist.ErrEmptyTitle):
		http.Error(w, "Task title cannot be empty", http.StatusUnprocessableEntity)
		return
	case err != nil:
		HomeRedirect(w, r)
		return
	}

	slog.Info("task_edited", "id", id)
	h.save()
	h.respond(w, r)
}

func (h *TodoHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if !h.acquire(r) {
		HomeRedirect(w, r)
		return
	}
	defer h.mu.Unlock()

	ok, err := h.tasks.Delete(id)
	if err != nil {
		HomeRedirect(w, r)
		return
	}
	if ok {
		slog.Info("task_deleted", "id", id)
		h.save()
	}
	h.respond(w, r)
}

func (h *TodoHandler) ClearHandler(w http.ResponseWriter, r *http.Request) {
	if !h.acquire(r) {
		HomeRedirect(w, r)
		return
	}
	defer h.mu.Unlock()

	if err := h.tasks.Clear(); err != nil {
		HomeRedirect(w, r)
		return
	}
	slog.Info("tasks_cleared")
	h.save()
	h.respond(w, r)
}
