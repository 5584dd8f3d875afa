package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chetan-code/tasktracker/internal/session"
)

// loadSession fetches the profile and the stored tasks for tk in the
// background. Whatever comes back after tk's session ended is dropped.
func (h *TodoHandler) loadSession(tk session.Ticket) {
	if h.lookup != nil {
		h.pending.Add(1)
		go func() {
			defer h.pending.Done()
			h.enrichProfile(tk)
		}()
	}
	if h.persist != nil {
		h.pending.Add(1)
		go func() {
			defer h.pending.Done()
			h.loadTasks(tk)
		}()
	}
}

func (h *TodoHandler) enrichProfile(tk session.Ticket) {
	ctx, cancel := context.WithTimeout(context.Background(), h.loadTimeout)
	defer cancel()

	p, err := h.lookup.Lookup(ctx, tk.Email)
	if err != nil {
		//no enrichment; the session keeps its login identity
		slog.Warn("profile_lookup_failed", "email", tk.Email, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.Enrich(tk, p); errors.Is(err, session.ErrStaleResult) {
		slog.Debug("profile_result_discarded", "email", tk.Email, "gen", tk.Gen())
		return
	}
	slog.Debug("profile_applied", "email", tk.Email, "found", p != nil)
}

func (h *TodoHandler) loadTasks(tk session.Ticket) {
	ctx, cancel := context.WithTimeout(context.Background(), h.loadTimeout)
	defer cancel()

	loaded, err := h.persist.Load(ctx, tk.Email)
	if err != nil {
		slog.Error("task_load_failed", "email", tk.Email, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	mg, err := h.tasks.Apply(tk, loaded)
	if err != nil {
		slog.Debug("task_load_discarded", "email", tk.Email, "gen", tk.Gen())
		return
	}
	h.loadedGen = tk.Gen()
	slog.Info("tasks_loaded", "email", tk.Email, "count", len(loaded), "local", mg.Local, "dropped", mg.Dropped)

	//stored copy no longer matches memory
	if mg.Changed() {
		h.saveLocked(ctx, tk.Email)
	}
}
