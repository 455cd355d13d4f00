package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/jotlist/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.AddNote)
		r.Post("/move", h.MoveNote)
		r.Post("/remove", h.RemoveNotes)
		r.Get("/{pos}", h.GetNote)
		r.Post("/{pos}", h.InsertNote)
		r.Put("/{pos}", h.ReplaceNote)
		r.Delete("/{pos}", h.DeleteNote)
	})

	r.Route("/selection", func(r chi.Router) {
		r.Get("/", h.Selection)
		r.Delete("/", h.ClearSelection)
		r.Post("/delete", h.DeleteSelection)
		r.Post("/{pos}", h.ToggleSelection)
	})

	r.Post("/drag", h.DragStep)
	r.Post("/drag/end", h.EndDrag)

	r.Post("/undo", h.Undo)
	r.Delete("/undo", h.DiscardUndo)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
