package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/jotlist/internal/apperr"
	"github.com/starford/jotlist/internal/checksum"
	"github.com/starford/jotlist/internal/noteservice"
	"github.com/starford/jotlist/internal/selection"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListNotes handles GET /notes.
//
//	@Summary		List every note in display order
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListNotes(r.Context())
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	if res.Checksum != "" {
		w.Header().Set("ETag", checksum.ETag(res.Checksum))
	}
	writeJSON(w, http.StatusOK, res)
}

// GetNote handles GET /notes/{pos}.
//
//	@Summary		Get the note at a position
//	@Tags			notes
//	@Produce		json
//	@Param			pos		path		int		true	"Position"
//	@Success		200		{object}	NoteView
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{pos} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	pos, ok := position(w, r)
	if !ok {
		return
	}
	note, err := h.svc.GetNote(r.Context(), pos)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// AddNote handles POST /notes.
//
//	@Summary		Add an empty note at the top of the list
//	@Tags			notes
//	@Produce		json
//	@Success		201		{object}	NoteView
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.AddNote(r.Context())
	if err != nil {
		writeError(w, "add note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// InsertNote handles POST /notes/{pos}.
//
//	@Summary		Insert a note at a position
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			pos		path		int				true	"Position"
//	@Param			body	body		NoteRequest		true	"Note content"
//	@Success		201		{object}	NoteView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{pos} [post]
func (h *Handler) InsertNote(w http.ResponseWriter, r *http.Request) {
	pos, ok := position(w, r)
	if !ok {
		return
	}
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.InsertNote(r.Context(), pos, req.Title, req.Text)
	if err != nil {
		writeError(w, "insert note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// ReplaceNote handles PUT /notes/{pos}.
//
//	@Summary		Save edits to a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			pos			path		int				true	"Position"
//	@Param			If-Match	header		string			false	"List ETag from GET /notes"
//	@Param			body		body		NoteRequest		true	"Edited content"
//	@Success		200			{object}	ReplaceResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{pos} [put]
func (h *Handler) ReplaceNote(w http.ResponseWriter, r *http.Request) {
	pos, ok := position(w, r)
	if !ok {
		return
	}
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ifMatch := checksum.ParseETag(r.Header.Get("If-Match"))
	note, saved, err := h.svc.ReplaceNote(r.Context(), pos, req.Title, req.Text, ifMatch)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
			return
		}
		writeError(w, "replace note", err)
		return
	}
	writeJSON(w, http.StatusOK, ReplaceResponse{Note: *note, Saved: saved})
}

// DeleteNote handles DELETE /notes/{pos}.
//
//	@Summary		Remove a note; the removal can be undone
//	@Tags			notes
//	@Produce		json
//	@Param			pos		path		int		true	"Position"
//	@Success		200		{object}	BatchResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{pos} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	pos, ok := position(w, r)
	if !ok {
		return
	}
	res, err := h.svc.DeleteNote(r.Context(), pos)
	if errors.Is(err, apperr.ErrConflict) {
		writeJSON(w, http.StatusConflict, errorBody("single delete is disabled while notes are selected"))
		return
	}
	writeBatch(w, "delete note", res, err)
}

// MoveNote handles POST /notes/move.
//
//	@Summary		Move a note to another position
//	@Tags			notes
//	@Accept			json
//	@Param			body	body		MoveRequest		true	"Source and target positions"
//	@Success		204
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/move [post]
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.MoveNote(r.Context(), *req.From, *req.To); err != nil {
		writeError(w, "move note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveNotes handles POST /notes/remove.
//
//	@Summary		Remove several notes as one undoable batch
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RemoveRequest	true	"Positions to remove"
//	@Success		200		{object}	BatchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/remove [post]
func (h *Handler) RemoveNotes(w http.ResponseWriter, r *http.Request) {
	var req RemoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.RemoveNotes(r.Context(), req.Positions)
	writeBatch(w, "remove notes", res, err)
}

// Selection handles GET /selection.
//
//	@Summary		Current selection state
//	@Tags			selection
//	@Produce		json
//	@Success		200		{object}	SelectionState
//	@Security		BearerAuth
//	@Router			/selection [get]
func (h *Handler) Selection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Selection(r.Context()))
}

// ToggleSelection handles POST /selection/{pos}.
//
//	@Summary		Select or deselect a note
//	@Tags			selection
//	@Produce		json
//	@Param			pos		path		int		true	"Position"
//	@Success		200		{object}	SelectionState
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection/{pos} [post]
func (h *Handler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	pos, ok := position(w, r)
	if !ok {
		return
	}
	state, err := h.svc.ToggleSelection(r.Context(), pos)
	if err != nil {
		writeError(w, "toggle selection", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ClearSelection handles DELETE /selection.
//
//	@Summary		Leave selection mode
//	@Tags			selection
//	@Produce		json
//	@Success		200		{object}	SelectionState
//	@Security		BearerAuth
//	@Router			/selection [delete]
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ClearSelection(r.Context()))
}

// DeleteSelection handles POST /selection/delete.
//
//	@Summary		Remove every selected note
//	@Tags			selection
//	@Produce		json
//	@Success		200		{object}	BatchResponse
//	@Security		BearerAuth
//	@Router			/selection/delete [post]
func (h *Handler) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteSelection(r.Context())
	writeBatch(w, "delete selection", res, err)
}

// DragStep handles POST /drag.
//
//	@Summary		Apply one live drag step to the selected note
//	@Tags			selection
//	@Accept			json
//	@Param			body	body		MoveRequest		true	"Source and target positions"
//	@Success		204
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/drag [post]
func (h *Handler) DragStep(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.DragStep(r.Context(), *req.From, *req.To); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			writeJSON(w, http.StatusConflict, errorBody("drag must move the single selected note"))
			return
		}
		writeError(w, "drag step", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EndDrag handles POST /drag/end.
//
//	@Summary		Finish a drag and leave selection mode
//	@Tags			selection
//	@Produce		json
//	@Success		200		{object}	SelectionState
//	@Security		BearerAuth
//	@Router			/drag/end [post]
func (h *Handler) EndDrag(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.EndDrag(r.Context()))
}

// Undo handles POST /undo.
//
//	@Summary		Restore the last removed batch
//	@Tags			undo
//	@Produce		json
//	@Success		200		{object}	UndoResponse
//	@Security		BearerAuth
//	@Router			/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Undo(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrPartial) {
			slog.Warn("undo stopped early", slog.String("error", err.Error()))
			writeJSON(w, http.StatusOK, UndoResponse{UndoResult: res, Error: err.Error()})
			return
		}
		writeError(w, "undo", err)
		return
	}
	writeJSON(w, http.StatusOK, UndoResponse{UndoResult: res})
}

// DiscardUndo handles DELETE /undo.
//
//	@Summary		Drop the last removed batch
//	@Tags			undo
//	@Success		204
//	@Security		BearerAuth
//	@Router			/undo [delete]
func (h *Handler) DiscardUndo(w http.ResponseWriter, r *http.Request) {
	h.svc.DiscardUndo(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// writeBatch reports a batch removal. A partial failure still answers 200
// with the counts.
func writeBatch(w http.ResponseWriter, op string, res selection.BatchResult, err error) {
	if err != nil {
		if errors.Is(err, apperr.ErrPartial) {
			slog.Warn(op+" partially failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusOK, BatchResponse{BatchResult: res, Error: err.Error()})
			return
		}
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{BatchResult: res})
}
