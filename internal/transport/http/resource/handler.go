// Package resource serves the uniform list/get/create/update/delete routes
// shared by schemas, cryptographic keys and credentials.
package resource

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "credstore/pkg/domain-errors"
	"credstore/pkg/platform/crud"
	"credstore/pkg/platform/httputil"
	"credstore/pkg/requestcontext"
)

// Messages for malformed path and query parameters.
const (
	MsgInvalidID     = "Invalid id"
	MsgInvalidLimit  = "Invalid limit"
	MsgInvalidOffset = "Invalid offset"
)

// Service is the contract every resource service satisfies.
// Returned errors are expected to be domain errors.
type Service[T any] interface {
	List(ctx context.Context, page crud.Page) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// DeleteResponse is the body returned after a successful delete.
type DeleteResponse struct {
	ID int64 `json:"id"`
}

type Handler[T any] struct {
	name    string
	service Service[T]
	logger  *slog.Logger
}

// New serves service under /name.
func New[T any](name string, service Service[T], logger *slog.Logger) *Handler[T] {
	return &Handler[T]{name: name, service: service, logger: logger}
}

func (h *Handler[T]) Register(r chi.Router) {
	base := "/" + h.name
	r.Get(base, h.HandleList)
	r.Post(base, h.HandleCreate)
	r.Put(base, h.HandleUpdate)
	r.Get(base+"/{id}", h.HandleGet)
	r.Delete(base+"/{id}", h.HandleDelete)
}

// HandleList returns records ordered by id, honouring limit and offset.
func (h *Handler[T]) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items, err := h.service.List(ctx, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "list failed", "resource", h.name, "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler[T]) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

// HandleCreate stores the body and answers 201 with the assigned id.
func (h *Handler[T]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[T](w, r, h.logger, dErrors.CodeBadRequest)
	if !ok {
		return
	}

	created, err := h.service.Create(ctx, req)
	if err != nil {
		h.logger.InfoContext(ctx, "create failed", "resource", h.name, "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// HandleUpdate replaces the record named by the body's id. A body that does
// not decode is answered with 422.
func (h *Handler[T]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[T](w, r, h.logger, dErrors.CodeInvalidInput)
	if !ok {
		return
	}

	updated, err := h.service.Update(ctx, req)
	if err != nil {
		h.logger.InfoContext(ctx, "update failed", "resource", h.name, "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler[T]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.logger.InfoContext(ctx, "delete failed", "resource", h.name, "id", id, "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DeleteResponse{ID: id})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, MsgInvalidID))
		return 0, false
	}
	return id, true
}

func parsePage(r *http.Request) (crud.Page, error) {
	var page crud.Page
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return crud.Page{}, dErrors.New(dErrors.CodeBadRequest, MsgInvalidLimit)
		}
		page.Limit = &limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return crud.Page{}, dErrors.New(dErrors.CodeBadRequest, MsgInvalidOffset)
		}
		page.Offset = &offset
	}
	return page, nil
}
