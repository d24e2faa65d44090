package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/txsession/internal/post"
	"github.com/openkcm/txsession/internal/serviceerr"
)

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type postsHandler struct {
	service *post.Service
}

func newPostsHandler(service *post.Service) *postsHandler {
	return &postsHandler{
		service: service,
	}
}

func (h *postsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	posts, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, posts)
}

func (h *postsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/posts/%d", created.ID))
	writeJSON(w, r, http.StatusCreated, created)
}

func (h *postsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	found, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, found)
}

func (h *postsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req postRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.service.Update(r.Context(), id, req.Title, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, updated)
}

func (h *postsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id must be an integer", serviceerr.ErrInvalidRequest)
	}

	return id, nil
}

// queryInt parses an optional integer query parameter. A missing parameter
// yields zero.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", serviceerr.ErrInvalidRequest, name)
	}

	return v, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decoding request body: %s", serviceerr.ErrInvalidRequest, err.Error())
	}

	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slogctx.Error(r.Context(), "Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := serviceerr.HTTPStatus(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slogctx.Error(r.Context(), "Request failed", "error", err)
		msg = http.StatusText(status)
	}

	writeJSON(w, r, status, errorResponse{Error: msg})
}
