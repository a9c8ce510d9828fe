package collection

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/youpai/platform/internal/form"
	"github.com/youpai/platform/internal/image"
	"github.com/youpai/platform/internal/middleware"
	"github.com/youpai/platform/internal/response"
)

// Handler holds HTTP handlers for collection endpoints.
type Handler struct {
	svc    *Service
	images *image.Repository
}

// NewHandler creates a new collection Handler.
func NewHandler(svc *Service, images *image.Repository) *Handler {
	return &Handler{svc: svc, images: images}
}

type createRequest struct {
	Name        string   `json:"name" validate:"required,max=30"`
	Description *string  `json:"description"`
	ModelName   *string  `json:"model_name" validate:"omitempty,max=20"`
	Photoshop   *string  `json:"photoshop" validate:"omitempty,max=20"`
	FilmingTime *string  `json:"filming_time" validate:"omitempty,max=20"`
	Images      []string `json:"images" validate:"omitempty,dive,uuid"`
}

type updateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=30"`
	Description *string `json:"description"`
	ModelName   *string `json:"model_name" validate:"omitempty,max=20"`
	Photoshop   *string `json:"photoshop" validate:"omitempty,max=20"`
	FilmingTime *string `json:"filming_time" validate:"omitempty,max=20"`
}

type workRequest struct {
	Work string `json:"work" validate:"required,uuid"`
}

// Get returns one collection with its photographer and the caller's like
// state.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Repo().GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	d, err := h.svc.Detail(r.Context(), c, true, clientIP(r))
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, d)
}

// Like records a like for the caller's IP. 204 on success, 403 when the IP
// has already liked this collection.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Like(r.Context(), chi.URLParam(r, "id"), clientIP(r))
	h.respondLike(w, err, ErrAlreadyLiked)
}

// Unlike withdraws the caller's like. 204 on success, 403 when there was
// none.
func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Unlike(r.Context(), chi.URLParam(r, "id"), clientIP(r))
	h.respondLike(w, err, ErrNotLiked)
}

func (h *Handler) respondLike(w http.ResponseWriter, err, forbidden error) {
	switch {
	case err == nil:
		response.NoContent(w)
	case errors.Is(err, forbidden):
		response.Forbidden(w, err.Error())
	case h.svc.IsNotFound(err):
		response.NotFound(w, "collection not found")
	default:
		response.InternalError(w)
	}
}

// ListByPhotographer returns a photographer's public collections, cover
// excluded.
func (h *Handler) ListByPhotographer(w http.ResponseWriter, r *http.Request) {
	photographerID := chi.URLParam(r, "id")
	owner, err := h.svc.users.GetByID(r.Context(), photographerID)
	if err != nil {
		if h.svc.users.IsNotFound(err) {
			response.NotFound(w, "photographer not found")
			return
		}
		response.InternalError(w)
		return
	}
	h.list(w, r, owner.ID, owner.CoverCollectionID, clientIP(r))
}

// CountByPhotographer returns how many collections a photographer owns.
func (h *Handler) CountByPhotographer(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Repo().CountByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]int{"count": n})
}

// ListOwn returns the authenticated user's collections, cover excluded.
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	owner, err := h.svc.users.GetByID(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	h.list(w, r, userID, owner.CoverCollectionID, "")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, userID string, excludeID *string, ip string) {
	params, err := parseListParams(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	cols, err := h.svc.Repo().ListByUser(r.Context(), userID, excludeID, params)
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]Detail, 0, len(cols))
	for _, c := range cols {
		d, err := h.svc.Detail(r.Context(), c, false, ip)
		if err != nil {
			response.InternalError(w)
			return
		}
		out = append(out, d)
	}
	response.OK(w, out)
}

// Create adds a collection owned by the authenticated user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	var req createRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	for _, imgID := range req.Images {
		if _, err := h.images.GetOwned(r.Context(), imgID, userID); err != nil {
			response.BadRequest(w, "image "+imgID+" does not exist or is not yours")
			return
		}
	}

	fields := Fields{
		Description: req.Description,
		ModelName:   req.ModelName,
		Photoshop:   req.Photoshop,
		FilmingTime: req.FilmingTime,
	}
	c, err := h.svc.Repo().Create(r.Context(), userID, req.Name, fields, req.Images)
	if err != nil {
		response.InternalError(w)
		return
	}

	d, err := h.svc.Detail(r.Context(), c, false, "")
	if err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, d)
}

// GetOwn returns one of the authenticated user's collections.
func (h *Handler) GetOwn(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	c, err := h.svc.Repo().GetOwned(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	d, err := h.svc.Detail(r.Context(), c, false, "")
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, d)
}

// UpdateOwn edits one of the authenticated user's collections.
func (h *Handler) UpdateOwn(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := h.svc.Repo().GetOwned(r.Context(), id, userID); err != nil {
		h.respondError(w, err)
		return
	}

	var req updateRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	fields := Fields{
		Name:        req.Name,
		Description: req.Description,
		ModelName:   req.ModelName,
		Photoshop:   req.Photoshop,
		FilmingTime: req.FilmingTime,
	}
	if err := h.svc.Repo().Update(r.Context(), id, fields); err != nil {
		h.respondError(w, err)
		return
	}

	c, err := h.svc.Repo().GetByID(r.Context(), id)
	if err != nil {
		response.InternalError(w)
		return
	}
	d, err := h.svc.Detail(r.Context(), c, false, "")
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, d)
}

// DeleteOwn removes one of the authenticated user's collections.
func (h *Handler) DeleteOwn(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := h.svc.Repo().GetOwned(r.Context(), id, userID); err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.svc.Repo().Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	response.NoContent(w)
}

// AddWork attaches one of the user's images to their collection.
func (h *Handler) AddWork(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	colID := chi.URLParam(r, "id")

	if _, err := h.svc.Repo().GetOwned(r.Context(), colID, userID); err != nil {
		h.respondError(w, err)
		return
	}

	var req workRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	img, err := h.images.GetOwned(r.Context(), req.Work, userID)
	if err != nil {
		response.BadRequest(w, "image does not exist or is not yours")
		return
	}

	if err := h.svc.Repo().AddImage(r.Context(), colID, img.ID); err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, img.Detail(h.svc.imageHost))
}

// GetWork returns one image from the user's collection.
func (h *Handler) GetWork(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	colID := chi.URLParam(r, "id")
	workID := chi.URLParam(r, "workID")

	c, err := h.svc.Repo().GetOwned(r.Context(), colID, userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	for i := range c.Images {
		if c.Images[i].ID == workID {
			response.OK(w, c.Images[i].Detail(h.svc.imageHost))
			return
		}
	}
	response.NotFound(w, "work not found in collection")
}

// RemoveWork detaches an image from the user's collection.
func (h *Handler) RemoveWork(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	colID := chi.URLParam(r, "id")
	workID := chi.URLParam(r, "workID")

	if _, err := h.svc.Repo().GetOwned(r.Context(), colID, userID); err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.svc.Repo().RemoveImage(r.Context(), colID, workID); err != nil {
		response.NotFound(w, "work not found in collection")
		return
	}
	response.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if h.svc.IsNotFound(err) {
		response.NotFound(w, "collection not found")
		return
	}
	response.InternalError(w)
}

func parseListParams(r *http.Request) (ListParams, error) {
	q := r.URL.Query()
	p := ListParams{
		SortBy: q.Get("sortby"),
		Order:  q.Get("order"),
	}
	if p.SortBy == "" {
		p.SortBy = "create_time"
	}
	if p.SortBy != "create_time" && p.SortBy != "likes" {
		return p, errors.New("sortby must be create_time or likes")
	}
	if p.Order == "" {
		p.Order = "asc"
	}
	if p.Order != "asc" && p.Order != "desc" {
		return p, errors.New("order must be asc or desc")
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, errors.New("limit must be a non-negative integer")
		}
		p.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, errors.New("offset must be a non-negative integer")
		}
		p.Offset = n
	}
	return p, nil
}

// clientIP returns the remote address without the port. The RealIP
// middleware has already resolved proxy headers upstream.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
