package theme

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/youpai/platform/internal/collection"
	"github.com/youpai/platform/internal/form"
	"github.com/youpai/platform/internal/image"
	"github.com/youpai/platform/internal/response"
	"github.com/youpai/platform/internal/user"
)

// Handler holds HTTP handlers for theme endpoints.
type Handler struct {
	repo        *Repository
	users       *user.Service
	collections *collection.Service
	images      *image.Repository
	imageHost   string
}

// NewHandler creates a new theme Handler.
func NewHandler(repo *Repository, users *user.Service, collections *collection.Service, images *image.Repository, imageHost string) *Handler {
	return &Handler{repo: repo, users: users, collections: collections, images: images, imageHost: imageHost}
}

// Detail is the client-facing shape of a theme.
type Detail struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Cover *image.Detail `json:"cover,omitempty"`
}

type createRequest struct {
	Name  string  `json:"name" validate:"required,max=20"`
	Cover *string `json:"cover" validate:"omitempty,uuid"`
}

type updateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=20"`
	Cover *string `json:"cover" validate:"omitempty,uuid"`
}

type linkRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

func (h *Handler) detail(t *Theme) Detail {
	d := Detail{ID: t.ID, Name: t.Name}
	if t.CoverID != nil && t.CoverFilename != nil {
		img := image.Image{ID: *t.CoverID, Filename: *t.CoverFilename}
		cover := img.Detail(h.imageHost)
		d.Cover = &cover
	}
	return d
}

// List returns all themes. Public.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	themes, err := h.repo.List(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	out := make([]Detail, 0, len(themes))
	for _, t := range themes {
		out = append(out, h.detail(t))
	}
	response.OK(w, out)
}

// Count returns the number of themes. Public.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.Count(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]int{"count": n})
}

// Get returns one theme. Public.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	response.OK(w, h.detail(t))
}

// Create adds a theme. Admin only.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if !h.coverExists(w, r, req.Cover) {
		return
	}

	t, err := h.repo.Create(r.Context(), req.Name, req.Cover)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			response.Conflict(w, "theme name already exists")
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, h.detail(t))
}

// Update edits a theme's name or cover. Admin only.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if !h.coverExists(w, r, req.Cover) {
		return
	}

	if err := h.repo.Update(r.Context(), id, req.Name, req.Cover); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			response.Conflict(w, "theme name already exists")
			return
		}
		h.respondError(w, err)
		return
	}
	t, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, h.detail(t))
}

// Delete removes a theme. Admin only.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	response.NoContent(w)
}

// ListCollections returns the theme's collections. Public.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	themeID := chi.URLParam(r, "id")
	if _, err := h.repo.GetByID(r.Context(), themeID); err != nil {
		h.respondError(w, err)
		return
	}

	ids, err := h.repo.CollectionIDs(r.Context(), themeID)
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]collection.Detail, 0, len(ids))
	for _, id := range ids {
		c, err := h.collections.Repo().GetByID(r.Context(), id)
		if err != nil {
			response.InternalError(w)
			return
		}
		d, err := h.collections.Detail(r.Context(), c, true, "")
		if err != nil {
			response.InternalError(w)
			return
		}
		out = append(out, d)
	}
	response.OK(w, out)
}

// AttachCollection links a collection to the theme. Admin only.
func (h *Handler) AttachCollection(w http.ResponseWriter, r *http.Request) {
	h.attach(w, r, func(themeID, id string) error {
		if _, err := h.collections.Repo().GetByID(r.Context(), id); err != nil {
			return errBadLink
		}
		return h.repo.AttachCollection(r.Context(), themeID, id)
	}, "collection does not exist")
}

// DetachCollection unlinks a collection from the theme. Admin only.
func (h *Handler) DetachCollection(w http.ResponseWriter, r *http.Request) {
	err := h.repo.DetachCollection(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "collectionID"))
	h.respondDetach(w, err)
}

// ListPhotographers returns the theme's photographers. Public.
func (h *Handler) ListPhotographers(w http.ResponseWriter, r *http.Request) {
	themeID := chi.URLParam(r, "id")
	if _, err := h.repo.GetByID(r.Context(), themeID); err != nil {
		h.respondError(w, err)
		return
	}

	ids, err := h.repo.PhotographerIDs(r.Context(), themeID)
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]user.Profile, 0, len(ids))
	for _, id := range ids {
		u, err := h.users.GetByID(r.Context(), id)
		if err != nil {
			response.InternalError(w)
			return
		}
		out = append(out, h.users.PublicProfile(u))
	}
	response.OK(w, out)
}

// AttachPhotographer links a photographer to the theme. Admin only.
func (h *Handler) AttachPhotographer(w http.ResponseWriter, r *http.Request) {
	h.attach(w, r, func(themeID, id string) error {
		if _, err := h.users.GetByID(r.Context(), id); err != nil {
			return errBadLink
		}
		return h.repo.AttachPhotographer(r.Context(), themeID, id)
	}, "photographer does not exist")
}

// DetachPhotographer unlinks a photographer from the theme. Admin only.
func (h *Handler) DetachPhotographer(w http.ResponseWriter, r *http.Request) {
	err := h.repo.DetachPhotographer(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "photographerID"))
	h.respondDetach(w, err)
}

var errBadLink = errors.New("linked entity does not exist")

func (h *Handler) coverExists(w http.ResponseWriter, r *http.Request, cover *string) bool {
	if cover == nil {
		return true
	}
	if _, err := h.images.GetByID(r.Context(), *cover); err != nil {
		response.BadRequest(w, "cover image does not exist")
		return false
	}
	return true
}

func (h *Handler) attach(w http.ResponseWriter, r *http.Request,
	fn func(themeID, id string) error, badLink string) {
	themeID := chi.URLParam(r, "id")
	if _, err := h.repo.GetByID(r.Context(), themeID); err != nil {
		h.respondError(w, err)
		return
	}

	var req linkRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := fn(themeID, req.ID); err != nil {
		if errors.Is(err, errBadLink) {
			response.BadRequest(w, badLink)
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, map[string]string{"id": req.ID})
}

func (h *Handler) respondDetach(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		response.NoContent(w)
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "link not found")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, "theme not found")
		return
	}
	response.InternalError(w)
}
