package home

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/youpai/platform/internal/collection"
	"github.com/youpai/platform/internal/form"
	"github.com/youpai/platform/internal/image"
	"github.com/youpai/platform/internal/response"
	"github.com/youpai/platform/internal/user"
)

// Handler holds HTTP handlers for the landing-page surface.
type Handler struct {
	repo        *Repository
	users       *user.Service
	collections *collection.Service
	images      *image.Repository
	imageHost   string
}

// NewHandler creates a new home Handler.
func NewHandler(repo *Repository, users *user.Service, collections *collection.Service, images *image.Repository, imageHost string) *Handler {
	return &Handler{repo: repo, users: users, collections: collections, images: images, imageHost: imageHost}
}

// BannerDetail is the client-facing shape of a banner.
type BannerDetail struct {
	ID     string       `json:"id"`
	Number int16        `json:"number"`
	URL    *string      `json:"url"`
	Cover  image.Detail `json:"cover"`
}

type createBannerRequest struct {
	Cover string  `json:"cover" validate:"required,uuid"`
	URL   *string `json:"url" validate:"omitempty,max=256"`
}

type updateBannerRequest struct {
	Cover *string `json:"cover" validate:"omitempty,uuid"`
	URL   *string `json:"url" validate:"omitempty,max=256"`
}

type resortRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

type featureRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

func (h *Handler) bannerDetail(b Banner) BannerDetail {
	img := image.Image{ID: b.CoverID, Filename: b.CoverFilename}
	return BannerDetail{ID: b.ID, Number: b.Number, URL: b.URL, Cover: img.Detail(h.imageHost)}
}

// ListBanners returns all banners in slot order. Public.
func (h *Handler) ListBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.repo.ListBanners(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	out := make([]BannerDetail, 0, len(banners))
	for _, b := range banners {
		out = append(out, h.bannerDetail(b))
	}
	response.OK(w, out)
}

// CreateBanner adds a banner at the end of the slot order. Admin only.
func (h *Handler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	var req createBannerRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if _, err := h.images.GetByID(r.Context(), req.Cover); err != nil {
		response.BadRequest(w, "cover image does not exist")
		return
	}

	b, err := h.repo.CreateBanner(r.Context(), req.Cover, req.URL)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, h.bannerDetail(*b))
}

// UpdateBanner edits a banner's link or cover. Admin only.
func (h *Handler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateBannerRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if req.Cover != nil {
		if _, err := h.images.GetByID(r.Context(), *req.Cover); err != nil {
			response.BadRequest(w, "cover image does not exist")
			return
		}
	}

	if err := h.repo.UpdateBanner(r.Context(), id, req.URL, req.Cover); err != nil {
		h.respondError(w, err, "banner not found")
		return
	}
	b, err := h.repo.GetBanner(r.Context(), id)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, h.bannerDetail(*b))
}

// DeleteBanner removes a banner. Admin only.
func (h *Handler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteBanner(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err, "banner not found")
		return
	}
	response.NoContent(w)
}

// ResortBanners renumbers the banners to the given id order. Admin only.
func (h *Handler) ResortBanners(w http.ResponseWriter, r *http.Request) {
	h.resort(w, r, h.repo.ResortBanners, "banner not found")
}

// ListPhotographers returns the featured photographers in slot order.
// Public.
func (h *Handler) ListPhotographers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.repo.FeaturedPhotographers(r.Context())
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

// AddPhotographer features a photographer. Admin only.
func (h *Handler) AddPhotographer(w http.ResponseWriter, r *http.Request) {
	var req featureRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if _, err := h.users.GetByID(r.Context(), req.ID); err != nil {
		response.BadRequest(w, "photographer does not exist")
		return
	}
	if err := h.repo.AddPhotographer(r.Context(), req.ID); err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, map[string]string{"id": req.ID})
}

// RemovePhotographer unfeatures a photographer. Admin only.
func (h *Handler) RemovePhotographer(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.RemovePhotographer(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err, "photographer is not featured")
		return
	}
	response.NoContent(w)
}

// ResortPhotographers renumbers the featured photographers. Admin only.
func (h *Handler) ResortPhotographers(w http.ResponseWriter, r *http.Request) {
	h.resort(w, r, h.repo.ResortPhotographers, "photographer is not featured")
}

// ListCollections returns the featured collections in slot order. Public.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	ids, err := h.repo.FeaturedCollections(r.Context())
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

// AddCollection features a collection. Admin only.
func (h *Handler) AddCollection(w http.ResponseWriter, r *http.Request) {
	var req featureRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if _, err := h.collections.Repo().GetByID(r.Context(), req.ID); err != nil {
		response.BadRequest(w, "collection does not exist")
		return
	}
	if err := h.repo.AddCollection(r.Context(), req.ID); err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, map[string]string{"id": req.ID})
}

// RemoveCollection unfeatures a collection. Admin only.
func (h *Handler) RemoveCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.RemoveCollection(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err, "collection is not featured")
		return
	}
	response.NoContent(w)
}

// ResortCollections renumbers the featured collections. Admin only.
func (h *Handler) ResortCollections(w http.ResponseWriter, r *http.Request) {
	h.resort(w, r, h.repo.ResortCollections, "collection is not featured")
}

func (h *Handler) resort(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, ids []string) error, notFound string) {
	var req resortRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if err := fn(r.Context(), req.IDs); err != nil {
		h.respondError(w, err, notFound)
		return
	}
	response.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, notFound)
		return
	}
	response.InternalError(w)
}
