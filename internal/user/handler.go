package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/youpai/platform/internal/form"
	"github.com/youpai/platform/internal/image"
	"github.com/youpai/platform/internal/middleware"
	"github.com/youpai/platform/internal/response"
)

// Handler holds HTTP handlers for account endpoints.
type Handler struct {
	svc    *Service
	images *image.Repository
}

// NewHandler creates a new user Handler.
func NewHandler(svc *Service, images *image.Repository) *Handler {
	return &Handler{svc: svc, images: images}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=30"`
	Email    string `json:"email" validate:"required,email,max=50"`
	Password string `json:"password" validate:"required,min=8,max=64"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=30"`
	Sex         *bool    `json:"sex"`
	Description *string  `json:"description"`
	Major       *string  `json:"major" validate:"omitempty,max=30"`
	Imagelink   *string  `json:"imagelink" validate:"omitempty,max=200"`
	Password    string   `json:"password" validate:"omitempty,min=8,max=64"`
	Avatar      *string  `json:"avatar" validate:"omitempty,uuid"`
	School      *int     `json:"school"`
	Tags        []string `json:"tags" validate:"omitempty,dive,required,max=100"`
	Styles      []int    `json:"styles"`
	Categories  []int    `json:"categories"`
}

type activateRequest struct {
	User string `json:"user" validate:"required,uuid"`
}

// Register godoc
//
//	@Summary		Register a photographer account
//	@Description	Creates an unconfirmed account with an empty cover collection and mails a confirmation link.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest	true	"Registration details"
//	@Success		201		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Router			/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password, baseURL(r))
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			response.Conflict(w, "email already registered")
			return
		}
		response.InternalError(w)
		return
	}

	token, err := h.svc.IssueToken(u)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, map[string]interface{}{
		"auth": token,
		"user": h.svc.Profile(u),
	})
}

// Login godoc
//
//	@Summary	Log in
//	@Tags		users
//	@Accept		json
//	@Produce	json
//	@Param		request	body		loginRequest	true	"Credentials"
//	@Success	200		{object}	response.Envelope
//	@Failure	401		{object}	response.Envelope
//	@Router		/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	u, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthorized(w, "invalid email or password")
			return
		}
		response.InternalError(w)
		return
	}

	token, err := h.svc.IssueToken(u)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"auth": token})
}

// GetProfile returns the authenticated user's own profile, email included.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	response.OK(w, h.svc.Profile(u))
}

// UpdateProfile edits the authenticated user's profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	var req updateProfileRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if req.Avatar != nil {
		if _, err := h.images.GetByID(r.Context(), *req.Avatar); err != nil {
			response.BadRequest(w, "avatar image does not exist")
			return
		}
	}

	up := ProfileUpdate{
		Name:        req.Name,
		Sex:         req.Sex,
		Description: req.Description,
		Major:       req.Major,
		Imagelink:   req.Imagelink,
		AvatarID:    req.Avatar,
		SchoolID:    req.School,
		Tags:        req.Tags,
		StyleIDs:    req.Styles,
		CategoryIDs: req.Categories,
	}
	u, err := h.svc.UpdateProfile(r.Context(), userID, up, req.Password)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, h.svc.Profile(u))
}

// SubmitReview queues a confirmed account for portfolio review.
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	h.statusTransition(w, r, h.svc.SubmitReview)
}

// CancelReview withdraws the account from the review queue.
func (h *Handler) CancelReview(w http.ResponseWriter, r *http.Request) {
	h.statusTransition(w, r, h.svc.CancelReview)
}

func (h *Handler) statusTransition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id string) error) {
	userID := middleware.UserID(r.Context())
	if err := fn(r.Context(), userID); err != nil {
		if errors.Is(err, ErrStatusTransition) {
			response.Forbidden(w, "account status does not permit this action")
			return
		}
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.JSON(w, http.StatusCreated, response.Envelope{Success: true})
}

// Confirm validates the emailed confirmation token.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	token := chi.URLParam(r, "token")

	u, err := h.svc.Confirm(r.Context(), userID, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			response.Forbidden(w, "invalid or expired confirmation token")
			return
		}
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, h.svc.PublicProfile(u))
}

// ResendConfirmation mails a fresh confirmation link to the account.
func (h *Handler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID != middleware.UserID(r.Context()) {
		response.Forbidden(w, "cannot request confirmation for another account")
		return
	}
	if err := h.svc.ResendConfirmation(r.Context(), userID, baseURL(r)); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]bool{"sent": true})
}

// ListUsers returns accounts filtered by status. Admin only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	statuses := r.URL.Query()["status"]
	if len(statuses) == 0 {
		statuses = []string{StatusUnconfirmed, StatusConfirmed, StatusReviewing, StatusReviewed}
	}
	for _, s := range statuses {
		switch s {
		case StatusUnconfirmed, StatusConfirmed, StatusReviewing, StatusReviewed:
		default:
			response.BadRequest(w, "unknown status "+s)
			return
		}
	}

	users, err := h.svc.ListByStatus(r.Context(), statuses)
	if err != nil {
		response.InternalError(w)
		return
	}
	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, h.svc.Profile(u))
	}
	response.OK(w, out)
}

// Activate approves a photographer under review. Admin only.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

// Deactivate rejects a photographer under review. Admin only.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	var req activateRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	u, err := h.svc.Activate(r.Context(), req.User, approve)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, h.svc.Profile(u))
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return nil, false
	}
	u, err := h.svc.GetByID(r.Context(), userID)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "user not found")
			return nil, false
		}
		response.InternalError(w)
		return nil, false
	}
	return u, true
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
