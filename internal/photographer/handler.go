package photographer

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/youpai/platform/internal/form"
	"github.com/youpai/platform/internal/response"
	"github.com/youpai/platform/internal/user"
)

// Handler holds HTTP handlers for the public photographer surface.
type Handler struct {
	repo  *Repository
	users *user.Service
}

// NewHandler creates a new photographer Handler.
func NewHandler(repo *Repository, users *user.Service) *Handler {
	return &Handler{repo: repo, users: users}
}

type createOptionRequest struct {
	Kind string `json:"kind" validate:"required,oneof=style school category"`
	Name string `json:"name" validate:"required,max=30"`
}

// Get returns one photographer's public profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if h.users.IsNotFound(err) {
			response.NotFound(w, "photographer not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, h.users.PublicProfile(u))
}

// List returns reviewed photographers matching the query filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	h.respondList(w, r, f)
}

// Search returns reviewed photographers whose name contains the keyword.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	f.Keyword = r.URL.Query().Get("keyword")
	if f.Keyword == "" {
		response.BadRequest(w, "keyword is required")
		return
	}
	h.respondList(w, r, f)
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, f Filter) {
	users, err := h.repo.List(r.Context(), f)
	if err != nil {
		response.InternalError(w)
		return
	}
	out := make([]user.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, h.users.PublicProfile(u))
	}
	response.OK(w, out)
}

// Count returns how many photographers match the query filters.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	n, err := h.repo.Count(r.Context(), f)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]int{"count": n})
}

// Options lists the styles, schools, categories, and themes clients can
// filter by.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	opts, err := h.repo.Options(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, opts)
}

// CreateOption adds a style, school, or category. Admin only.
func (h *Handler) CreateOption(w http.ResponseWriter, r *http.Request) {
	var req createOptionRequest
	if err := form.Decode(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	o, err := h.repo.CreateOption(r.Context(), req.Kind, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownKind):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrDuplicateOption):
			response.Conflict(w, req.Kind+" "+req.Name+" already exists")
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, o)
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		SortBy: q.Get("sortby"),
		Order:  q.Get("order"),
	}
	if f.SortBy == "" {
		f.SortBy = "create_time"
	}
	if f.SortBy != "create_time" && f.SortBy != "likes" {
		return f, errors.New("sortby must be create_time or likes")
	}
	if f.Order == "" {
		f.Order = "asc"
	}
	if f.Order != "asc" && f.Order != "desc" {
		return f, errors.New("order must be asc or desc")
	}

	var err error
	if f.StyleIDs, err = parseInts(q["styles"], "styles"); err != nil {
		return f, err
	}
	if f.SchoolIDs, err = parseInts(q["schools"], "schools"); err != nil {
		return f, err
	}
	if f.CategoryIDs, err = parseInts(q["categories"], "categories"); err != nil {
		return f, err
	}
	for _, id := range q["themes"] {
		if _, err := uuid.Parse(id); err != nil {
			return f, errors.New("themes must be theme ids")
		}
		f.ThemeIDs = append(f.ThemeIDs, id)
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}

func parseInts(values []string, name string) ([]int, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(values))
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New(name + " must be numeric ids")
		}
		out = append(out, n)
	}
	return out, nil
}
