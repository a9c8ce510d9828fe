// Package photographer exposes the public discovery surface over reviewed
// accounts: filtered listings, search, and the taxonomy options used to
// filter them.
package photographer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/youpai/platform/internal/user"
)

// ErrUnknownKind is returned when an option kind is not one of style,
// school, or category.
var ErrUnknownKind = errors.New("unknown option kind")

// ErrDuplicateOption is returned when an option with the same name exists.
var ErrDuplicateOption = errors.New("option already exists")

// Filter narrows the public photographer listing. Numeric slices match the
// serial taxonomy ids; ThemeIDs are theme UUIDs.
type Filter struct {
	StyleIDs    []int
	SchoolIDs   []int
	CategoryIDs []int
	ThemeIDs    []string
	Keyword     string
	SortBy      string // "create_time" or "likes"
	Order       string // "asc" or "desc"
	Limit       int
	Offset      int
}

func (f Filter) orderClause() string {
	col := "u.created_at"
	if f.SortBy == "likes" {
		col = "u.likes"
	}
	dir := "ASC"
	if f.Order == "desc" {
		dir = "DESC"
	}
	return col + " " + dir
}

// ThemeOption is a theme entry in the option listing.
type ThemeOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Options bundles every taxonomy a client can filter photographers by.
type Options struct {
	Styles     []user.Option `json:"styles"`
	Schools    []user.Option `json:"schools"`
	Categories []user.Option `json:"categories"`
	Themes     []ThemeOption `json:"themes"`
}

// Repository reads the public photographer listing. Row hydration is
// delegated to the user repository so profiles come back with the same
// associations everywhere.
type Repository struct {
	db    *pgxpool.Pool
	users *user.Repository
}

// NewRepository creates a new photographer Repository.
func NewRepository(db *pgxpool.Pool, users *user.Repository) *Repository {
	return &Repository{db: db, users: users}
}

// Listed photographers are reviewed, non-admin accounts.
func (f Filter) conditions() (string, []interface{}) {
	conds := []string{`u.status = 'reviewed'`, `NOT u.is_admin`}
	args := []interface{}{}

	if len(f.StyleIDs) > 0 {
		args = append(args, f.StyleIDs)
		conds = append(conds, `EXISTS (SELECT 1 FROM user_styles us
			WHERE us.user_id = u.id AND us.style_id = ANY(`+fmt.Sprintf("$%d", len(args))+`))`)
	}
	if len(f.SchoolIDs) > 0 {
		args = append(args, f.SchoolIDs)
		conds = append(conds, `u.school_id = ANY(`+fmt.Sprintf("$%d", len(args))+`)`)
	}
	if len(f.CategoryIDs) > 0 {
		args = append(args, f.CategoryIDs)
		conds = append(conds, `EXISTS (SELECT 1 FROM user_categories uc
			WHERE uc.user_id = u.id AND uc.category_id = ANY(`+fmt.Sprintf("$%d", len(args))+`))`)
	}
	if len(f.ThemeIDs) > 0 {
		args = append(args, f.ThemeIDs)
		conds = append(conds, `EXISTS (SELECT 1 FROM theme_photographers tp
			WHERE tp.user_id = u.id AND tp.theme_id = ANY(`+fmt.Sprintf("$%d", len(args))+`::uuid[]))`)
	}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		conds = append(conds, fmt.Sprintf(`u.name ILIKE $%d`, len(args)))
	}
	return strings.Join(conds, " AND "), args
}

// List returns the photographers matching the filter, hydrated with their
// profile associations.
func (r *Repository) List(ctx context.Context, f Filter) ([]*user.User, error) {
	where, args := f.conditions()
	query := `SELECT u.id FROM users u WHERE ` + where + ` ORDER BY ` + f.orderClause()
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, f.Limit, f.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list photographers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan photographer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photographers: %w", err)
	}

	out := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		u, err := r.users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Count returns how many photographers match the filter.
func (r *Repository) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.conditions()
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users u WHERE `+where, args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count photographers: %w", err)
	}
	return n, nil
}

// Options lists every style, school, category, and theme.
func (r *Repository) Options(ctx context.Context) (*Options, error) {
	opts := &Options{
		Styles:     []user.Option{},
		Schools:    []user.Option{},
		Categories: []user.Option{},
		Themes:     []ThemeOption{},
	}

	tables := []struct {
		table string
		dst   *[]user.Option
	}{
		{"styles", &opts.Styles},
		{"schools", &opts.Schools},
		{"categories", &opts.Categories},
	}
	for _, t := range tables {
		rows, err := r.db.Query(ctx, `SELECT id, name FROM `+t.table+` ORDER BY id`)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", t.table, err)
		}
		for rows.Next() {
			var o user.Option
			if err := rows.Scan(&o.ID, &o.Name); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s: %w", t.table, err)
			}
			*t.dst = append(*t.dst, o)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate %s: %w", t.table, err)
		}
	}

	rows, err := r.db.Query(ctx, `SELECT id, name FROM themes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t ThemeOption
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		opts.Themes = append(opts.Themes, t)
	}
	return opts, rows.Err()
}

var optionTables = map[string]string{
	"style":    "styles",
	"school":   "schools",
	"category": "categories",
}

// CreateOption inserts a taxonomy entry of the given kind.
func (r *Repository) CreateOption(ctx context.Context, kind, name string) (*user.Option, error) {
	table, ok := optionTables[kind]
	if !ok {
		return nil, ErrUnknownKind
	}

	o := &user.Option{Name: name}
	err := r.db.QueryRow(ctx,
		`INSERT INTO `+table+` (name) VALUES ($1) RETURNING id`, name,
	).Scan(&o.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateOption
		}
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return o, nil
}
