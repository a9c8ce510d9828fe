// Package theme manages curated themes that group collections and
// photographers under a named cover.
package theme

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Theme is a named grouping with an optional cover image.
type Theme struct {
	ID            string
	Name          string
	CoverID       *string
	CoverFilename *string
	CreatedAt     time.Time
}

// ErrNotFound is returned when a theme does not exist.
var ErrNotFound = errors.New("theme not found")

// ErrDuplicateName is returned when a theme name is already taken.
var ErrDuplicateName = errors.New("theme name already exists")

// Repository handles theme persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new theme Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const themeColumns = `t.id, t.name, t.cover_id, i.filename, t.created_at`

const themeFrom = ` FROM themes t LEFT JOIN images i ON i.id = t.cover_id`

// List returns all themes, oldest first.
func (r *Repository) List(ctx context.Context) ([]*Theme, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+themeColumns+themeFrom+` ORDER BY t.created_at`)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	var out []*Theme
	for rows.Next() {
		t := &Theme{}
		if err := rows.Scan(&t.ID, &t.Name, &t.CoverID, &t.CoverFilename, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Count returns the number of themes.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM themes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count themes: %w", err)
	}
	return n, nil
}

// GetByID fetches one theme.
func (r *Repository) GetByID(ctx context.Context, id string) (*Theme, error) {
	t := &Theme{}
	err := r.db.QueryRow(ctx,
		`SELECT `+themeColumns+themeFrom+` WHERE t.id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CoverID, &t.CoverFilename, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get theme: %w", err)
	}
	return t, nil
}

// Create inserts a theme.
func (r *Repository) Create(ctx context.Context, name string, coverID *string) (*Theme, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO themes (name, cover_id) VALUES ($1, $2) RETURNING id`,
		name, coverID,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("insert theme: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update applies the non-nil fields.
func (r *Repository) Update(ctx context.Context, id string, name, coverID *string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE themes SET
		   name = COALESCE($2, name),
		   cover_id = COALESCE($3, cover_id)
		 WHERE id = $1`,
		id, name, coverID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("update theme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a theme; its links go with it.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM themes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete theme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CollectionIDs returns the ids of the theme's collections, oldest link
// first by collection creation.
func (r *Repository) CollectionIDs(ctx context.Context, themeID string) ([]string, error) {
	return r.linkedIDs(ctx,
		`SELECT tc.collection_id FROM theme_collections tc
		 JOIN collections c ON c.id = tc.collection_id
		 WHERE tc.theme_id = $1 ORDER BY c.created_at`,
		themeID)
}

// AttachCollection links a collection to the theme.
func (r *Repository) AttachCollection(ctx context.Context, themeID, collectionID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO theme_collections (theme_id, collection_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		themeID, collectionID)
	if err != nil {
		return fmt.Errorf("attach collection to theme: %w", err)
	}
	return nil
}

// DetachCollection unlinks a collection from the theme.
func (r *Repository) DetachCollection(ctx context.Context, themeID, collectionID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM theme_collections WHERE theme_id = $1 AND collection_id = $2`,
		themeID, collectionID)
	if err != nil {
		return fmt.Errorf("detach collection from theme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PhotographerIDs returns the ids of the theme's photographers.
func (r *Repository) PhotographerIDs(ctx context.Context, themeID string) ([]string, error) {
	return r.linkedIDs(ctx,
		`SELECT tp.user_id FROM theme_photographers tp
		 JOIN users u ON u.id = tp.user_id
		 WHERE tp.theme_id = $1 ORDER BY u.created_at`,
		themeID)
}

// AttachPhotographer links a photographer to the theme.
func (r *Repository) AttachPhotographer(ctx context.Context, themeID, userID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO theme_photographers (theme_id, user_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		themeID, userID)
	if err != nil {
		return fmt.Errorf("attach photographer to theme: %w", err)
	}
	return nil
}

// DetachPhotographer unlinks a photographer from the theme.
func (r *Repository) DetachPhotographer(ctx context.Context, themeID, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM theme_photographers WHERE theme_id = $1 AND user_id = $2`,
		themeID, userID)
	if err != nil {
		return fmt.Errorf("detach photographer from theme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) linkedIDs(ctx context.Context, query, themeID string) ([]string, error) {
	rows, err := r.db.Query(ctx, query, themeID)
	if err != nil {
		return nil, fmt.Errorf("list theme links: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan theme link: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
