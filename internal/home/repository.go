// Package home manages the curated landing page: banners, featured
// photographers, and featured collections, each hand-ordered by an admin.
package home

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a banner or featured entry does not exist.
var ErrNotFound = errors.New("entry not found")

// Banner is one landing-page banner: a cover image, an optional link, and
// its slot number.
type Banner struct {
	ID            string
	Number        int16
	URL           *string
	CoverID       string
	CoverFilename string
}

// Repository handles landing-page persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new home Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListBanners returns all banners in slot order.
func (r *Repository) ListBanners(ctx context.Context) ([]Banner, error) {
	rows, err := r.db.Query(ctx,
		`SELECT b.id, b.number, b.url, b.cover_id, i.filename
		 FROM banners b JOIN images i ON i.id = b.cover_id
		 ORDER BY b.number`)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	defer rows.Close()

	banners := []Banner{}
	for rows.Next() {
		var b Banner
		if err := rows.Scan(&b.ID, &b.Number, &b.URL, &b.CoverID, &b.CoverFilename); err != nil {
			return nil, fmt.Errorf("scan banner: %w", err)
		}
		banners = append(banners, b)
	}
	return banners, rows.Err()
}

// GetBanner fetches one banner.
func (r *Repository) GetBanner(ctx context.Context, id string) (*Banner, error) {
	b := &Banner{}
	err := r.db.QueryRow(ctx,
		`SELECT b.id, b.number, b.url, b.cover_id, i.filename
		 FROM banners b JOIN images i ON i.id = b.cover_id
		 WHERE b.id = $1`, id,
	).Scan(&b.ID, &b.Number, &b.URL, &b.CoverID, &b.CoverFilename)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get banner: %w", err)
	}
	return b, nil
}

// CreateBanner appends a banner at the end of the slot order.
func (r *Repository) CreateBanner(ctx context.Context, coverID string, url *string) (*Banner, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO banners (number, url, cover_id)
		 VALUES ((SELECT COALESCE(MAX(number), 0) + 1 FROM banners), $1, $2)
		 RETURNING id`,
		url, coverID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert banner: %w", err)
	}
	return r.GetBanner(ctx, id)
}

// UpdateBanner applies the non-nil fields.
func (r *Repository) UpdateBanner(ctx context.Context, id string, url, coverID *string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE banners SET
		   url = COALESCE($2, url),
		   cover_id = COALESCE($3, cover_id)
		 WHERE id = $1`,
		id, url, coverID)
	if err != nil {
		return fmt.Errorf("update banner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBanner removes a banner.
func (r *Repository) DeleteBanner(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete banner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResortBanners renumbers banners to match the given id order. All current
// banners must be listed exactly once.
func (r *Repository) ResortBanners(ctx context.Context, ids []string) error {
	return r.resort(ctx, "banners", "id", ids)
}

// FeaturedPhotographers returns the featured user ids in slot order.
func (r *Repository) FeaturedPhotographers(ctx context.Context) ([]string, error) {
	return r.featuredIDs(ctx, `SELECT user_id FROM home_photographers ORDER BY number`)
}

// AddPhotographer features a photographer at the end of the slot order.
func (r *Repository) AddPhotographer(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO home_photographers (user_id, number)
		 VALUES ($1, (SELECT COALESCE(MAX(number), 0) + 1 FROM home_photographers))
		 ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return fmt.Errorf("feature photographer: %w", err)
	}
	return nil
}

// RemovePhotographer unfeatures a photographer.
func (r *Repository) RemovePhotographer(ctx context.Context, userID string) error {
	return r.remove(ctx, `DELETE FROM home_photographers WHERE user_id = $1`, userID)
}

// ResortPhotographers renumbers the featured photographers to match the
// given id order.
func (r *Repository) ResortPhotographers(ctx context.Context, userIDs []string) error {
	return r.resort(ctx, "home_photographers", "user_id", userIDs)
}

// FeaturedCollections returns the featured collection ids in slot order.
func (r *Repository) FeaturedCollections(ctx context.Context) ([]string, error) {
	return r.featuredIDs(ctx, `SELECT collection_id FROM home_collections ORDER BY number`)
}

// AddCollection features a collection at the end of the slot order.
func (r *Repository) AddCollection(ctx context.Context, collectionID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO home_collections (collection_id, number)
		 VALUES ($1, (SELECT COALESCE(MAX(number), 0) + 1 FROM home_collections))
		 ON CONFLICT (collection_id) DO NOTHING`,
		collectionID)
	if err != nil {
		return fmt.Errorf("feature collection: %w", err)
	}
	return nil
}

// RemoveCollection unfeatures a collection.
func (r *Repository) RemoveCollection(ctx context.Context, collectionID string) error {
	return r.remove(ctx, `DELETE FROM home_collections WHERE collection_id = $1`, collectionID)
}

// ResortCollections renumbers the featured collections to match the given
// id order.
func (r *Repository) ResortCollections(ctx context.Context, collectionIDs []string) error {
	return r.resort(ctx, "home_collections", "collection_id", collectionIDs)
}

func (r *Repository) featuredIDs(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list featured entries: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan featured entry: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) remove(ctx context.Context, query, id string) error {
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("remove featured entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// resort renumbers every listed row by its position in one transaction. A
// missing row aborts the whole resort.
func (r *Repository) resort(ctx context.Context, table, column string, ids []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i, id := range ids {
		tag, err := tx.Exec(ctx,
			`UPDATE `+table+` SET number = $2 WHERE `+column+` = $1`, id, int16(i+1))
		if err != nil {
			return fmt.Errorf("resort %s: %w", table, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
	}
	return tx.Commit(ctx)
}
