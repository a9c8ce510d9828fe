// Package collection manages photo collections, their works, and likes.
package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/youpai/platform/internal/image"
)

// Collection is a named set of images owned by one photographer.
type Collection struct {
	ID          string
	UserID      string
	Name        string
	Description *string
	Likes       int64
	ModelName   *string
	Photoshop   *string
	FilmingTime *string
	CreatedAt   time.Time

	Images []image.Image
}

// ErrNotFound is returned when a collection does not exist.
var ErrNotFound = errors.New("collection not found")

// ListParams controls ordering and slicing of collection listings.
type ListParams struct {
	SortBy string // "create_time" or "likes"
	Order  string // "asc" or "desc"
	Limit  int
	Offset int
}

func (p ListParams) orderClause() string {
	col := "created_at"
	if p.SortBy == "likes" {
		col = "likes"
	}
	dir := "ASC"
	if p.Order == "desc" {
		dir = "DESC"
	}
	return col + " " + dir
}

// Repository handles collection persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new collection Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Fields holds the editable collection attributes.
type Fields struct {
	Name        *string
	Description *string
	ModelName   *string
	Photoshop   *string
	FilmingTime *string
}

// Create inserts a collection and attaches the given images in one
// transaction.
func (r *Repository) Create(ctx context.Context, userID, name string, f Fields, imageIDs []string) (*Collection, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var id string
	err = tx.QueryRow(ctx,
		`INSERT INTO collections (user_id, name, description, model_name, photoshop, filming_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		userID, name, f.Description, f.ModelName, f.Photoshop, f.FilmingTime,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert collection: %w", err)
	}

	for _, imgID := range imageIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO collection_images (collection_id, image_id) VALUES ($1, $2)`,
			id, imgID); err != nil {
			return nil, fmt.Errorf("attach image: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return r.GetByID(ctx, id)
}

const collectionColumns = `id, user_id, name, description, likes, model_name, photoshop, filming_time, created_at`

// GetByID fetches a collection with its images.
func (r *Repository) GetByID(ctx context.Context, id string) (*Collection, error) {
	c := &Collection{}
	err := r.db.QueryRow(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = $1`, id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Likes,
		&c.ModelName, &c.Photoshop, &c.FilmingTime, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	if err := r.loadImages(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetOwned fetches a collection only if the user owns it.
func (r *Repository) GetOwned(ctx context.Context, id, userID string) (*Collection, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrNotFound
	}
	return c, nil
}

// ListByUser returns a user's collections, optionally excluding the cover
// collection.
func (r *Repository) ListByUser(ctx context.Context, userID string, excludeID *string, p ListParams) ([]*Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE user_id = $1`
	args := []interface{}{userID}
	if excludeID != nil {
		query += ` AND id <> $2`
		args = append(args, *excludeID)
	}
	query += ` ORDER BY ` + p.orderClause()
	if p.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, p.Limit, p.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []*Collection
	for rows.Next() {
		c := &Collection{}
		err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Likes,
			&c.ModelName, &c.Photoshop, &c.FilmingTime, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	for _, c := range out {
		if err := r.loadImages(ctx, c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CountByUser returns how many collections a user owns, cover excluded to
// match the public listing.
func (r *Repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM collections c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.user_id = $1
		   AND (u.cover_collection_id IS NULL OR c.id <> u.cover_collection_id)`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count collections: %w", err)
	}
	return n, nil
}

// Update applies the non-nil fields.
func (r *Repository) Update(ctx context.Context, id string, f Fields) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE collections SET
		   name = COALESCE($2, name),
		   description = COALESCE($3, description),
		   model_name = COALESCE($4, model_name),
		   photoshop = COALESCE($5, photoshop),
		   filming_time = COALESCE($6, filming_time)
		 WHERE id = $1`,
		id, f.Name, f.Description, f.ModelName, f.Photoshop, f.FilmingTime)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the collection; image links go with it.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddImage attaches an image to the collection.
func (r *Repository) AddImage(ctx context.Context, collectionID, imageID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO collection_images (collection_id, image_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		collectionID, imageID)
	if err != nil {
		return fmt.Errorf("add image to collection: %w", err)
	}
	return nil
}

// RemoveImage detaches an image from the collection.
func (r *Repository) RemoveImage(ctx context.Context, collectionID, imageID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM collection_images WHERE collection_id = $1 AND image_id = $2`,
		collectionID, imageID)
	if err != nil {
		return fmt.Errorf("remove image from collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return image.ErrNotFound
	}
	return nil
}

// AdjustLikes shifts the like counters on the collection and its owner by
// delta inside one transaction; both move or neither does.
func (r *Repository) AdjustLikes(ctx context.Context, id string, delta int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE collections SET likes = likes + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust collection likes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET likes = likes + $2
		 WHERE id = (SELECT user_id FROM collections WHERE id = $1)`,
		id, delta); err != nil {
		return fmt.Errorf("adjust owner likes: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *Repository) loadImages(ctx context.Context, c *Collection) error {
	rows, err := r.db.Query(ctx,
		`SELECT i.id, i.user_id, i.filename, i.created_at
		 FROM images i JOIN collection_images ci ON ci.image_id = i.id
		 WHERE ci.collection_id = $1
		 ORDER BY i.created_at`,
		c.ID)
	if err != nil {
		return fmt.Errorf("load collection images: %w", err)
	}
	defer rows.Close()

	c.Images = []image.Image{}
	for rows.Next() {
		var img image.Image
		if err := rows.Scan(&img.ID, &img.UserID, &img.Filename, &img.CreatedAt); err != nil {
			return fmt.Errorf("scan collection image: %w", err)
		}
		c.Images = append(c.Images, img)
	}
	return rows.Err()
}
