// Package image implements the ingestion pipeline: one uploaded photo is
// transformed into three variants (watermarked original, compressed,
// cropped), pushed to the content-delivery bucket, and recorded as an
// Image row owned by the uploading user.
package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Image is a persisted record of one ingested photo. The filename doubles
// as the object-store key and must be globally unique.
type Image struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Filename  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Detail is the client-facing shape of an Image: three URL variants built
// from the filename convention. Field names (including the historical
// "croped_path" spelling) are part of the client contract.
type Detail struct {
	ID             string `json:"id"`
	Path           string `json:"path"`
	CompressedPath string `json:"compressed_path"`
	CropedPath     string `json:"croped_path"`
}

// Detail builds the URL variants for the image under the given host.
func (i *Image) Detail(imageHost string) Detail {
	return Detail{
		ID:             i.ID,
		Path:           imageHost + i.Filename,
		CompressedPath: imageHost + "comp_" + i.Filename,
		CropedPath:     imageHost + "crop_comp_" + i.Filename,
	}
}

// ErrNotFound is returned when an image does not exist.
var ErrNotFound = errors.New("image not found")

// ErrDuplicateFilename is returned when the unique filename constraint is violated.
var ErrDuplicateFilename = errors.New("image filename already exists")

// Repository handles image persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new image Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts the image row linking filename to its owner.
func (r *Repository) Create(ctx context.Context, userID, filename string) (*Image, error) {
	img := &Image{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO images (user_id, filename)
		 VALUES ($1, $2)
		 RETURNING id, user_id, filename, created_at`,
		userID, filename,
	).Scan(&img.ID, &img.UserID, &img.Filename, &img.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateFilename
		}
		return nil, fmt.Errorf("create image: %w", err)
	}
	return img, nil
}

// GetByID fetches an image by its UUID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Image, error) {
	img := &Image{}
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, filename, created_at FROM images WHERE id = $1`,
		id,
	).Scan(&img.ID, &img.UserID, &img.Filename, &img.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image by id: %w", err)
	}
	return img, nil
}

// GetOwned fetches an image only if it belongs to the given user.
func (r *Repository) GetOwned(ctx context.Context, id, userID string) (*Image, error) {
	img := &Image{}
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, filename, created_at
		 FROM images WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&img.ID, &img.UserID, &img.Filename, &img.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get owned image: %w", err)
	}
	return img, nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
