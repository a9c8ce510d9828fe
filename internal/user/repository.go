// Package user manages photographer accounts and their persistence.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account statuses. Registration starts at unconfirmed; confirming the
// email moves to confirmed; submitting the profile for review moves to
// reviewing; admin approval moves to reviewed.
const (
	StatusUnconfirmed = "unconfirmed"
	StatusConfirmed   = "confirmed"
	StatusReviewing   = "reviewing"
	StatusReviewed    = "reviewed"
)

// User represents a registered account.
type User struct {
	ID                string    `json:"id"`
	Number            int       `json:"number"`
	Name              string    `json:"name"`
	Email             string    `json:"email,omitempty"`
	PasswordHash      string    `json:"-"`
	Sex               bool      `json:"sex"`
	Status            string    `json:"status"`
	IsAdmin           bool      `json:"-"`
	Likes             int64     `json:"likes"`
	Description       *string   `json:"description"`
	Major             *string   `json:"major"`
	Imagelink         *string   `json:"imagelink"`
	AvatarID          *string   `json:"-"`
	AvatarFilename    *string   `json:"-"`
	SchoolID          *int      `json:"-"`
	CoverCollectionID *string   `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`

	Tags       []Tag    `json:"tags"`
	Styles     []Option `json:"styles"`
	Categories []Option `json:"categories"`
	School     *Option  `json:"school,omitempty"`
}

// Tag is a free-form label a photographer attaches to their profile.
type Tag struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Option is a taxonomy entry (style, category, or school).
type Option struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned when an email is already registered.
var ErrAlreadyExists = errors.New("user already exists")

const userColumns = `u.id, u.number, u.name, u.email, COALESCE(u.password, ''), u.sex,
	u.status, u.is_admin, u.likes, u.description, u.major, u.imagelink,
	u.avatar_id, a.filename, u.school_id, u.cover_collection_id, u.created_at`

// Repository handles all user database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user together with their empty cover collection in
// one transaction; both exist or neither does.
func (r *Repository) Create(ctx context.Context, name, email, passwordHash string) (*User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var id string
	err = tx.QueryRow(ctx,
		`INSERT INTO users (number, name, email, password)
		 VALUES ((SELECT COALESCE(MAX(number), 0) + 1 FROM users), $1, $2, $3)
		 RETURNING id`,
		name, email, passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	var coverID string
	err = tx.QueryRow(ctx,
		`INSERT INTO collections (user_id, name) VALUES ($1, 'cover') RETURNING id`,
		id,
	).Scan(&coverID)
	if err != nil {
		return nil, fmt.Errorf("insert cover collection: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET cover_collection_id = $2 WHERE id = $1`, id, coverID); err != nil {
		return nil, fmt.Errorf("link cover collection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches a user and their profile associations.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getWhere(ctx, "u.id = $1", id)
}

// GetByEmail fetches a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getWhere(ctx, "u.email = $1", email)
}

func (r *Repository) getWhere(ctx context.Context, cond string, arg interface{}) (*User, error) {
	u := &User{}
	err := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u LEFT JOIN images a ON a.id = u.avatar_id
		 WHERE `+cond, arg,
	).Scan(&u.ID, &u.Number, &u.Name, &u.Email, &u.PasswordHash, &u.Sex,
		&u.Status, &u.IsAdmin, &u.Likes, &u.Description, &u.Major, &u.Imagelink,
		&u.AvatarID, &u.AvatarFilename, &u.SchoolID, &u.CoverCollectionID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := r.loadAssociations(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AccountStatus returns the current persisted status and admin flag for an
// account. Status-gated routes call this per request, so it deliberately
// skips the association loading GetByID does.
func (r *Repository) AccountStatus(ctx context.Context, id string) (string, bool, error) {
	var status string
	var isAdmin bool
	err := r.db.QueryRow(ctx,
		`SELECT status, is_admin FROM users WHERE id = $1`, id,
	).Scan(&status, &isAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, ErrNotFound
	}
	if err != nil {
		return "", false, fmt.Errorf("get account status: %w", err)
	}
	return status, isAdmin, nil
}

// ListByStatus returns users in any of the given statuses, excluding admins.
func (r *Repository) ListByStatus(ctx context.Context, statuses []string) ([]*User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+`
		 FROM users u LEFT JOIN images a ON a.id = u.avatar_id
		 WHERE u.status = ANY($1) AND NOT u.is_admin
		 ORDER BY u.created_at`,
		statuses,
	)
	if err != nil {
		return nil, fmt.Errorf("list users by status: %w", err)
	}
	defer rows.Close()
	return r.collectUsers(ctx, rows)
}

func (r *Repository) collectUsers(ctx context.Context, rows pgx.Rows) ([]*User, error) {
	var users []*User
	for rows.Next() {
		u := &User{}
		err := rows.Scan(&u.ID, &u.Number, &u.Name, &u.Email, &u.PasswordHash, &u.Sex,
			&u.Status, &u.IsAdmin, &u.Likes, &u.Description, &u.Major, &u.Imagelink,
			&u.AvatarID, &u.AvatarFilename, &u.SchoolID, &u.CoverCollectionID, &u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	for _, u := range users {
		if err := r.loadAssociations(ctx, u); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *Repository) loadAssociations(ctx context.Context, u *User) error {
	u.Tags = []Tag{}
	rows, err := r.db.Query(ctx,
		`SELECT id, text FROM tags WHERE user_id = $1`, u.ID)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Text); err != nil {
			rows.Close()
			return fmt.Errorf("scan tag: %w", err)
		}
		u.Tags = append(u.Tags, t)
	}
	rows.Close()

	u.Styles, err = r.options(ctx,
		`SELECT s.id, s.name FROM styles s
		 JOIN user_styles us ON us.style_id = s.id WHERE us.user_id = $1`, u.ID)
	if err != nil {
		return err
	}
	u.Categories, err = r.options(ctx,
		`SELECT c.id, c.name FROM categories c
		 JOIN user_categories uc ON uc.category_id = c.id WHERE uc.user_id = $1`, u.ID)
	if err != nil {
		return err
	}

	if u.SchoolID != nil {
		school := &Option{}
		err := r.db.QueryRow(ctx,
			`SELECT id, name FROM schools WHERE id = $1`, *u.SchoolID,
		).Scan(&school.ID, &school.Name)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load school: %w", err)
		}
		if err == nil {
			u.School = school
		}
	}
	return nil
}

func (r *Repository) options(ctx context.Context, query string, arg interface{}) ([]Option, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()
	opts := []Option{}
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// ProfileUpdate holds the optional profile fields a PATCH can change.
type ProfileUpdate struct {
	Name         *string
	Sex          *bool
	Description  *string
	Major        *string
	Imagelink    *string
	PasswordHash *string
	AvatarID     *string
	SchoolID     *int
	Tags         []string
	StyleIDs     []int
	CategoryIDs  []int
}

// UpdateProfile applies the update in a single transaction, replacing tag
// and taxonomy sets when they are present.
func (r *Repository) UpdateProfile(ctx context.Context, id string, up ProfileUpdate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`UPDATE users SET
		   name = COALESCE($2, name),
		   sex = COALESCE($3, sex),
		   description = COALESCE($4, description),
		   major = COALESCE($5, major),
		   imagelink = COALESCE($6, imagelink),
		   password = COALESCE($7, password),
		   avatar_id = COALESCE($8, avatar_id),
		   school_id = COALESCE($9, school_id)
		 WHERE id = $1`,
		id, up.Name, up.Sex, up.Description, up.Major, up.Imagelink,
		up.PasswordHash, up.AvatarID, up.SchoolID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if up.Tags != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM tags WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		for _, text := range up.Tags {
			if _, err := tx.Exec(ctx,
				`INSERT INTO tags (user_id, text) VALUES ($1, $2)`, id, text); err != nil {
				return fmt.Errorf("insert tag: %w", err)
			}
		}
	}
	if up.StyleIDs != nil {
		if err := replaceLinks(ctx, tx, "user_styles", "style_id", id, up.StyleIDs); err != nil {
			return err
		}
	}
	if up.CategoryIDs != nil {
		if err := replaceLinks(ctx, tx, "user_categories", "category_id", id, up.CategoryIDs); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func replaceLinks(ctx context.Context, tx pgx.Tx, table, column, userID string, ids []int) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, id := range ids {
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+table+` (user_id, `+column+`) VALUES ($1, $2)`, userID, id); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// SetStatus moves the account to the given status.
func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
