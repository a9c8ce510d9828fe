package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/youpai/platform/internal/image"
	"github.com/youpai/platform/internal/user"
)

// ErrAlreadyLiked is returned when the caller's IP has already liked the
// collection.
var ErrAlreadyLiked = errors.New("collection already liked")

// ErrNotLiked is returned when unliking a collection the caller never liked.
var ErrNotLiked = errors.New("collection not liked")

// Detail is the client-facing shape of a collection.
type Detail struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  *string        `json:"description"`
	Likes        int64          `json:"likes"`
	Images       []image.Detail `json:"images"`
	ModelName    *string        `json:"model_name,omitempty"`
	Photoshop    *string        `json:"photoshop,omitempty"`
	FilmingTime  *string        `json:"filming_time,omitempty"`
	Photographer *user.Profile  `json:"photographer,omitempty"`
	IsLiked      *bool          `json:"is_liked,omitempty"`
}

// likeCounter moves the persistent like counters once Redis has accepted or
// released a like.
type likeCounter interface {
	AdjustLikes(ctx context.Context, id string, delta int) error
}

// Service contains business logic for collections. Like de-duplication is
// tracked in Redis as one set of client IPs per collection.
type Service struct {
	repo      *Repository
	users     *user.Service
	rdb       *redis.Client
	counters  likeCounter
	imageHost string
}

// NewService creates a new collection Service.
func NewService(repo *Repository, users *user.Service, rdb *redis.Client, imageHost string) *Service {
	return &Service{repo: repo, users: users, rdb: rdb, counters: repo, imageHost: imageHost}
}

// Repo exposes the underlying repository for read paths shared with other
// packages.
func (s *Service) Repo() *Repository {
	return s.repo
}

// Detail builds the client shape. withPhotographer loads the owner's public
// profile; a non-empty ip resolves is_liked for that caller.
func (s *Service) Detail(ctx context.Context, c *Collection, withPhotographer bool, ip string) (Detail, error) {
	d := Detail{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Likes:       c.Likes,
		ModelName:   c.ModelName,
		Photoshop:   c.Photoshop,
		FilmingTime: c.FilmingTime,
		Images:      make([]image.Detail, 0, len(c.Images)),
	}
	for i := range c.Images {
		d.Images = append(d.Images, c.Images[i].Detail(s.imageHost))
	}

	if withPhotographer {
		owner, err := s.users.GetByID(ctx, c.UserID)
		if err != nil {
			return Detail{}, fmt.Errorf("load collection owner: %w", err)
		}
		p := s.users.PublicProfile(owner)
		d.Photographer = &p
	}

	if ip != "" {
		liked, err := s.IsLiked(ctx, c.ID, ip)
		if err != nil {
			return Detail{}, err
		}
		d.IsLiked = &liked
	}
	return d, nil
}

// IsLiked reports whether the IP is in the collection's like set.
func (s *Service) IsLiked(ctx context.Context, collectionID, ip string) (bool, error) {
	liked, err := s.rdb.SIsMember(ctx, likeKey(collectionID), ip).Result()
	if err != nil {
		return false, fmt.Errorf("check like membership: %w", err)
	}
	return liked, nil
}

// Like records one like per IP per collection and bumps the counters on the
// collection and its owner.
func (s *Service) Like(ctx context.Context, collectionID, ip string) error {
	added, err := s.rdb.SAdd(ctx, likeKey(collectionID), ip).Result()
	if err != nil {
		return fmt.Errorf("record like: %w", err)
	}
	if added == 0 {
		return ErrAlreadyLiked
	}
	return s.counters.AdjustLikes(ctx, collectionID, 1)
}

// Unlike removes the IP's like and decrements the counters.
func (s *Service) Unlike(ctx context.Context, collectionID, ip string) error {
	removed, err := s.rdb.SRem(ctx, likeKey(collectionID), ip).Result()
	if err != nil {
		return fmt.Errorf("remove like: %w", err)
	}
	if removed == 0 {
		return ErrNotLiked
	}
	return s.counters.AdjustLikes(ctx, collectionID, -1)
}

func likeKey(collectionID string) string {
	return "likes:" + collectionID
}

// IsNotFound returns true when the error indicates a missing collection.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
