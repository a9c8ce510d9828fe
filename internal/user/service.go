package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/youpai/platform/internal/config"
	"github.com/youpai/platform/internal/image"
	"github.com/youpai/platform/internal/mail"
)

const (
	sessionTokenTTL      = 30 * 24 * time.Hour
	confirmationTokenTTL = 24 * time.Hour
)

// ErrInvalidCredentials is returned when email/password do not match.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidToken is returned for expired or malformed confirmation tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrStatusTransition is returned when an account is not in a status that
// permits the requested transition.
var ErrStatusTransition = errors.New("status does not permit this transition")

// Store is the persistence surface the service needs from the repository.
type Store interface {
	Create(ctx context.Context, name, email, passwordHash string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByStatus(ctx context.Context, statuses []string) ([]*User, error)
	UpdateProfile(ctx context.Context, id string, up ProfileUpdate) error
	SetStatus(ctx context.Context, id, status string) error
}

// Service contains business logic for account management.
type Service struct {
	repo   Store
	mailer mail.Sender
	cfg    *config.Config
}

// NewService creates a new user Service.
func NewService(repo Store, mailer mail.Sender, cfg *config.Config) *Service {
	return &Service{repo: repo, mailer: mailer, cfg: cfg}
}

// Profile is the client-facing shape of a user, with avatar URLs resolved.
type Profile struct {
	User
	Avatar *image.Detail `json:"avatar,omitempty"`
}

// Profile resolves the avatar URL variants and the admin status override.
func (s *Service) Profile(u *User) Profile {
	p := Profile{User: *u}
	if u.IsAdmin {
		p.Status = "admin"
	}
	if u.AvatarID != nil && u.AvatarFilename != nil {
		img := image.Image{ID: *u.AvatarID, Filename: *u.AvatarFilename}
		d := img.Detail(s.cfg.ImageHost)
		p.Avatar = &d
	}
	return p
}

// PublicProfile strips the email before exposing a profile to other users.
func (s *Service) PublicProfile(u *User) Profile {
	p := s.Profile(u)
	p.Email = ""
	return p
}

// Register creates a new unconfirmed account, mails the confirmation link,
// and returns the created user.
func (s *Service) Register(ctx context.Context, name, email, password, baseURL string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.Create(ctx, name, email, string(hash))
	if err != nil {
		return nil, err
	}

	if err := s.sendConfirmation(u, baseURL); err != nil {
		// The account exists; a failed mail should not fail registration.
		log.Printf("user: confirmation mail for %s failed: %v", u.Email, err)
	}
	return u, nil
}

// Authenticate verifies the email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID returns a user by their UUID.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByStatus returns non-admin users in any of the given statuses.
func (s *Service) ListByStatus(ctx context.Context, statuses []string) ([]*User, error) {
	return s.repo.ListByStatus(ctx, statuses)
}

// IssueToken creates a signed session JWT for the given user.
func (s *Service) IssueToken(u *User) (string, error) {
	claims := jwt.MapClaims{
		"sub":    u.ID,
		"status": u.Status,
		"admin":  u.IsAdmin,
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(sessionTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// confirmationToken creates a short-lived token binding the confirm action
// to one account.
func (s *Service) confirmationToken(u *User) (string, error) {
	claims := jwt.MapClaims{
		"sub":     u.ID,
		"purpose": "confirm",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(confirmationTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// Confirm validates the emailed token and moves the account to confirmed.
func (s *Service) Confirm(ctx context.Context, userID, tokenString string) (*User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if purpose, _ := claims["purpose"].(string); purpose != "confirm" {
		return nil, ErrInvalidToken
	}
	if sub, _ := claims["sub"].(string); sub != userID {
		return nil, ErrInvalidToken
	}

	if err := s.repo.SetStatus(ctx, userID, StatusConfirmed); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID)
}

// ResendConfirmation mails a fresh confirmation link.
func (s *Service) ResendConfirmation(ctx context.Context, userID, baseURL string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.sendConfirmation(u, baseURL)
}

func (s *Service) sendConfirmation(u *User, baseURL string) error {
	token, err := s.confirmationToken(u)
	if err != nil {
		return fmt.Errorf("issue confirmation token: %w", err)
	}
	confirmURL := fmt.Sprintf("%s/user/%s/confirmation/%s", baseURL, u.ID, token)
	return s.mailer.SendConfirmation(u.Email, u.Name, confirmURL)
}

// SubmitReview moves a confirmed account into the review queue.
func (s *Service) SubmitReview(ctx context.Context, userID string) error {
	return s.transition(ctx, userID, StatusConfirmed, StatusReviewing)
}

// CancelReview withdraws an account from the review queue.
func (s *Service) CancelReview(ctx context.Context, userID string) error {
	return s.transition(ctx, userID, StatusReviewing, StatusConfirmed)
}

func (s *Service) transition(ctx context.Context, userID, from, to string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.Status != from {
		return ErrStatusTransition
	}
	return s.repo.SetStatus(ctx, userID, to)
}

// Activate records the admin's review decision and mails the result.
// Approval lists the photographer (reviewed); rejection returns the account
// to confirmed.
func (s *Service) Activate(ctx context.Context, userID string, approve bool) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := StatusConfirmed
	if approve {
		status = StatusReviewed
	}
	if err := s.repo.SetStatus(ctx, userID, status); err != nil {
		return nil, err
	}

	if err := s.mailer.SendReviewResult(u.Email, u.Name, approve); err != nil {
		// The decision is already persisted; mail is best-effort, as in
		// Register.
		log.Printf("user: review result mail for %s failed: %v", u.Email, err)
	}
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile hashes a new password if present and applies the update.
func (s *Service) UpdateProfile(ctx context.Context, userID string, up ProfileUpdate, newPassword string) (*User, error) {
	if newPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		h := string(hash)
		up.PasswordHash = &h
	}
	if err := s.repo.UpdateProfile(ctx, userID, up); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID)
}

// IsNotFound returns true when the error indicates a user was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
