package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/youpai/platform/internal/config"
)

type fakeStore struct {
	users map[string]*User
}

func newFakeStore(users ...*User) *fakeStore {
	s := &fakeStore{users: map[string]*User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, name, email, passwordHash string) (*User, error) {
	u := &User{ID: "u-" + name, Name: name, Email: email, PasswordHash: passwordHash,
		Status: StatusUnconfirmed, CreatedAt: time.Now()}
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) ListByStatus(_ context.Context, statuses []string) ([]*User, error) {
	var out []*User
	for _, u := range s.users {
		for _, st := range statuses {
			if u.Status == st {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateProfile(_ context.Context, id string, up ProfileUpdate) error {
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	if up.Name != nil {
		u.Name = *up.Name
	}
	return nil
}

func (s *fakeStore) SetStatus(_ context.Context, id, status string) error {
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	return nil
}

type fakeMailer struct {
	confirmations int
	reviews       int
	err           error
}

func (m *fakeMailer) SendConfirmation(_, _, _ string) error {
	m.confirmations++
	return m.err
}

func (m *fakeMailer) SendReviewResult(_, _ string, _ bool) error {
	m.reviews++
	return m.err
}

func newTestService(store *fakeStore, mailer *fakeMailer) *Service {
	return NewService(store, mailer, &config.Config{
		JWTSecret: "test-secret",
		ImageHost: "http://cdn.test/image/",
	})
}

func TestActivateContinuesWhenMailFails(t *testing.T) {
	store := newFakeStore(&User{ID: "u-1", Name: "ana", Email: "ana@example.com", Status: StatusReviewing})
	mailer := &fakeMailer{err: errors.New("relay down")}
	svc := newTestService(store, mailer)

	u, err := svc.Activate(context.Background(), "u-1", true)
	if err != nil {
		t.Fatalf("Activate returned %v despite persisted decision", err)
	}
	if u.Status != StatusReviewed {
		t.Errorf("status = %q, want %q", u.Status, StatusReviewed)
	}
	if mailer.reviews != 1 {
		t.Errorf("review mail attempted %d times, want 1", mailer.reviews)
	}
}

func TestActivateRejectDemotes(t *testing.T) {
	store := newFakeStore(&User{ID: "u-1", Name: "ana", Email: "ana@example.com", Status: StatusReviewing})
	svc := newTestService(store, &fakeMailer{})

	u, err := svc.Activate(context.Background(), "u-1", false)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if u.Status != StatusConfirmed {
		t.Errorf("status = %q, want %q", u.Status, StatusConfirmed)
	}
}

func TestRegisterContinuesWhenMailFails(t *testing.T) {
	store := newFakeStore()
	mailer := &fakeMailer{err: errors.New("relay down")}
	svc := newTestService(store, mailer)

	u, err := svc.Register(context.Background(), "ana", "ana@example.com", "longenough", "http://api.test")
	if err != nil {
		t.Fatalf("Register returned %v despite created account", err)
	}
	if u.Status != StatusUnconfirmed {
		t.Errorf("status = %q, want %q", u.Status, StatusUnconfirmed)
	}
	if mailer.confirmations != 1 {
		t.Errorf("confirmation mail attempted %d times, want 1", mailer.confirmations)
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		call    func(svc *Service) error
		want    string
		wantErr error
	}{
		{"submit from confirmed", StatusConfirmed,
			func(svc *Service) error { return svc.SubmitReview(context.Background(), "u-1") },
			StatusReviewing, nil},
		{"submit from unconfirmed", StatusUnconfirmed,
			func(svc *Service) error { return svc.SubmitReview(context.Background(), "u-1") },
			StatusUnconfirmed, ErrStatusTransition},
		{"cancel from reviewing", StatusReviewing,
			func(svc *Service) error { return svc.CancelReview(context.Background(), "u-1") },
			StatusConfirmed, nil},
		{"cancel from reviewed", StatusReviewed,
			func(svc *Service) error { return svc.CancelReview(context.Background(), "u-1") },
			StatusReviewed, ErrStatusTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(&User{ID: "u-1", Status: tt.from})
			svc := newTestService(store, &fakeMailer{})

			err := tt.call(svc)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if store.users["u-1"].Status != tt.want {
				t.Errorf("status = %q, want %q", store.users["u-1"].Status, tt.want)
			}
		})
	}
}

func TestConfirmRejectsForeignToken(t *testing.T) {
	store := newFakeStore(
		&User{ID: "u-1", Email: "ana@example.com", Status: StatusUnconfirmed},
		&User{ID: "u-2", Email: "bob@example.com", Status: StatusUnconfirmed},
	)
	svc := newTestService(store, &fakeMailer{})

	token, err := svc.confirmationToken(store.users["u-2"])
	if err != nil {
		t.Fatalf("confirmationToken: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), "u-1", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if store.users["u-1"].Status != StatusUnconfirmed {
		t.Error("account confirmed with another user's token")
	}
}

func TestConfirmRejectsSessionToken(t *testing.T) {
	store := newFakeStore(&User{ID: "u-1", Email: "ana@example.com", Status: StatusUnconfirmed})
	svc := newTestService(store, &fakeMailer{})

	session, err := svc.IssueToken(store.users["u-1"])
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), "u-1", session); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestConfirmMovesToConfirmed(t *testing.T) {
	store := newFakeStore(&User{ID: "u-1", Email: "ana@example.com", Status: StatusUnconfirmed})
	svc := newTestService(store, &fakeMailer{})

	token, err := svc.confirmationToken(store.users["u-1"])
	if err != nil {
		t.Fatalf("confirmationToken: %v", err)
	}
	u, err := svc.Confirm(context.Background(), "u-1", token)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if u.Status != StatusConfirmed {
		t.Errorf("status = %q, want %q", u.Status, StatusConfirmed)
	}
}
