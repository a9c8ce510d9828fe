package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeCounter struct {
	deltas map[string][]int
}

func (f *fakeCounter) AdjustLikes(_ context.Context, id string, delta int) error {
	if f.deltas == nil {
		f.deltas = map[string][]int{}
	}
	f.deltas[id] = append(f.deltas[id], delta)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeCounter) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	counter := &fakeCounter{}
	return &Service{rdb: rdb, counters: counter, imageHost: "https://img.example.com/"}, counter
}

func TestLikeOncePerIP(t *testing.T) {
	svc, counter := newTestService(t)
	ctx := context.Background()

	if err := svc.Like(ctx, "col-1", "10.0.0.1"); err != nil {
		t.Fatalf("first like: %v", err)
	}
	if err := svc.Like(ctx, "col-1", "10.0.0.1"); !errors.Is(err, ErrAlreadyLiked) {
		t.Fatalf("second like err = %v, want ErrAlreadyLiked", err)
	}
	if err := svc.Like(ctx, "col-1", "10.0.0.2"); err != nil {
		t.Fatalf("like from other ip: %v", err)
	}

	if got := counter.deltas["col-1"]; len(got) != 2 || got[0] != 1 || got[1] != 1 {
		t.Fatalf("counter deltas = %v, want [1 1]", got)
	}
}

func TestUnlikeRequiresExistingLike(t *testing.T) {
	svc, counter := newTestService(t)
	ctx := context.Background()

	if err := svc.Unlike(ctx, "col-1", "10.0.0.1"); !errors.Is(err, ErrNotLiked) {
		t.Fatalf("unlike without like err = %v, want ErrNotLiked", err)
	}

	if err := svc.Like(ctx, "col-1", "10.0.0.1"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := svc.Unlike(ctx, "col-1", "10.0.0.1"); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if err := svc.Unlike(ctx, "col-1", "10.0.0.1"); !errors.Is(err, ErrNotLiked) {
		t.Fatalf("repeat unlike err = %v, want ErrNotLiked", err)
	}

	if got := counter.deltas["col-1"]; len(got) != 2 || got[0] != 1 || got[1] != -1 {
		t.Fatalf("counter deltas = %v, want [1 -1]", got)
	}
}

func TestIsLikedTracksMembership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	liked, err := svc.IsLiked(ctx, "col-1", "10.0.0.1")
	if err != nil {
		t.Fatalf("is liked: %v", err)
	}
	if liked {
		t.Fatal("fresh collection reported as liked")
	}

	if err := svc.Like(ctx, "col-1", "10.0.0.1"); err != nil {
		t.Fatalf("like: %v", err)
	}
	liked, err = svc.IsLiked(ctx, "col-1", "10.0.0.1")
	if err != nil {
		t.Fatalf("is liked: %v", err)
	}
	if !liked {
		t.Fatal("liked collection reported as not liked")
	}

	liked, err = svc.IsLiked(ctx, "col-1", "10.0.0.2")
	if err != nil {
		t.Fatalf("is liked: %v", err)
	}
	if liked {
		t.Fatal("other ip reported as liked")
	}
}

func TestLikesAreScopedPerCollection(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Like(ctx, "col-1", "10.0.0.1"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := svc.Like(ctx, "col-2", "10.0.0.1"); err != nil {
		t.Fatalf("like other collection: %v", err)
	}
}
