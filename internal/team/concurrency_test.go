package team

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestConcurrentAcceptsNeverExceedCapacity(t *testing.T) {
	env := newTestEnv(t, Policy{})
	ctx := context.Background()
	tm := env.createTeam(t, u1, 2, true)

	requesters := []string{u2, u3, u4}
	for _, id := range requesters {
		if _, err := env.svc.RequestToJoin(ctx, tm.ID, id); err != nil {
			t.Fatalf("request %s: %v", id, err)
		}
	}

	var accepted, full atomic.Int32
	var g errgroup.Group
	for _, id := range requesters {
		id := id
		g.Go(func() error {
			_, err := env.svc.AcceptJoinRequest(ctx, tm.ID, u1, id)
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ErrTeamFull):
				full.Add(1)
			case errors.Is(err, ErrConflict):
				// Lost every retry; still safe.
			default:
				return fmt.Errorf("accept %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if accepted.Load() != 1 {
		t.Errorf("expected exactly one accept, got %d", accepted.Load())
	}
	got, _ := env.svc.Get(ctx, tm.ID)
	assertInvariants(t, got)
	if len(got.Members) != 2 {
		t.Errorf("expected 2 members, got %v", got.Members)
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	env := newTestEnv(t, Policy{})
	env.svc.maxAttempts = 50
	ctx := context.Background()
	tm := env.createTeam(t, u1, 5, true)

	const joiners = 20
	var joined atomic.Int32
	var g errgroup.Group
	for i := 0; i < joiners; i++ {
		id := fmt.Sprintf("joiner-%d", i)
		g.Go(func() error {
			_, err := env.svc.JoinDirectly(ctx, tm.ID, id)
			if err == nil {
				joined.Add(1)
				return nil
			}
			if errors.Is(err, ErrTeamFull) || errors.Is(err, ErrConflict) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	got, _ := env.svc.Get(ctx, tm.ID)
	assertInvariants(t, got)
	if int(joined.Load()) != len(got.Members)-1 {
		t.Errorf("reported %d joins but team has %d non-owner members", joined.Load(), len(got.Members)-1)
	}
	if len(got.Members) > got.MaxSize {
		t.Errorf("members %d exceed maxSize %d", len(got.Members), got.MaxSize)
	}
}

func TestConcurrentDuplicateRequests(t *testing.T) {
	env := newTestEnv(t, Policy{})
	ctx := context.Background()
	tm := env.createTeam(t, u1, 5, true)

	var ok atomic.Int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := env.svc.RequestToJoin(ctx, tm.ID, u2)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrAlreadyRequested), errors.Is(err, ErrConflict):
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if ok.Load() != 1 {
		t.Errorf("expected exactly one successful request, got %d", ok.Load())
	}
	got, _ := env.svc.Get(ctx, tm.ID)
	assertInvariants(t, got)
}

// racingStore loses every conditional write.
type racingStore struct {
	*MemoryStore
	attempts atomic.Int32
}

func (s *racingStore) Replace(ctx context.Context, t *Team, expectedVersion int64) error {
	s.attempts.Add(1)
	return ErrVersionConflict
}

func TestConflictAfterBoundedRetries(t *testing.T) {
	store := &racingStore{MemoryStore: NewMemoryStore()}
	obs := &countingObserver{outcomes: map[string]string{}}
	svc := NewService(ServiceDeps{Store: store, Observer: obs, MaxWriteAttempts: 3})
	ctx := context.Background()

	tm, err := svc.Create(ctx, u1, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.RequestToJoin(ctx, tm.ID, u2)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if n := store.attempts.Load(); n != 3 {
		t.Errorf("expected 3 write attempts, got %d", n)
	}
	if obs.conflicts != 3 {
		t.Errorf("expected 3 observed conflicts, got %d", obs.conflicts)
	}
	if obs.outcomes[OpRequestToJoin] != "conflict" {
		t.Errorf("expected outcome conflict, got %q", obs.outcomes[OpRequestToJoin])
	}

	got, _ := svc.Get(ctx, tm.ID)
	if len(got.JoinRequests) != 0 {
		t.Errorf("expected nothing written, got %v", got.JoinRequests)
	}
}

// staleOnceStore simulates a concurrent writer that commits between our read
// and our write exactly once.
type staleOnceStore struct {
	*MemoryStore
	fired atomic.Bool
	sneak func()
}

func (s *staleOnceStore) Replace(ctx context.Context, t *Team, expectedVersion int64) error {
	if s.fired.CompareAndSwap(false, true) {
		s.sneak()
	}
	return s.MemoryStore.Replace(ctx, t, expectedVersion)
}

func TestRetryRevalidatesAgainstFreshState(t *testing.T) {
	mem := NewMemoryStore()
	store := &staleOnceStore{MemoryStore: mem}
	svc := NewService(ServiceDeps{Store: store})
	ctx := context.Background()

	in := validInput()
	in.MaxSize = 2
	tm, err := svc.Create(ctx, u1, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Another writer fills the last seat while we are about to write.
	store.sneak = func() {
		cur, _ := mem.GetByID(ctx, tm.ID)
		cur.Members = append(cur.Members, u3)
		if err := mem.Replace(ctx, cur, cur.Version); err != nil {
			t.Errorf("sneaky write: %v", err)
		}
	}

	_, err = svc.JoinDirectly(ctx, tm.ID, u2)
	if !errors.Is(err, ErrTeamFull) {
		t.Fatalf("expected ErrTeamFull after re-read, got %v", err)
	}
	got, _ := svc.Get(ctx, tm.ID)
	assertInvariants(t, got)
	if got.IsMember(u2) {
		t.Error("u2 must not have been added")
	}
}
