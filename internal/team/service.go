package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/sportsbro/sportsbro/internal/events"
)

// DefaultMaxWriteAttempts bounds how often a mutation is retried after losing
// an optimistic-concurrency race.
const DefaultMaxWriteAttempts = 5

// Operation names, used for metrics and logs.
const (
	OpCreate        = "create"
	OpUpdate        = "update"
	OpDelete        = "delete"
	OpRequestToJoin = "request_to_join"
	OpCancelRequest = "cancel_request"
	OpAcceptRequest = "accept_request"
	OpRejectRequest = "reject_request"
	OpJoinDirectly  = "join_directly"
	OpLeave         = "leave"
	OpRemoveMember  = "remove_member"
)

// UserChecker reports whether a user exists.
type UserChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Observer receives operation outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveOperation(op, code string, d time.Duration)
	ObserveWriteConflict(op string)
	ObserveEventPublished(eventType string, err error)
}

// Policy holds the membership rules that are deployment choices rather than
// invariants.
type Policy struct {
	// DirectJoinRequiresPublic makes JoinDirectly refuse private teams with
	// ErrNotAcceptingRequests, like RequestToJoin does.
	DirectJoinRequiresPublic bool
}

// ServiceDeps are the collaborators of a Service. Only Store is required.
type ServiceDeps struct {
	Store            Store
	Users            UserChecker
	Publisher        events.Publisher
	Observer         Observer
	Clock            clockwork.Clock
	Policy           Policy
	MaxWriteAttempts int
}

// Service mediates every change to a team's attributes, members and join
// requests. The acting user is always passed in explicitly.
type Service struct {
	store       Store
	users       UserChecker
	publisher   events.Publisher
	observer    Observer
	clock       clockwork.Clock
	policy      Policy
	maxAttempts int
}

// NewService creates a Service, filling in defaults for optional deps.
func NewService(deps ServiceDeps) *Service {
	s := &Service{
		store:       deps.Store,
		users:       deps.Users,
		publisher:   deps.Publisher,
		observer:    deps.Observer,
		clock:       deps.Clock,
		policy:      deps.Policy,
		maxAttempts: deps.MaxWriteAttempts,
	}
	if s.publisher == nil {
		s.publisher = events.Discard{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxWriteAttempts
	}
	return s
}

// Policy returns the membership policy in effect.
func (s *Service) Policy() Policy {
	return s.policy
}

// Get returns a team by id.
func (s *Service) Get(ctx context.Context, id string) (*Team, error) {
	return s.store.GetByID(ctx, id)
}

// List returns the teams matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Team, error) {
	return s.store.List(ctx, f)
}

// Create validates in and stores a new team owned by ownerID, who becomes its
// only member.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateTeamInput) (t *Team, err error) {
	defer s.observe(OpCreate, s.clock.Now(), &err)

	if ownerID == "" {
		return nil, invalid("createdBy", "is required")
	}
	t, err = validateCreate(in)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedBy = ownerID
	t.Members = []string{ownerID}
	t.JoinRequests = []string{}
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := CheckInvariants(t); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	s.publish(ctx, events.TeamCreated, t.ID, ownerID, "")
	return t, nil
}

// Update applies a partial update of descriptive attributes. Only the owner
// may call it.
func (s *Service) Update(ctx context.Context, teamID, requesterID string, in UpdateTeamInput) (t *Team, err error) {
	defer s.observe(OpUpdate, s.clock.Now(), &err)

	return s.mutate(ctx, OpUpdate, teamID, func(t *Team) (*change, error) {
		if !t.IsOwner(requesterID) {
			return nil, ErrForbidden
		}
		if err := applyUpdate(t, in); err != nil {
			return nil, err
		}
		return &change{event: events.TeamUpdated, actor: requesterID}, nil
	})
}

// Delete permanently removes a team. Only the owner may call it.
func (s *Service) Delete(ctx context.Context, teamID, requesterID string) (err error) {
	defer s.observe(OpDelete, s.clock.Now(), &err)

	t, err := s.store.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if !t.IsOwner(requesterID) {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, teamID); err != nil {
		return err
	}
	s.publish(ctx, events.TeamDeleted, teamID, requesterID, "")
	return nil
}

// RequestToJoin files a join request for requesterID.
func (s *Service) RequestToJoin(ctx context.Context, teamID, requesterID string) (t *Team, err error) {
	defer s.observe(OpRequestToJoin, s.clock.Now(), &err)

	return s.mutate(ctx, OpRequestToJoin, teamID, func(t *Team) (*change, error) {
		switch {
		case !t.IsPublic:
			return nil, ErrNotAcceptingRequests
		case t.IsFull():
			return nil, ErrTeamFull
		case t.IsMember(requesterID):
			return nil, ErrAlreadyMember
		case t.HasRequested(requesterID):
			return nil, ErrAlreadyRequested
		}
		t.JoinRequests = append(t.JoinRequests, requesterID)
		return &change{event: events.JoinRequested, actor: requesterID}, nil
	})
}

// CancelJoinRequest withdraws requesterID's pending request.
func (s *Service) CancelJoinRequest(ctx context.Context, teamID, requesterID string) (t *Team, err error) {
	defer s.observe(OpCancelRequest, s.clock.Now(), &err)

	return s.mutate(ctx, OpCancelRequest, teamID, func(t *Team) (*change, error) {
		if !t.HasRequested(requesterID) {
			return nil, ErrNoPendingRequest
		}
		t.JoinRequests = without(t.JoinRequests, requesterID)
		return &change{event: events.JoinRequestCancelled, actor: requesterID}, nil
	})
}

// AcceptJoinRequest moves targetID from the join requests to the members.
// Capacity is checked again because it may have changed since the request
// was filed.
func (s *Service) AcceptJoinRequest(ctx context.Context, teamID, ownerID, targetID string) (t *Team, err error) {
	defer s.observe(OpAcceptRequest, s.clock.Now(), &err)

	return s.mutate(ctx, OpAcceptRequest, teamID, func(t *Team) (*change, error) {
		if !t.IsOwner(ownerID) {
			return nil, ErrForbidden
		}
		if err := s.checkUser(ctx, targetID); err != nil {
			return nil, err
		}
		if t.IsFull() {
			return nil, ErrTeamFull
		}
		if !t.HasRequested(targetID) {
			return nil, ErrNoPendingRequest
		}
		t.JoinRequests = without(t.JoinRequests, targetID)
		t.Members = append(t.Members, targetID)
		return &change{event: events.JoinRequestAccepted, actor: ownerID, subject: targetID}, nil
	})
}

// RejectJoinRequest drops targetID's pending request.
func (s *Service) RejectJoinRequest(ctx context.Context, teamID, ownerID, targetID string) (t *Team, err error) {
	defer s.observe(OpRejectRequest, s.clock.Now(), &err)

	return s.mutate(ctx, OpRejectRequest, teamID, func(t *Team) (*change, error) {
		if !t.IsOwner(ownerID) {
			return nil, ErrForbidden
		}
		if err := s.checkUser(ctx, targetID); err != nil {
			return nil, err
		}
		if !t.HasRequested(targetID) {
			return nil, ErrNoPendingRequest
		}
		t.JoinRequests = without(t.JoinRequests, targetID)
		return &change{event: events.JoinRequestRejected, actor: ownerID, subject: targetID}, nil
	})
}

// JoinDirectly adds requesterID to the members without a request. Private
// teams are only refused when Policy.DirectJoinRequiresPublic is set. A
// pending request by the same user is dropped in the same write.
func (s *Service) JoinDirectly(ctx context.Context, teamID, requesterID string) (t *Team, err error) {
	defer s.observe(OpJoinDirectly, s.clock.Now(), &err)

	return s.mutate(ctx, OpJoinDirectly, teamID, func(t *Team) (*change, error) {
		switch {
		case s.policy.DirectJoinRequiresPublic && !t.IsPublic:
			return nil, ErrNotAcceptingRequests
		case t.IsFull():
			return nil, ErrTeamFull
		case t.IsMember(requesterID):
			return nil, ErrAlreadyMember
		}
		t.JoinRequests = without(t.JoinRequests, requesterID)
		t.Members = append(t.Members, requesterID)
		return &change{event: events.MemberJoined, actor: requesterID}, nil
	})
}

// Leave removes requesterID from the members. The owner cannot leave.
func (s *Service) Leave(ctx context.Context, teamID, requesterID string) (t *Team, err error) {
	defer s.observe(OpLeave, s.clock.Now(), &err)

	return s.mutate(ctx, OpLeave, teamID, func(t *Team) (*change, error) {
		if !t.IsMember(requesterID) {
			return nil, ErrNotAMember
		}
		if t.IsOwner(requesterID) {
			return nil, ErrOwnerCannotLeave
		}
		t.Members = without(t.Members, requesterID)
		return &change{event: events.MemberLeft, actor: requesterID}, nil
	})
}

// RemoveMember removes targetID from the members. Removing the owner always
// fails with ErrCannotRemoveOwner, whoever asks.
func (s *Service) RemoveMember(ctx context.Context, teamID, ownerID, targetID string) (t *Team, err error) {
	defer s.observe(OpRemoveMember, s.clock.Now(), &err)

	return s.mutate(ctx, OpRemoveMember, teamID, func(t *Team) (*change, error) {
		if t.IsOwner(targetID) {
			return nil, ErrCannotRemoveOwner
		}
		if !t.IsOwner(ownerID) {
			return nil, ErrForbidden
		}
		if err := s.checkUser(ctx, targetID); err != nil {
			return nil, err
		}
		if !t.IsMember(targetID) {
			return nil, ErrNotAMember
		}
		t.Members = without(t.Members, targetID)
		return &change{event: events.MemberRemoved, actor: ownerID, subject: targetID}, nil
	})
}

// change describes a successful mutation for event publishing.
type change struct {
	event   string
	actor   string
	subject string
}

// mutate runs the read, validate, write cycle for one team. apply receives a
// private copy of the current document and must return an error before
// touching it if any rule fails. The write is conditional on the version
// that was read; on a lost race the whole cycle starts over from a fresh
// read, so every rule is checked against the state actually replaced.
func (s *Service) mutate(ctx context.Context, op, teamID string, apply func(t *Team) (*change, error)) (*Team, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		cur, err := s.store.GetByID(ctx, teamID)
		if err != nil {
			return nil, err
		}

		next := cur.Clone()
		ch, err := apply(next)
		if err != nil {
			return nil, err
		}
		if err := CheckInvariants(next); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		next.UpdatedAt = s.clock.Now().UTC()

		err = s.store.Replace(ctx, next, cur.Version)
		if errors.Is(err, ErrVersionConflict) {
			s.observer.ObserveWriteConflict(op)
			slog.Debug("team write conflict, retrying",
				"operation", op, "team_id", teamID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.publish(ctx, ch.event, teamID, ch.actor, ch.subject)
		return next, nil
	}

	slog.Warn("team write conflict, giving up",
		"operation", op, "team_id", teamID, "attempts", s.maxAttempts)
	return nil, ErrConflict
}

func (s *Service) checkUser(ctx context.Context, id string) error {
	if s.users == nil {
		return nil
	}
	ok, err := s.users.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType, teamID, actor, subject string) {
	e := events.New(eventType, teamID, actor, subject, s.clock.Now())
	err := s.publisher.Publish(ctx, e)
	if err != nil {
		slog.Error("publishing team event",
			"event_type", eventType, "team_id", teamID, "error", err)
	}
	s.observer.ObserveEventPublished(eventType, err)
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	s.observer.ObserveOperation(op, Code(*errp), s.clock.Since(start))
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string, time.Duration) {}
func (nopObserver) ObserveWriteConflict(string) {}
func (nopObserver) ObserveEventPublished(string, error) {}
