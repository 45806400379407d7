package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the team service.
const (
	TeamCreated          = "team.created"
	TeamUpdated          = "team.updated"
	TeamDeleted          = "team.deleted"
	JoinRequested        = "team.join_requested"
	JoinRequestCancelled = "team.join_request_cancelled"
	JoinRequestAccepted  = "team.join_request_accepted"
	JoinRequestRejected  = "team.join_request_rejected"
	MemberJoined         = "team.member_joined"
	MemberLeft           = "team.member_left"
	MemberRemoved        = "team.member_removed"
)

// Event describes a committed change to a team.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	TeamID     string    `json:"teamId"`
	ActorID    string    `json:"actorId"`
	SubjectID  string    `json:"subjectId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New builds an event with a fresh id.
func New(eventType, teamID, actorID, subjectID string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TeamID:     teamID,
		ActorID:    actorID,
		SubjectID:  subjectID,
		OccurredAt: at.UTC(),
	}
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to a slog logger. It is used when no message
// bus is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a LogPublisher. A nil logger means slog.Default().
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.InfoContext(ctx, "team event",
		slog.String("event_id", e.ID),
		slog.String("event_type", e.Type),
		slog.String("team_id", e.TeamID),
		slog.String("actor_id", e.ActorID),
		slog.String("subject_id", e.SubjectID),
	)
	return nil
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
