package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	at := time.Date(2024, 3, 1, 17, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	e := New(JoinRequestAccepted, "team-1", "owner-1", "user-2", at)

	if _, err := uuid.Parse(e.ID); err != nil {
		t.Errorf("expected uuid id, got %q", e.ID)
	}
	if e.Type != JoinRequestAccepted || e.TeamID != "team-1" || e.ActorID != "owner-1" || e.SubjectID != "user-2" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.OccurredAt.Location() != time.UTC || !e.OccurredAt.Equal(at) {
		t.Errorf("expected UTC timestamp equal to input, got %v", e.OccurredAt)
	}

	if New(TeamCreated, "t", "a", "", at).ID == e.ID {
		t.Error("expected distinct ids")
	}
}

func TestEventJSON(t *testing.T) {
	e := New(TeamCreated, "team-1", "owner-1", "", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"type":"team.created"`, `"teamId":"team-1"`, `"actorId":"owner-1"`, `"occurredAt":"2024-03-01T12:00:00Z"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, "subjectId") {
		t.Errorf("empty subject should be omitted: %s", s)
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	p := NewLogPublisher(logger)

	e := New(MemberRemoved, "team-1", "owner-1", "user-3", time.Now())
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decoding log line: %v", err)
	}
	if line["msg"] != "team event" || line["event_type"] != MemberRemoved || line["subject_id"] != "user-3" || line["event_id"] != e.ID {
		t.Errorf("unexpected log line: %v", line)
	}
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	if err := p.Publish(context.Background(), New(TeamDeleted, "t", "a", "", time.Now())); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestSubject(t *testing.T) {
	p := &JetStreamPublisher{cfg: DefaultJetStreamConfig()}
	if got := p.Subject(MemberJoined); got != "sportsbro.teams.team.member_joined" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestJetStreamPublisher(t *testing.T) {
	url := os.Getenv("SPORTSBRO_TEST_NATS_URL")
	if url == "" {
		t.Skip("SPORTSBRO_TEST_NATS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := DefaultJetStreamConfig()
	cfg.URL = url
	cfg.StreamName = "TEST_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	cfg.SubjectPrefix = "test." + strings.ToLower(cfg.StreamName)

	p, err := NewJetStreamPublisher(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer p.Close()
	defer p.js.DeleteStream(context.Background(), cfg.StreamName)

	e := New(JoinRequested, "team-1", "user-2", "", time.Now())
	if err := p.Publish(ctx, e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// Same id is de-duplicated by the stream.
	if err := p.Publish(ctx, e); err != nil {
		t.Fatalf("republish: %v", err)
	}

	stream, err := p.js.Stream(ctx, cfg.StreamName)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		t.Fatalf("stream info: %v", err)
	}
	if info.State.Msgs != 1 {
		t.Errorf("expected 1 message after de-duplication, got %d", info.State.Msgs)
	}
}
