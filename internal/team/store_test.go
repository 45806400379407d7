package team

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// runStoreContract exercises the behavior every Store must share.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newTeam := func(name, sport string, at time.Time) *Team {
		owner := uuid.NewString()
		return &Team{
			ID:             uuid.NewString(),
			Name:           name,
			Sport:          sport,
			City:           "Pune",
			State:          "Maharashtra",
			SkillLevel:     SkillBeginner,
			Description:    "Weekend games for " + name,
			ContactDetails: "hello@example.com",
			MaxSize:        3,
			Members:        []string{owner},
			JoinRequests:   []string{},
			CreatedBy:      owner,
			IsPublic:       true,
			CreatedAt:      at,
			UpdatedAt:      at,
		}
	}

	older := newTeam("Alpha Kickers", "Football", base)
	newer := newTeam("Beta Smashers", "Badminton", base.Add(time.Hour))
	for _, tm := range []*Team{older, newer} {
		if err := store.Create(ctx, tm); err != nil {
			t.Fatalf("create %s: %v", tm.Name, err)
		}
		if tm.Version != 1 {
			t.Fatalf("expected version 1 after create, got %d", tm.Version)
		}
	}

	got, err := store.GetByID(ctx, older.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != older.Name || got.CreatedBy != older.CreatedBy || len(got.Members) != 1 {
		t.Errorf("unexpected team: %+v", got)
	}
	if _, err := store.GetByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Conditional replace.
	got.JoinRequests = append(got.JoinRequests, "requester")
	if err := store.Replace(ctx, got, 1); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("expected version 2, got %d", got.Version)
	}
	stale := older.Clone()
	stale.Name = "Stale write"
	if err := store.Replace(ctx, stale, 1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for stale write, got %v", err)
	}
	reread, _ := store.GetByID(ctx, older.ID)
	if reread.Name != older.Name || len(reread.JoinRequests) != 1 {
		t.Errorf("stale write leaked: %+v", reread)
	}
	missing := newTeam("Ghost", "Chess", base)
	if err := store.Replace(ctx, missing, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound replacing missing team, got %v", err)
	}

	// Listing.
	list, err := store.List(ctx, Filter{Search: "kickers"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !containsID(list, older.ID) || containsID(list, newer.ID) {
		t.Errorf("search filter returned wrong teams")
	}
	list, _ = store.List(ctx, Filter{Sport: "badminton"})
	if !containsID(list, newer.ID) || containsID(list, older.ID) {
		t.Errorf("sport filter returned wrong teams")
	}
	list, _ = store.List(ctx, Filter{MemberID: newer.CreatedBy})
	if len(list) != 1 || list[0].ID != newer.ID {
		t.Errorf("member filter returned wrong teams")
	}
	list, _ = store.List(ctx, Filter{City: "pune", State: "MAHARASHTRA"})
	if i, j := indexOf(list, newer.ID), indexOf(list, older.ID); i < 0 || j < 0 || i > j {
		t.Errorf("expected newest first, got positions %d and %d", i, j)
	}

	// Delete.
	if err := store.Delete(ctx, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, older.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
	if err := store.Delete(ctx, newer.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func containsID(teams []*Team, id string) bool {
	return indexOf(teams, id) >= 0
}

func indexOf(teams []*Team, id string) int {
	for i, t := range teams {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	tm := &Team{ID: "a", CreatedBy: u1, Members: []string{u1}, MaxSize: 2}
	if err := s.Create(ctx, tm); err != nil {
		t.Fatalf("create: %v", err)
	}
	tm.Members[0] = "mutated"

	got, _ := s.GetByID(ctx, "a")
	got.Members = append(got.Members, u2)

	again, _ := s.GetByID(ctx, "a")
	if len(again.Members) != 1 || again.Members[0] != u1 {
		t.Errorf("store state was mutated through a returned pointer: %v", again.Members)
	}
}

func TestPGStore(t *testing.T) {
	dsn := os.Getenv("SPORTSBRO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SPORTSBRO_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer pool.Close()

	// Migrations must have been applied to the target database.
	runStoreContract(t, NewPGStore(pool))
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("SPORTSBRO_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SPORTSBRO_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database("sportsbro_test_" + uuid.NewString()[:8])
	defer db.Drop(ctx)

	store := NewMongoStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensuring indexes: %v", err)
	}
	runStoreContract(t, store)
}
