package user

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sportsbro/sportsbro/internal/auth"
)

func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	email := "Asha." + uuid.NewString()[:8] + "@Example.com"

	u, err := store.Create(ctx, CreateUserInput{Email: email, Password: "hunter22", Name: " Asha "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Name != "Asha" {
		t.Errorf("expected trimmed name, got %q", u.Name)
	}
	if u.PasswordHash == "" || u.PasswordHash == "hunter22" {
		t.Error("expected bcrypt hash to be stored")
	}
	if !CheckPassword(u, "hunter22") || CheckPassword(u, "wrong") {
		t.Error("password check mismatch")
	}

	if _, err := store.Create(ctx, CreateUserInput{Email: email, Password: "x"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	byEmail, err := store.GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("expected %s, got %s", u.ID, byEmail.ID)
	}
	if _, err := store.GetByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	many, err := store.GetMany(ctx, []string{u.ID, uuid.NewString()})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(many) != 1 || many[0].ID != u.ID {
		t.Errorf("expected only the existing user, got %+v", many)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestCreateRejectsBadInput(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.Create(ctx, CreateUserInput{Email: "no-at-sign", Password: "x"}); err == nil {
		t.Error("expected error for invalid email")
	}
	if _, err := s.Create(ctx, CreateUserInput{Email: "a@example.com"}); err == nil {
		t.Error("expected error for missing password")
	}
}

func TestProfileAdapter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	u, _ := s.Create(ctx, CreateUserInput{Email: "ravi@example.com", Password: "pw", Name: "Ravi", Photo: "https://img.example.com/r.png"})
	a := NewProfileAdapter(s)

	profiles, err := a.Profiles(ctx, []string{u.ID, "ghost"})
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	p, ok := profiles[u.ID]
	if !ok || p.Name != "Ravi" || p.Email != "ravi@example.com" || p.Photo == "" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if _, ok := profiles["ghost"]; ok {
		t.Error("unknown id should be absent")
	}

	if ok, err := a.Exists(ctx, u.ID); !ok || err != nil {
		t.Errorf("expected user to exist, got %v %v", ok, err)
	}
	if ok, err := a.Exists(ctx, "ghost"); ok || err != nil {
		t.Errorf("expected ghost to be missing, got %v %v", ok, err)
	}
}

func TestAuthAdapter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	u, _ := s.Create(ctx, CreateUserInput{Email: "asha@example.com", Password: "pw", Name: "Asha"})

	got, err := NewAuthAdapter(s).LookupUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != u.ID || got.Email != "asha@example.com" || got.Name != "Asha" {
		t.Errorf("unexpected auth user: %+v", got)
	}
	_, err = NewAuthAdapter(s).LookupUser(ctx, "ghost")
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, auth.ErrUnknownUser) {
		t.Errorf("expected ErrNotFound wrapped as auth.ErrUnknownUser, got %v", err)
	}
}

func TestPGStore(t *testing.T) {
	dsn := os.Getenv("SPORTSBRO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SPORTSBRO_TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer pool.Close()
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
