package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sportsbro/sportsbro/internal/auth"
	"github.com/sportsbro/sportsbro/internal/config"
	"github.com/sportsbro/sportsbro/internal/team"
	"github.com/sportsbro/sportsbro/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo users and a demo team",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoUsers = []user.CreateUserInput{
	{Email: "asha@sportsbro.dev", Password: "asha-demo-pass", Name: "Asha Kulkarni"},
	{Email: "ravi@sportsbro.dev", Password: "ravi-demo-pass", Name: "Ravi Menon"},
	{Email: "meera@sportsbro.dev", Password: "meera-demo-pass", Name: "Meera Iyer"},
}

var demoTeam = team.CreateTeamInput{
	Name:           "Sunday Strikers",
	Sport:          "Football",
	City:           "Pune",
	State:          "Maharashtra",
	District:       "Kothrud",
	SkillLevel:     "Intermediate",
	Description:    "Casual five-a-side every Sunday at 7am. All welcome, bring water.",
	ContactDetails: "asha@sportsbro.dev",
	MaxSize:        8,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("the memory driver is seeded by serve on startup; use postgres or mongo")
	}

	ctx := context.Background()
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, nil)
	svc := team.NewService(team.ServiceDeps{
		Store: be.teams,
		Users: user.NewProfileAdapter(be.users),
	})
	return seedDemo(ctx, cmd.OutOrStdout(), cfg.Server.Port, be.users, svc, tokens)
}

// seedDemo creates the demo users, a demo team owned by the first of them and
// one pending join request. It does nothing if the demo users already exist.
func seedDemo(ctx context.Context, w io.Writer, port int, users user.Store, svc *team.Service, tokens *auth.TokenService) error {
	if _, err := users.GetByEmail(ctx, demoUsers[0].Email); err == nil {
		slog.Info("demo data already exists, skipping seed")
		return nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("checking existing users: %w", err)
	}

	created := make([]*user.User, 0, len(demoUsers))
	fmt.Fprintf(w, "\n=== Demo Data Seeded ===\n")
	for _, in := range demoUsers {
		u, err := users.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("creating user %q: %w", in.Email, err)
		}
		token, _, err := tokens.Issue(&auth.User{ID: u.ID, Email: u.Email, Name: u.Name})
		if err != nil {
			return fmt.Errorf("issuing token: %w", err)
		}
		slog.Info("created user", "id", u.ID, "email", u.Email)
		fmt.Fprintf(w, "User:      %s <%s> password=%s\n", u.Name, u.Email, in.Password)
		fmt.Fprintf(w, "Token:     %s\n", token)
		created = append(created, u)
	}

	owner := created[0]
	t, err := svc.Create(ctx, owner.ID, demoTeam)
	if err != nil {
		return fmt.Errorf("creating demo team: %w", err)
	}
	if _, err := svc.RequestToJoin(ctx, t.ID, created[1].ID); err != nil {
		return fmt.Errorf("filing demo join request: %w", err)
	}
	slog.Info("created demo team", "id", t.ID, "name", t.Name)

	fmt.Fprintf(w, "Team:      %s (%s), owner %s, pending request from %s\n", t.Name, t.ID, owner.Name, created[1].Name)
	fmt.Fprintf(w, "\nTry it:\n")
	fmt.Fprintf(w, "  curl http://localhost:%d/api/teams?sport=football\n", port)
	fmt.Fprintf(w, "  curl -X POST -H 'Authorization: Bearer <asha token>' http://localhost:%d/api/teams/%s/accept/%s\n",
		port, t.ID, created[1].ID)

	return nil
}
