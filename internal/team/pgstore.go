package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is a Store backed by PostgreSQL. Membership lists live in text[]
// columns so each team is a single row and a single conditional UPDATE.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a new PGStore backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// teamColumns is the full list of columns used in SELECT statements.
const teamColumns = `id, name, sport, city, state, district, skill_level,
	description, contact_details, image_url, max_size, members, join_requests,
	created_by, is_public, version, created_at, updated_at`

func scanTeam(row pgx.Row) (*Team, error) {
	var t Team
	var skill string
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Sport,
		&t.City,
		&t.State,
		&t.District,
		&skill,
		&t.Description,
		&t.ContactDetails,
		&t.ImageURL,
		&t.MaxSize,
		&t.Members,
		&t.JoinRequests,
		&t.CreatedBy,
		&t.IsPublic,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.SkillLevel = SkillLevel(skill)
	if t.Members == nil {
		t.Members = []string{}
	}
	if t.JoinRequests == nil {
		t.JoinRequests = []string{}
	}
	return &t, nil
}

func (s *PGStore) Create(ctx context.Context, t *Team) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO teams
		 (id, name, sport, city, state, district, skill_level, description,
		  contact_details, image_url, max_size, members, join_requests,
		  created_by, is_public, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16, $17)
		 RETURNING version`,
		t.ID, t.Name, t.Sport, t.City, t.State, t.District, string(t.SkillLevel),
		t.Description, t.ContactDetails, t.ImageURL, t.MaxSize, t.Members,
		t.JoinRequests, t.CreatedBy, t.IsPublic, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrVersionConflict
		}
		return fmt.Errorf("creating team: %w", err)
	}
	return nil
}

func (s *PGStore) GetByID(ctx context.Context, id string) (*Team, error) {
	query := fmt.Sprintf(`SELECT %s FROM teams WHERE id = $1`, teamColumns)
	t, err := scanTeam(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return t, nil
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]*Team, error) {
	var where []string
	var args []any
	argIdx := 1

	exact := []struct {
		column string
		value  string
	}{
		{"sport", f.Sport},
		{"city", f.City},
		{"state", f.State},
		{"district", f.District},
		{"skill_level", f.SkillLevel},
	}
	for _, e := range exact {
		v := strings.TrimSpace(e.value)
		if v == "" {
			continue
		}
		where = append(where, fmt.Sprintf("lower(%s) = lower($%d)", e.column, argIdx))
		args = append(args, v)
		argIdx++
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, fmt.Sprintf(
			"(strpos(lower(name), lower($%d)) > 0 OR strpos(lower(description), lower($%d)) > 0)",
			argIdx, argIdx))
		args = append(args, q)
		argIdx++
	}
	if f.MemberID != "" {
		where = append(where, fmt.Sprintf("$%d = ANY(members)", argIdx))
		args = append(args, f.MemberID)
		argIdx++
	}

	query := fmt.Sprintf(`SELECT %s FROM teams`, teamColumns)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	teams := []*Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team rows: %w", err)
	}
	return teams, nil
}

func (s *PGStore) Replace(ctx context.Context, t *Team, expectedVersion int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE teams SET
		   name = $3, sport = $4, city = $5, state = $6, district = $7,
		   skill_level = $8, description = $9, contact_details = $10,
		   image_url = $11, max_size = $12, members = $13, join_requests = $14,
		   is_public = $15, updated_at = $16, version = version + 1
		 WHERE id = $1 AND version = $2`,
		t.ID, expectedVersion,
		t.Name, t.Sport, t.City, t.State, t.District, string(t.SkillLevel),
		t.Description, t.ContactDetails, t.ImageURL, t.MaxSize, t.Members,
		t.JoinRequests, t.IsPublic, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("replacing team: %w", err)
	}
	if tag.RowsAffected() == 1 {
		t.Version = expectedVersion + 1
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, t.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("checking team: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
