// Package postgres implements the document stores on PostgreSQL via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
)

var (
	_ storage.ProfileStore       = (*Profiles)(nil)
	_ storage.SessionRecordStore = (*Sessions)(nil)
	_ storage.TipStore           = (*Tips)(nil)
	_ storage.AuditStore         = (*Audit)(nil)
)

// Schema creates every table the stores need. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		age DOUBLE PRECISION,
		weight DOUBLE PRECISION,
		height DOUBLE PRECISION,
		gender INTEGER NOT NULL DEFAULT 1,
		reps INTEGER NOT NULL DEFAULT 0,
		avatar_url TEXT NOT NULL DEFAULT '/static/default-avatar.svg',
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS workout_sessions (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		exercise TEXT NOT NULL DEFAULT '',
		reps INTEGER NOT NULL DEFAULT 0,
		calories DOUBLE PRECISION NOT NULL DEFAULT 0,
		duration_sec DOUBLE PRECISION NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ,
		ended_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	);`,
	`CREATE INDEX IF NOT EXISTS workout_sessions_profile_created_idx ON workout_sessions (profile_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS tips (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		image_url TEXT,
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	);`,
	`CREATE INDEX IF NOT EXISTS tips_created_idx ON tips (created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id BIGSERIAL PRIMARY KEY,
		type TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		target_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL DEFAULT '',
		at TIMESTAMPTZ NOT NULL
	);`,
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// New returns every store backed by db.
func New(db *sqlx.DB) storage.Stores {
	return storage.Stores{
		Profiles: &Profiles{db: db},
		Sessions: &Sessions{db: db},
		Tips:     &Tips{db: db},
		Audit:    &Audit{db: db},
	}
}

const profileColumns = "id, display_name, age, weight, height, gender, reps, avatar_url, is_admin, updated_at"

// Profiles is the profiles table.
type Profiles struct {
	db *sqlx.DB
}

func (s *Profiles) Get(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	err := s.db.GetContext(ctx, &p, "SELECT "+profileColumns+" FROM profiles WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Merge upserts the profile, touching only the columns set in delta.
func (s *Profiles) Merge(ctx context.Context, id string, delta models.ProfileDelta) error {
	query, args := mergeQuery(id, delta)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("merge profile: %w", err)
	}
	return nil
}

func mergeQuery(id string, delta models.ProfileDelta) (string, []any) {
	cols := []string{"id"}
	args := []any{id}
	add := func(set bool, col string, v any) {
		if set {
			cols = append(cols, col)
			args = append(args, v)
		}
	}
	add(delta.DisplayName.Set, "display_name", delta.DisplayName.Value)
	add(delta.Age.Set, "age", delta.Age.Value)
	add(delta.Weight.Set, "weight", delta.Weight.Value)
	add(delta.Height.Set, "height", delta.Height.Value)
	add(delta.Gender.Set, "gender", delta.Gender.Value)
	add(delta.Reps.Set, "reps", delta.Reps.Value)
	add(delta.AvatarURL.Set, "avatar_url", delta.AvatarURL.Value)
	add(delta.IsAdmin.Set, "is_admin", delta.IsAdmin.Value)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO profiles (%s) VALUES (%s) ON CONFLICT (id) DO ",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if len(cols) == 1 {
		return query + "NOTHING", args
	}
	sets := make([]string, 0, len(cols))
	for _, c := range cols[1:] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	sets = append(sets, "updated_at = NOW()")
	return query + "UPDATE SET " + strings.Join(sets, ", "), args
}

func (s *Profiles) Put(ctx context.Context, p models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, display_name, age, weight, height, gender, reps, avatar_url, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name, age = EXCLUDED.age, weight = EXCLUDED.weight,
			height = EXCLUDED.height, gender = EXCLUDED.gender, reps = EXCLUDED.reps,
			avatar_url = EXCLUDED.avatar_url, is_admin = EXCLUDED.is_admin, updated_at = NOW()`,
		p.ID, p.DisplayName, p.Age, p.Weight, p.Height, p.Gender, p.Reps, p.AvatarURL, p.IsAdmin,
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (s *Profiles) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return expectRow(res)
}

func (s *Profiles) List(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	if err := s.db.SelectContext(ctx, &out, "SELECT "+profileColumns+" FROM profiles ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

// Sessions is the workout_sessions table.
type Sessions struct {
	db *sqlx.DB
}

func (s *Sessions) Append(ctx context.Context, rec models.SessionRecord) (models.SessionRecord, error) {
	rec.ID = uuid.NewString()
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO workout_sessions (id, profile_id, exercise, reps, calories, duration_sec, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		rec.ID, rec.ProfileID, rec.Exercise, rec.Reps, rec.Calories, rec.DurationSec, rec.StartedAt, rec.EndedAt,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return models.SessionRecord{}, fmt.Errorf("append session: %w", err)
	}
	return rec, nil
}

func (s *Sessions) Recent(ctx context.Context, profileID string, max int) ([]models.SessionRecord, error) {
	var out []models.SessionRecord
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, profile_id, exercise, reps, calories, duration_sec, started_at, ended_at, created_at
		FROM workout_sessions WHERE profile_id = $1
		ORDER BY created_at DESC LIMIT $2`, profileID, max)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	return out, nil
}

// Tips is the tips table.
type Tips struct {
	db *sqlx.DB
}

func (s *Tips) Create(ctx context.Context, tip models.Tip) (models.Tip, error) {
	tip.ID = uuid.NewString()
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO tips (id, title, text, image_url, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		tip.ID, tip.Title, tip.Text, tip.ImageURL, tip.CreatedBy,
	).Scan(&tip.CreatedAt)
	if err != nil {
		return models.Tip{}, fmt.Errorf("create tip: %w", err)
	}
	return tip, nil
}

func (s *Tips) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tips WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete tip: %w", err)
	}
	return expectRow(res)
}

func (s *Tips) Recent(ctx context.Context, limit int) ([]models.Tip, error) {
	query := "SELECT id, title, text, image_url, created_by, created_at FROM tips ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	var out []models.Tip
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("recent tips: %w", err)
	}
	return out, nil
}

// Audit is the audit_events table.
type Audit struct {
	db *sqlx.DB
}

func (s *Audit) Record(ctx context.Context, ev models.Event) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_events (type, actor_id, target_id, session_id, at) VALUES ($1, $2, $3, $4, $5)",
		ev.Type, ev.ActorID, ev.TargetID, ev.SessionID, ev.At,
	)
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
