package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
)

func setupMockDB(t *testing.T) (storage.Stores, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return New(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestMergeQuery(t *testing.T) {
	t.Run("partial delta only touches set columns", func(t *testing.T) {
		query, args := mergeQuery("u1", models.ProfileDelta{
			DisplayName: models.Set("Ana"),
			IsAdmin:     models.Set(true),
		})
		assert.Equal(t,
			"INSERT INTO profiles (id, display_name, is_admin) VALUES ($1, $2, $3) ON CONFLICT (id) DO "+
				"UPDATE SET display_name = EXCLUDED.display_name, is_admin = EXCLUDED.is_admin, updated_at = NOW()",
			query)
		assert.Equal(t, []any{"u1", "Ana", true}, args)
	})

	t.Run("empty delta creates the document only", func(t *testing.T) {
		query, args := mergeQuery("u1", models.ProfileDelta{})
		assert.Equal(t, "INSERT INTO profiles (id) VALUES ($1) ON CONFLICT (id) DO NOTHING", query)
		assert.Equal(t, []any{"u1"}, args)
	})
}

func TestProfilesGet(t *testing.T) {
	stores, mock := setupMockDB(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + profileColumns + " FROM profiles WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "age", "weight", "height", "gender", "reps", "avatar_url", "is_admin", "updated_at"}).
			AddRow("u1", "Ana", nil, 61.5, nil, 0, 12, "/a.png", true, now))

	p, err := stores.Profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.Nil(t, p.Age)
	require.NotNil(t, p.Weight)
	assert.Equal(t, 61.5, *p.Weight)
	assert.True(t, p.IsAdmin)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + profileColumns + " FROM profiles WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = stores.Profiles.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesMergeExec(t *testing.T) {
	stores, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles (id, reps) VALUES ($1, $2)")).
		WithArgs("u1", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := stores.Profiles.Merge(context.Background(), "u1", models.ProfileDelta{Reps: models.Set(10)})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesDeleteNotFound(t *testing.T) {
	stores, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM profiles WHERE id = $1")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := stores.Profiles.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionsAppendAndRecent(t *testing.T) {
	stores, mock := setupMockDB(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workout_sessions")).
		WithArgs(sqlmock.AnyArg(), "u1", "bicep_curl", 12, 4.2, 30.0, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	rec, err := stores.Sessions.Append(ctx, models.SessionRecord{
		ProfileID: "u1", Exercise: "bicep_curl", Reps: 12, Calories: 4.2, DurationSec: 30,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, created, rec.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM workout_sessions WHERE profile_id = $1")).
		WithArgs("u1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "profile_id", "exercise", "reps", "calories", "duration_sec", "started_at", "ended_at", "created_at"}).
			AddRow("s2", "u1", "lateral_raise", 8, 2.0, 20.0, nil, nil, created.Add(time.Minute)).
			AddRow("s1", "u1", "bicep_curl", 12, 4.2, 30.0, nil, nil, created))

	recent, err := stores.Sessions.Recent(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "s2", recent[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTipsRecentLimit(t *testing.T) {
	stores, mock := setupMockDB(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tips ORDER BY created_at DESC LIMIT $1")).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "text", "image_url", "created_by", "created_at"}).
			AddRow("t1", "Hydrate", "Drink water", nil, "admin", time.Now()))

	tips, err := stores.Tips.Recent(ctx, 50)
	require.NoError(t, err)
	require.Len(t, tips, 1)
	assert.False(t, tips[0].HasImage())

	mock.ExpectQuery(regexp.QuoteMeta("FROM tips ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "text", "image_url", "created_by", "created_at"}))

	tips, err = stores.Tips.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, tips)
	assert.NoError(t, mock.ExpectationsWereMet())
}
