package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgeqa/testforge/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

// ArgumentMatcherFunc is a helper to create inline mock matchers.
type ArgumentMatcherFunc func(interface{}) bool

func (f ArgumentMatcherFunc) Match(v interface{}) bool {
	return f(v)
}

// anyTime is a matcher that accepts any value (used for timestamps we can't predict exactly)
var anyTime = ArgumentMatcherFunc(func(v interface{}) bool {
	return true
})

const sqlUpsertTest = `
        INSERT INTO tests (id, name, target_url, steps, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            target_url = EXCLUDED.target_url,
            steps = EXCLUDED.steps,
            updated_at = EXCLUDED.updated_at;
    `

func sampleSteps() []schemas.ActionRequest {
	return []schemas.ActionRequest{
		{Action: schemas.ActionType, Selector: "#username", Value: "standard_user"},
		{Action: schemas.ActionClick, Selector: "#login-button"},
		{Action: schemas.ActionVerifyText, Selector: ".title", Value: "Products"},
	}
}

func TestNewStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func newTestStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing()
	st, err := New(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return st, mockPool
}

func TestSaveTest(t *testing.T) {
	t.Run("should insert a new test with a generated id", func(t *testing.T) {
		st, mockPool := newTestStore(t)

		steps := sampleSteps()
		stepsJSON, err := json.Marshal(steps)
		require.NoError(t, err)

		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertTest)).
			WithArgs(pgxmock.AnyArg(), "Login flow", "https://shop.test/login", stepsJSON, anyTime, anyTime).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		saved, err := st.SaveTest(context.Background(), &schemas.SaveTestRequest{
			Name:      "Login flow",
			TargetURL: "https://shop.test/login",
			Steps:     steps,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		_, err = uuid.Parse(saved.ID)
		assert.NoError(t, err, "generated id should be a uuid")
		assert.Equal(t, steps, saved.Steps)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should keep the caller's id on replace", func(t *testing.T) {
		st, mockPool := newTestStore(t)

		id := uuid.New().String()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertTest)).
			WithArgs(id, "Renamed", "https://shop.test/", pgxmock.AnyArg(), anyTime, anyTime).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		saved, err := st.SaveTest(context.Background(), &schemas.SaveTestRequest{
			ID:        id,
			Name:      "Renamed",
			TargetURL: "https://shop.test/",
			Steps:     sampleSteps(),
		})
		require.NoError(t, err)
		assert.Equal(t, id, saved.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should store an empty step list as an empty array", func(t *testing.T) {
		st, mockPool := newTestStore(t)

		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertTest)).
			WithArgs(pgxmock.AnyArg(), "Empty", "https://shop.test/", json.RawMessage("[]"), anyTime, anyTime).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		_, err := st.SaveTest(context.Background(), &schemas.SaveTestRequest{
			Name:      "Empty",
			TargetURL: "https://shop.test/",
		})
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetTest(t *testing.T) {
	t.Run("should fetch and decode a saved test", func(t *testing.T) {
		st, mockPool := newTestStore(t)

		id := uuid.New().String()
		now := time.Now().UTC()
		stepsJSON, err := json.Marshal(sampleSteps())
		require.NoError(t, err)

		rows := pgxmock.NewRows([]string{"id", "name", "target_url", "steps", "created_at", "updated_at"}).
			AddRow(id, "Login flow", "https://shop.test/login", stepsJSON, now, now)

		mockPool.ExpectQuery(`SELECT id, name, target_url, steps, created_at, updated_at`).
			WithArgs(id).
			WillReturnRows(rows)

		test, err := st.GetTest(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Login flow", test.Name)
		assert.Equal(t, sampleSteps(), test.Steps)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should map no rows to ErrTestNotFound", func(t *testing.T) {
		st, mockPool := newTestStore(t)

		mockPool.ExpectQuery(`SELECT id, name, target_url, steps, created_at, updated_at`).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := st.GetTest(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrTestNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestListTests(t *testing.T) {
	t.Run("should return all tests most recently updated first", func(t *testing.T) {
		st, mockPool := newTestStore(t)

		now := time.Now().UTC()
		stepsJSON, err := json.Marshal(sampleSteps())
		require.NoError(t, err)

		rows := pgxmock.NewRows([]string{"id", "name", "target_url", "steps", "created_at", "updated_at"}).
			AddRow(uuid.New().String(), "Newest", "https://a.test/", stepsJSON, now, now).
			AddRow(uuid.New().String(), "Oldest", "https://b.test/", []byte("[]"), now.Add(-time.Hour), now.Add(-time.Hour))

		mockPool.ExpectQuery(`SELECT id, name, target_url, steps, created_at, updated_at`).
			WillReturnRows(rows)

		tests, err := st.ListTests(context.Background())
		require.NoError(t, err)
		require.Len(t, tests, 2)
		assert.Equal(t, "Newest", tests[0].Name)
		assert.Empty(t, tests[1].Steps)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should return an empty slice when no tests exist", func(t *testing.T) {
		st, mockPool := newTestStore(t)

		rows := pgxmock.NewRows([]string{"id", "name", "target_url", "steps", "created_at", "updated_at"})
		mockPool.ExpectQuery(`SELECT id, name, target_url, steps, created_at, updated_at`).
			WillReturnRows(rows)

		tests, err := st.ListTests(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, tests)
		assert.Empty(t, tests)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestDeleteTest(t *testing.T) {
	t.Run("should delete an existing test", func(t *testing.T) {
		st, mockPool := newTestStore(t)

		id := uuid.New().String()
		mockPool.ExpectExec(`DELETE FROM tests WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, st.DeleteTest(context.Background(), id))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should report ErrTestNotFound for unknown ids", func(t *testing.T) {
		st, mockPool := newTestStore(t)

		mockPool.ExpectExec(`DELETE FROM tests WHERE id = \$1`).
			WithArgs("missing").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := st.DeleteTest(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrTestNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
