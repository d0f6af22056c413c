package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/forgeqa/testforge/api/schemas"
)

// ErrTestNotFound indicates that no saved test exists under the given id.
var ErrTestNotFound = errors.New("saved test not found")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store provides the PostgreSQL persistence layer for saved tests.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// SaveTest inserts a new saved test, or replaces the steps and name of an
// existing one when the request carries an id. Timestamps are stored in UTC.
func (s *Store) SaveTest(ctx context.Context, req *schemas.SaveTestRequest) (*schemas.SavedTest, error) {
	steps, err := json.Marshal(req.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode steps: %w", err)
	}
	if len(steps) == 0 || string(steps) == "null" {
		steps = json.RawMessage("[]")
	}

	now := time.Now().UTC()
	test := &schemas.SavedTest{
		ID:        req.ID,
		Name:      req.Name,
		TargetURL: req.TargetURL,
		Steps:     req.Steps,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if test.ID == "" {
		test.ID = uuid.New().String()
	}

	query := `
        INSERT INTO tests (id, name, target_url, steps, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            target_url = EXCLUDED.target_url,
            steps = EXCLUDED.steps,
            updated_at = EXCLUDED.updated_at;
    `
	if _, err := s.pool.Exec(ctx, query, test.ID, test.Name, test.TargetURL, steps, now, now); err != nil {
		return nil, fmt.Errorf("failed to persist test: %w", err)
	}

	s.log.Info("Saved test persisted.", zap.String("test_id", test.ID), zap.String("name", test.Name))
	return test, nil
}

// GetTest fetches a single saved test by id.
func (s *Store) GetTest(ctx context.Context, id string) (*schemas.SavedTest, error) {
	query := `
        SELECT id, name, target_url, steps, created_at, updated_at
        FROM tests
        WHERE id = $1;
    `
	var t schemas.SavedTest
	var steps []byte

	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.TargetURL, &steps, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTestNotFound, id)
		}
		return nil, fmt.Errorf("failed to query test: %w", err)
	}

	if err := json.Unmarshal(steps, &t.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps for test %s: %w", id, err)
	}
	return &t, nil
}

// ListTests returns all saved tests, most recently updated first.
func (s *Store) ListTests(ctx context.Context) ([]schemas.SavedTest, error) {
	query := `
        SELECT id, name, target_url, steps, created_at, updated_at
        FROM tests
        ORDER BY updated_at DESC;
    `
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tests: %w", err)
	}
	defer rows.Close()

	tests := []schemas.SavedTest{}
	for rows.Next() {
		var t schemas.SavedTest
		var steps []byte

		if err := rows.Scan(&t.ID, &t.Name, &t.TargetURL, &steps, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan test row: %w", err)
		}
		if err := json.Unmarshal(steps, &t.Steps); err != nil {
			return nil, fmt.Errorf("failed to decode steps for test %s: %w", t.ID, err)
		}
		tests = append(tests, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return tests, nil
}

// DeleteTest removes a saved test. Deleting an unknown id returns
// ErrTestNotFound.
func (s *Store) DeleteTest(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrTestNotFound, id)
	}
	return nil
}
