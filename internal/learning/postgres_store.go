package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hitchpath/hitchpath/internal/user"
)

// PostgresStore keeps the learning document in columns of the users row.
// Toggles and appends are single statements so concurrent requests for the
// same user cannot lose updates.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL learning store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Document loads the user's learning document.
func (s *PostgresStore) Document(ctx context.Context, userID string) (*Document, error) {
	query := `
		SELECT main_path, specific_paths, completed_step_ids, saved_resource_ids, path_progress
		FROM users
		WHERE id = $1
	`
	var (
		mainPath, specific, progress []byte
		d                            Document
	)
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&mainPath, &specific, &d.CompletedStepIDs, &d.SavedResourceIDs, &progress,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("loading learning document: %w", err)
	}

	if len(mainPath) > 0 {
		d.MainPath = &MainPath{}
		if err := json.Unmarshal(mainPath, d.MainPath); err != nil {
			return nil, fmt.Errorf("decoding main path: %w", err)
		}
	}
	if err := json.Unmarshal(specific, &d.SpecificPaths); err != nil {
		return nil, fmt.Errorf("decoding specific paths: %w", err)
	}
	if err := json.Unmarshal(progress, &d.PathProgress); err != nil {
		return nil, fmt.Errorf("decoding path progress: %w", err)
	}
	if d.PathProgress == nil {
		d.PathProgress = map[string]PathProgress{}
	}
	return &d, nil
}

// SetMainPathIfAbsent writes p only while main_path is NULL.
func (s *PostgresStore) SetMainPathIfAbsent(ctx context.Context, userID string, p *MainPath) (*MainPath, bool, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, false, fmt.Errorf("encoding main path: %w", err)
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE users SET main_path = $2, updated_at = NOW()
		WHERE id = $1 AND main_path IS NULL
	`, userID, payload)
	if err != nil {
		return nil, false, fmt.Errorf("storing main path: %w", err)
	}
	if result.RowsAffected() == 1 {
		return p, true, nil
	}

	// Either the user is unknown or another writer got there first.
	d, err := s.Document(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if d.MainPath == nil {
		return nil, false, fmt.Errorf("main path for %s vanished during write", userID)
	}
	return d.MainPath, false, nil
}

// ClearMainPath sets main_path to NULL.
func (s *PostgresStore) ClearMainPath(ctx context.Context, userID string) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE users SET main_path = NULL, updated_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clearing main path: %w", err)
	}
	if result.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// AppendNamedPath appends p and numbers it after the existing entries.
func (s *PostgresStore) AppendNamedPath(ctx context.Context, userID string, p NamedPath) (NamedPath, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return NamedPath{}, fmt.Errorf("encoding named path: %w", err)
	}

	query := `
		UPDATE users SET
			specific_paths = specific_paths || jsonb_build_array(
				jsonb_set($2::jsonb, '{ordinal}', to_jsonb(jsonb_array_length(specific_paths) + 1))
			),
			updated_at = NOW()
		WHERE id = $1
		RETURNING jsonb_array_length(specific_paths)
	`
	var ordinal int
	if err := s.pool.QueryRow(ctx, query, userID, payload).Scan(&ordinal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return NamedPath{}, user.ErrUserNotFound
		}
		return NamedPath{}, fmt.Errorf("appending named path: %w", err)
	}
	p.Ordinal = ordinal
	return p, nil
}

const returningProgress = `RETURNING completed_step_ids, saved_resource_ids, path_progress`

// The per-path entry is rebuilt with || because jsonb_set cannot create a
// missing parent key.
const (
	addStep = `
		UPDATE users SET
			completed_step_ids = CASE
				WHEN $2 = ANY(completed_step_ids) THEN completed_step_ids
				ELSE array_append(completed_step_ids, $2)
			END,
			path_progress = CASE
				WHEN $3 = '' THEN path_progress
				WHEN COALESCE(path_progress->$3->'completedSteps', '[]'::jsonb) ? $4 THEN path_progress
				ELSE path_progress || jsonb_build_object($3::text, jsonb_build_object('completedSteps',
					COALESCE(path_progress->$3->'completedSteps', '[]'::jsonb) || jsonb_build_array($4::text)))
			END,
			updated_at = NOW()
		WHERE id = $1
	` + returningProgress

	removeStep = `
		UPDATE users SET
			completed_step_ids = array_remove(completed_step_ids, $2),
			path_progress = CASE
				WHEN $3 = '' OR NOT path_progress ? $3 THEN path_progress
				ELSE path_progress || jsonb_build_object($3::text, jsonb_build_object('completedSteps',
					COALESCE(path_progress->$3->'completedSteps', '[]'::jsonb) - $4::text))
			END,
			updated_at = NOW()
		WHERE id = $1
	` + returningProgress
)

// SetStepCompleted toggles a step in one statement.
func (s *PostgresStore) SetStepCompleted(ctx context.Context, userID string, mark StepMark) (Progress, error) {
	query := removeStep
	if mark.Completed {
		query = addStep
	}

	var (
		p   Progress
		raw []byte
	)
	err := s.pool.QueryRow(ctx, query, userID, mark.StepID.String(), mark.PathID, mark.pathStepID()).
		Scan(&p.CompletedSteps, &p.SavedResources, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Progress{}, user.ErrUserNotFound
		}
		return Progress{}, fmt.Errorf("updating step completion: %w", err)
	}
	if err := json.Unmarshal(raw, &p.PathProgress); err != nil {
		return Progress{}, fmt.Errorf("decoding path progress: %w", err)
	}
	p.CompletedSteps = nonNil(p.CompletedSteps)
	p.SavedResources = nonNil(p.SavedResources)
	p.PathProgress = nonNilMap(p.PathProgress)
	return p, nil
}

// SetResourceSaved toggles a bookmark in one statement.
func (s *PostgresStore) SetResourceSaved(ctx context.Context, userID, resourceID string, saved bool) ([]string, error) {
	query := `
		UPDATE users SET saved_resource_ids = array_remove(saved_resource_ids, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING saved_resource_ids
	`
	if saved {
		query = `
			UPDATE users SET
				saved_resource_ids = CASE
					WHEN $2 = ANY(saved_resource_ids) THEN saved_resource_ids
					ELSE array_append(saved_resource_ids, $2)
				END,
				updated_at = NOW()
			WHERE id = $1
			RETURNING saved_resource_ids
		`
	}

	var ids []string
	if err := s.pool.QueryRow(ctx, query, userID, resourceID).Scan(&ids); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("updating saved resources: %w", err)
	}
	return nonNil(ids), nil
}

var _ Store = (*PostgresStore)(nil)
