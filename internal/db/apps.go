package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/appforge/internal/types"
)

const appColumns = `id, user_id, requirement_id, name, description, color_code, code, status, error_message, metadata, created_at, updated_at`

// CreateApp inserts a new app record and returns the stored record.
func (db *DB) CreateApp(ctx context.Context, app *types.App) (*types.App, error) {
	metadata, err := json.Marshal(app.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO apps (user_id, requirement_id, name, description, color_code, code, status, error_message, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+appColumns,
		app.UserID, app.RequirementID, app.Name, app.Description, app.ColorCode,
		app.Code, app.Status, app.ErrorMessage, metadata,
	)

	created, err := scanApp(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}
	return created, nil
}

// GetApp retrieves an app by ID, scoped to the owning user.
// Returns (nil, nil) when no such row exists for that user.
func (db *DB) GetApp(ctx context.Context, id, userID uuid.UUID) (*types.App, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+appColumns+` FROM apps WHERE id = $1 AND user_id = $2`,
		id, userID,
	)

	app, err := scanApp(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	return app, nil
}

// ListApps retrieves a user's apps, newest first.
func (db *DB) ListApps(ctx context.Context, userID uuid.UUID) ([]types.App, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+appColumns+` FROM apps WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	defer rows.Close()

	return collectApps(rows)
}

// ListAppsByRequirement retrieves the apps generated for one requirement,
// newest first, scoped to the owning user.
func (db *DB) ListAppsByRequirement(ctx context.Context, requirementID, userID uuid.UUID) ([]types.App, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+appColumns+` FROM apps
		 WHERE requirement_id = $1 AND user_id = $2 ORDER BY created_at DESC`,
		requirementID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps for requirement: %w", err)
	}
	defer rows.Close()

	return collectApps(rows)
}

// UpdateApp overwrites an app's mutable fields, scoped to the owning user.
// Returns (nil, nil) when no such row exists for that user.
func (db *DB) UpdateApp(ctx context.Context, app *types.App) (*types.App, error) {
	metadata, err := json.Marshal(app.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`UPDATE apps
		 SET name = $3, description = $4, color_code = $5, code = $6, status = $7, error_message = $8, metadata = $9, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+appColumns,
		app.ID, app.UserID, app.Name, app.Description, app.ColorCode,
		app.Code, app.Status, app.ErrorMessage, metadata,
	)

	updated, err := scanApp(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update app: %w", err)
	}
	return updated, nil
}

// DeleteApp removes an app, scoped to the owning user. Returns false when no
// such row exists for that user.
func (db *DB) DeleteApp(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM apps WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete app: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func collectApps(rows pgx.Rows) ([]types.App, error) {
	var apps []types.App
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan app: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, nil
}

func scanApp(row rowScanner) (*types.App, error) {
	var app types.App
	var metadata []byte

	err := row.Scan(&app.ID, &app.UserID, &app.RequirementID, &app.Name, &app.Description,
		&app.ColorCode, &app.Code, &app.Status, &app.ErrorMessage, &metadata,
		&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &app.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &app, nil
}
