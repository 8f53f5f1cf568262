package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/appforge/internal/types"
)

const requirementColumns = `id, user_id, title, prompt, color_code, extraction, status, metadata, created_at, updated_at`

// CreateRequirement inserts a new requirement and returns the stored record.
func (db *DB) CreateRequirement(ctx context.Context, req *types.Requirement) (*types.Requirement, error) {
	extraction, err := json.Marshal(req.Extraction)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction: %w", err)
	}
	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO requirements (user_id, title, prompt, color_code, extraction, status, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+requirementColumns,
		req.UserID, req.Title, req.Prompt, req.ColorCode, extraction, req.Status, metadata,
	)

	created, err := scanRequirement(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create requirement: %w", err)
	}
	return created, nil
}

// GetRequirement retrieves a requirement by ID, scoped to the owning user.
// Returns (nil, nil) when no such row exists for that user.
func (db *DB) GetRequirement(ctx context.Context, id, userID uuid.UUID) (*types.Requirement, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+requirementColumns+` FROM requirements WHERE id = $1 AND user_id = $2`,
		id, userID,
	)

	req, err := scanRequirement(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get requirement: %w", err)
	}
	return req, nil
}

// ListRequirements retrieves a user's requirements, newest first.
func (db *DB) ListRequirements(ctx context.Context, userID uuid.UUID, limit, offset int) ([]types.Requirement, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+requirementColumns+` FROM requirements
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	defer rows.Close()

	var reqs []types.Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		reqs = append(reqs, *req)
	}
	return reqs, nil
}

// CountRequirements returns the number of requirements a user owns.
func (db *DB) CountRequirements(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM requirements WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count requirements: %w", err)
	}
	return count, nil
}

// UpdateRequirement overwrites a requirement's mutable fields, scoped to the
// owning user. Returns (nil, nil) when no such row exists for that user.
func (db *DB) UpdateRequirement(ctx context.Context, req *types.Requirement) (*types.Requirement, error) {
	extraction, err := json.Marshal(req.Extraction)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction: %w", err)
	}
	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`UPDATE requirements
		 SET title = $3, prompt = $4, color_code = $5, extraction = $6, status = $7, metadata = $8, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+requirementColumns,
		req.ID, req.UserID, req.Title, req.Prompt, req.ColorCode, extraction, req.Status, metadata,
	)

	updated, err := scanRequirement(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update requirement: %w", err)
	}
	return updated, nil
}

// UpdateRequirementStatus sets only the status field. The update is
// idempotent: setting an already-set status is a no-op with the same result.
func (db *DB) UpdateRequirementStatus(ctx context.Context, id uuid.UUID, status types.RequirementStatus) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE requirements SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update requirement status: %w", err)
	}
	return nil
}

// DeleteRequirement removes a requirement and its apps (via cascade), scoped
// to the owning user. Returns false when no such row exists for that user.
func (db *DB) DeleteRequirement(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM requirements WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete requirement: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequirement(row rowScanner) (*types.Requirement, error) {
	var req types.Requirement
	var extraction, metadata []byte

	err := row.Scan(&req.ID, &req.UserID, &req.Title, &req.Prompt, &req.ColorCode,
		&extraction, &req.Status, &metadata, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(extraction) > 0 {
		if err := json.Unmarshal(extraction, &req.Extraction); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extraction: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &req.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &req, nil
}
