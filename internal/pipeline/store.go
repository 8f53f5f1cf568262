package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/appforge/internal/types"
)

// Store is the persistence surface the pipeline needs. *db.DB satisfies it;
// tests substitute an in-memory fake.
type Store interface {
	GetRequirement(ctx context.Context, id, userID uuid.UUID) (*types.Requirement, error)
	UpdateRequirementStatus(ctx context.Context, id uuid.UUID, status types.RequirementStatus) error
	CreateApp(ctx context.Context, app *types.App) (*types.App, error)
	GetApp(ctx context.Context, id, userID uuid.UUID) (*types.App, error)
	UpdateApp(ctx context.Context, app *types.App) (*types.App, error)
}
