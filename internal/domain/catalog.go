package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a dashboard or block does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidGeometry is returned when a geometry breaks the grid contract
	// (negative position or below the minimum block size).
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidBlock is returned when a block body cannot be decoded.
	ErrInvalidBlock = errors.New("invalid block")
)

// Catalog is the system of record for dashboards and their blocks.
// The layout engine only reaches it at gesture boundaries.
type Catalog interface {
	ListDashboards(ctx context.Context) ([]DashboardSummary, error)
	FetchDashboard(ctx context.Context, dashboardID string) (*Dashboard, error)
	CreateBlock(ctx context.Context, dashboardID string, draft Block) (*Block, error)
	// UpdateBlockGeometry stores the geometry of b together with a snapshot
	// of its metadata. Called once per finished drag or resize.
	UpdateBlockGeometry(ctx context.Context, dashboardID, blockID string, b Block) (*Block, error)
	UpdateBlockMetadata(ctx context.Context, dashboardID, blockID string, fields Block) (*Block, error)
	DeleteBlock(ctx context.Context, dashboardID, blockID string) error
}
