package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dashgrid/internal/domain"
	"dashgrid/internal/layout"
)

// Catalog is the SQLite implementation of domain.Catalog. It backs the
// local catalog mode, the REST server and the mirror.
type Catalog struct {
	db         *DB
	dashboards *DashboardStore
	blocks     *BlockStore
}

var _ domain.Catalog = (*Catalog)(nil)

func NewCatalog(db *DB) *Catalog {
	return &Catalog{
		db:         db,
		dashboards: NewDashboardStore(db),
		blocks:     NewBlockStore(db),
	}
}

// Blocks exposes the block store (fingerprints for pollers).
func (c *Catalog) Blocks() *BlockStore { return c.blocks }

func (c *Catalog) ListDashboards(ctx context.Context) ([]domain.DashboardSummary, error) {
	return c.dashboards.ListDashboards(ctx)
}

func (c *Catalog) FetchDashboard(ctx context.Context, dashboardID string) (*domain.Dashboard, error) {
	d, err := c.dashboards.GetDashboard(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	d.Blocks, err = c.blocks.ListBlocks(ctx, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return d, nil
}

// CreateDashboard adds an empty dashboard.
func (c *Catalog) CreateDashboard(ctx context.Context, title, description string) (*domain.Dashboard, error) {
	d := &domain.Dashboard{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Blocks:      []domain.Block{},
	}
	if err := c.dashboards.CreateDashboard(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDashboard changes a dashboard's title and description.
func (c *Catalog) UpdateDashboard(ctx context.Context, id, title, description string) (*domain.Dashboard, error) {
	d := &domain.Dashboard{ID: id, Title: title, Description: description}
	if err := c.dashboards.UpdateDashboard(ctx, d); err != nil {
		return nil, err
	}
	return c.FetchDashboard(ctx, id)
}

// DeleteDashboard removes a dashboard together with its blocks.
func (c *Catalog) DeleteDashboard(ctx context.Context, id string) error {
	return c.dashboards.DeleteDashboard(ctx, id)
}

// CreateBlock stores draft under a fresh id. The id carried by the draft,
// if any, is ignored.
func (c *Catalog) CreateBlock(ctx context.Context, dashboardID string, draft domain.Block) (*domain.Block, error) {
	if err := layout.CheckGeometry(draft.Geometry); err != nil {
		return nil, err
	}
	if _, err := c.dashboards.GetDashboard(ctx, dashboardID); err != nil {
		return nil, err
	}
	b := draft
	b.ID = uuid.New().String()
	if b.Type == "" {
		b.Type = domain.BlockTypePlot
	}
	if err := c.blocks.CreateBlock(ctx, dashboardID, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Catalog) UpdateBlockGeometry(ctx context.Context, dashboardID, blockID string, b domain.Block) (*domain.Block, error) {
	return c.PatchBlock(ctx, dashboardID, blockID, map[string]any{
		"title":       b.Title,
		"description": b.Description,
		"target":      b.Target,
		"type":        b.Type,
		"x":           b.X,
		"y":           b.Y,
		"width":       b.Width,
		"height":      b.Height,
	})
}

// UpdateBlockMetadata replaces the block's fields with fields. A zero
// geometry keeps the stored one.
func (c *Catalog) UpdateBlockMetadata(ctx context.Context, dashboardID, blockID string, fields domain.Block) (*domain.Block, error) {
	if fields.Geometry.IsZero() {
		cur, err := c.blocks.GetBlock(ctx, dashboardID, blockID)
		if err != nil {
			return nil, err
		}
		fields.Geometry = cur.Geometry
	}
	fields.ID = blockID
	if err := layout.CheckGeometry(fields.Geometry); err != nil {
		return nil, err
	}
	if err := c.blocks.UpdateBlock(ctx, dashboardID, &fields); err != nil {
		return nil, err
	}
	return &fields, nil
}

// PatchBlock overlays the members of patch onto the stored block, the way
// the REST PATCH endpoint does: members absent from patch are kept, "uuid"
// and "schema_version" are ignored.
func (c *Catalog) PatchBlock(ctx context.Context, dashboardID, blockID string, patch map[string]any) (*domain.Block, error) {
	cur, err := c.blocks.GetBlock(ctx, dashboardID, blockID)
	if err != nil {
		return nil, err
	}

	merged, err := mergeBlock(*cur, patch)
	if err != nil {
		return nil, err
	}
	merged.ID = blockID
	if err := layout.CheckGeometry(merged.Geometry); err != nil {
		return nil, err
	}
	if err := c.blocks.UpdateBlock(ctx, dashboardID, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

func mergeBlock(cur domain.Block, patch map[string]any) (domain.Block, error) {
	raw, err := json.Marshal(cur)
	if err != nil {
		return cur, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return cur, err
	}
	for k, v := range patch {
		if k == "uuid" || k == "schema_version" {
			continue
		}
		m[k] = v
	}
	raw, err = json.Marshal(m)
	if err != nil {
		return cur, err
	}
	var out domain.Block
	if err := json.Unmarshal(raw, &out); err != nil {
		return cur, fmt.Errorf("%w: %v", domain.ErrInvalidBlock, err)
	}
	return out, nil
}

func (c *Catalog) DeleteBlock(ctx context.Context, dashboardID, blockID string) error {
	return c.blocks.DeleteBlock(ctx, dashboardID, blockID)
}

// ReplaceDashboard stores d and exactly its blocks in one transaction,
// keeping the remote ids. Used by the mirror.
func (c *Catalog) ReplaceDashboard(ctx context.Context, d *domain.Dashboard) error {
	tx, err := c.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if err := upsertDashboard(ctx, tx, d, now); err != nil {
		return err
	}
	if err := replaceBlocks(ctx, tx, d.ID, d.Blocks, now); err != nil {
		return err
	}
	return tx.Commit()
}

// Ping reports whether the database answers.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.conn.PingContext(ctx)
}
