package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dashgrid/internal/domain"
)

// BlockStore persists the blocks ("views") of each dashboard.
type BlockStore struct {
	db *DB
}

func NewBlockStore(db *DB) *BlockStore {
	return &BlockStore{db: db}
}

const blockColumns = `id, title, description, type, target, service, step, x, y, width, height, extra_json`

func (s *BlockStore) CreateBlock(ctx context.Context, dashboardID string, b *domain.Block) error {
	return insertBlock(ctx, s.db.conn, dashboardID, b, time.Now())
}

func (s *BlockStore) GetBlock(ctx context.Context, dashboardID, id string) (*domain.Block, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE dashboard_id = ? AND id = ?`, dashboardID, id,
	)
	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("block %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}
	return b, nil
}

func (s *BlockStore) ListBlocks(ctx context.Context, dashboardID string) ([]domain.Block, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE dashboard_id = ? ORDER BY created_at ASC, rowid ASC`,
		dashboardID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []domain.Block{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *b)
	}
	return blocks, rows.Err()
}

func (s *BlockStore) UpdateBlock(ctx context.Context, dashboardID string, b *domain.Block) error {
	extra, err := encodeExtra(b.Extra)
	if err != nil {
		return err
	}
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE blocks SET title = ?, description = ?, type = ?, target = ?, service = ?, step = ?,
		   x = ?, y = ?, width = ?, height = ?, extra_json = ?, updated_at = ?
		 WHERE dashboard_id = ? AND id = ?`,
		b.Title, b.Description, b.Type, b.Target, b.Service, b.Step,
		b.X, b.Y, b.Width, b.Height, extra, time.Now(), dashboardID, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update block: %w", err)
	}
	return expectRow(res, "block", b.ID)
}

func (s *BlockStore) DeleteBlock(ctx context.Context, dashboardID, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM blocks WHERE dashboard_id = ? AND id = ?`, dashboardID, id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return expectRow(res, "block", id)
}

// Fingerprint summarizes the blocks of a dashboard (count and last update)
// so pollers can notice writes made by another process.
func (s *BlockStore) Fingerprint(ctx context.Context, dashboardID string) (string, error) {
	var count int
	var last string
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(updated_at), '') FROM blocks WHERE dashboard_id = ?`, dashboardID,
	).Scan(&count, &last)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%s", count, last), nil
}

// replaceBlocks swaps every block of a dashboard for blocks.
func replaceBlocks(ctx context.Context, ex execer, dashboardID string, blocks []domain.Block, now time.Time) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM blocks WHERE dashboard_id = ?`, dashboardID); err != nil {
		return fmt.Errorf("delete blocks: %w", err)
	}
	for i := range blocks {
		if err := insertBlock(ctx, ex, dashboardID, &blocks[i], now); err != nil {
			return err
		}
	}
	return nil
}

func insertBlock(ctx context.Context, ex execer, dashboardID string, b *domain.Block, now time.Time) error {
	extra, err := encodeExtra(b.Extra)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO blocks (id, dashboard_id, title, description, type, target, service, step,
		   x, y, width, height, extra_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, dashboardID, b.Title, b.Description, b.Type, b.Target, b.Service, b.Step,
		b.X, b.Y, b.Width, b.Height, extra, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert block %s: %w", b.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(row scanner) (*domain.Block, error) {
	var b domain.Block
	var extra string
	if err := row.Scan(&b.ID, &b.Title, &b.Description, &b.Type, &b.Target, &b.Service, &b.Step,
		&b.X, &b.Y, &b.Width, &b.Height, &extra); err != nil {
		return nil, err
	}
	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &b.Extra); err != nil {
			return nil, fmt.Errorf("block %s: decode extra: %w", b.ID, err)
		}
	}
	return &b, nil
}

func encodeExtra(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("encode extra: %w", err)
	}
	return string(data), nil
}
