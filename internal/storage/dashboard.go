package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dashgrid/internal/domain"
)

// DashboardStore persists dashboard rows. Blocks live in BlockStore.
type DashboardStore struct {
	db *DB
}

func NewDashboardStore(db *DB) *DashboardStore {
	return &DashboardStore{db: db}
}

func (s *DashboardStore) CreateDashboard(ctx context.Context, d *domain.Dashboard) error {
	now := time.Now()
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO dashboards (id, title, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Description, now, now,
	)
	if err != nil {
		return fmt.Errorf("create dashboard: %w", err)
	}
	return nil
}

// GetDashboard returns the dashboard row without its blocks.
func (s *DashboardStore) GetDashboard(ctx context.Context, id string) (*domain.Dashboard, error) {
	d := &domain.Dashboard{}
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, title, description FROM dashboards WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dashboard %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get dashboard: %w", err)
	}
	return d, nil
}

func (s *DashboardStore) ListDashboards(ctx context.Context) ([]domain.DashboardSummary, error) {
	rows, err := s.db.conn.QueryContext(ctx, `SELECT id, title FROM dashboards ORDER BY created_at ASC, title ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.DashboardSummary{}
	for rows.Next() {
		var d domain.DashboardSummary
		if err := rows.Scan(&d.ID, &d.Title); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *DashboardStore) UpdateDashboard(ctx context.Context, d *domain.Dashboard) error {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE dashboards SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		d.Title, d.Description, time.Now(), d.ID,
	)
	if err != nil {
		return fmt.Errorf("update dashboard: %w", err)
	}
	return expectRow(res, "dashboard", d.ID)
}

// DeleteDashboard removes the dashboard and, by cascade, its blocks.
func (s *DashboardStore) DeleteDashboard(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM dashboards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dashboard: %w", err)
	}
	return expectRow(res, "dashboard", id)
}

// upsertDashboard inserts d or refreshes its title and description, and
// stamps mirrored_at.
func upsertDashboard(ctx context.Context, ex execer, d *domain.Dashboard, now time.Time) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO dashboards (id, title, description, created_at, updated_at, mirrored_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, description = excluded.description,
		   updated_at = excluded.updated_at, mirrored_at = excluded.mirrored_at`,
		d.ID, d.Title, d.Description, now, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert dashboard %s: %w", d.ID, err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
