package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// ─────────────────────────────────────────────────────────────
// Session persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores desktop state between sessions: the window size and
// the dashboard that was open. Stored as key-value rows in app_settings.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SessionService persists desktop state between sessions.
type SessionService struct {
	db *sql.DB
}

// NewSessionService creates a SessionService over a migrated database.
func NewSessionService(db *sql.DB) *SessionService {
	return &SessionService{db: db}
}

const (
	settingWindowWidth   = "window_width"
	settingWindowHeight  = "window_height"
	settingLastDashboard = "last_dashboard"
	defaultWindowWidth   = 1440
	defaultWindowHeight  = 900
	minWindowWidth       = 800
	minWindowHeight      = 600
)

// LoadWindowSize returns the saved window dimensions, or the defaults.
func (s *SessionService) LoadWindowSize(ctx context.Context) WindowSize {
	w, _ := strconv.Atoi(s.get(ctx, settingWindowWidth))
	h, _ := strconv.Atoi(s.get(ctx, settingWindowHeight))
	if w < minWindowWidth {
		w = defaultWindowWidth
	}
	if h < minWindowHeight {
		h = defaultWindowHeight
	}
	return WindowSize{Width: w, Height: h}
}

// SaveWindowSize persists the current window dimensions.
func (s *SessionService) SaveWindowSize(ctx context.Context, width, height int) error {
	if err := s.set(ctx, settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.set(ctx, settingWindowHeight, strconv.Itoa(height))
}

// LastDashboard returns the dashboard open when the app last closed, or "".
func (s *SessionService) LastDashboard(ctx context.Context) string {
	return s.get(ctx, settingLastDashboard)
}

func (s *SessionService) SetLastDashboard(ctx context.Context, id string) error {
	return s.set(ctx, settingLastDashboard, id)
}

func (s *SessionService) get(ctx context.Context, key string) string {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ""
	}
	return v
}

func (s *SessionService) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}
