package mcpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Events the in-process approval queue emits to the front-end.
const (
	EventApprovalRequired  = "agent:approval-required"
	EventApprovalDismissed = "agent:approval-dismissed"
)

var (
	// ErrRejected is returned by Request when the user said no.
	ErrRejected = errors.New("action rejected by user")
	// ErrApprovalTimeout is returned by Request when nobody answered.
	ErrApprovalTimeout = errors.New("approval timed out")
)

const (
	defaultApprovalTimeout = 120 * time.Second
	approvalPollInterval   = 500 * time.Millisecond
)

// EventEmitter allows the approval queue to notify the frontend.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// PendingAction is a destructive agent call waiting for the user.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"` // JSON, e.g. the block to highlight
}

// ApprovalQueue asks a human before destructive tool calls run.
//
// In-process (desktop app hosting the server) it emits an event and waits
// on a channel. Standalone (`dashgrid mcp`), it writes a row into
// mcp_approvals and polls it; the desktop app answers through the same
// SQLite file with ResolveStored.
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan bool
	emitter EventEmitter
	timeout time.Duration
	poll    time.Duration
	db      *sql.DB
}

// NewApprovalQueue creates a channel-mode queue. db switches it to
// SQLite mode when non-nil.
func NewApprovalQueue(emitter EventEmitter, db *sql.DB) *ApprovalQueue {
	return &ApprovalQueue{
		pending: make(map[string]chan bool),
		emitter: emitter,
		timeout: defaultApprovalTimeout,
		poll:    approvalPollInterval,
		db:      db,
	}
}

// SetTimeout changes how long Request waits for an answer.
func (q *ApprovalQueue) SetTimeout(d time.Duration) {
	q.timeout = d
}

// Request blocks until the action is approved, rejected, timed out or ctx
// is done. A nil error means approved.
func (q *ApprovalQueue) Request(ctx context.Context, tool, description, metadata string) error {
	if metadata == "" {
		metadata = "{}"
	}
	action := PendingAction{
		ID:          uuid.NewString(),
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Metadata:    metadata,
	}
	if q.db != nil {
		return q.requestViaDB(ctx, action)
	}
	return q.requestViaChannel(ctx, action)
}

func (q *ApprovalQueue) requestViaDB(ctx context.Context, a PendingAction) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata) VALUES (?, ?, ?, 'pending', ?)`,
		a.ID, a.Tool, a.Description, a.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	// The row is gone once we return, whatever the outcome.
	defer q.db.ExecContext(context.WithoutCancel(ctx), `DELETE FROM mcp_approvals WHERE id = ?`, a.ID)

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var status string
			if err := q.db.QueryRowContext(ctx, `SELECT status FROM mcp_approvals WHERE id = ?`, a.ID).Scan(&status); err != nil {
				continue
			}
			switch status {
			case "approved":
				return nil
			case "rejected":
				return fmt.Errorf("%s: %w", a.Tool, ErrRejected)
			}
		case <-timer.C:
			return fmt.Errorf("%s after %s: %w", a.Tool, q.timeout, ErrApprovalTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *ApprovalQueue) requestViaChannel(ctx context.Context, a PendingAction) error {
	ch := make(chan bool, 1)
	q.mu.Lock()
	q.pending[a.ID] = ch
	q.mu.Unlock()
	defer q.forget(a.ID)

	q.emitter.Emit(ctx, EventApprovalRequired, a)

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case approved := <-ch:
		if !approved {
			return fmt.Errorf("%s: %w", a.Tool, ErrRejected)
		}
		return nil
	case <-timer.C:
		q.emitter.Emit(ctx, EventApprovalDismissed, map[string]string{"id": a.ID})
		return fmt.Errorf("%s after %s: %w", a.Tool, q.timeout, ErrApprovalTimeout)
	case <-ctx.Done():
		q.emitter.Emit(context.WithoutCancel(ctx), EventApprovalDismissed, map[string]string{"id": a.ID})
		return ctx.Err()
	}
}

// Approve answers a pending in-process action. Unknown ids are ignored.
func (q *ApprovalQueue) Approve(actionID string) { q.resolve(actionID, true) }

// Reject answers a pending in-process action. Unknown ids are ignored.
func (q *ApprovalQueue) Reject(actionID string) { q.resolve(actionID, false) }

// Waiting returns the number of in-process actions awaiting an answer.
func (q *ApprovalQueue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- approved:
	default: // already answered
	}
}

func (q *ApprovalQueue) forget(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}

// ── Cross-process side ─────────────────────────────────────

// ListStored returns the actions a standalone server is waiting on.
func ListStored(ctx context.Context, db *sql.DB) ([]PendingAction, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, tool, description, metadata, created_at FROM mcp_approvals WHERE status = 'pending' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []PendingAction
	for rows.Next() {
		var a PendingAction
		if err := rows.Scan(&a.ID, &a.Tool, &a.Description, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ResolveStored answers an action stored by a standalone server.
func ResolveStored(ctx context.Context, db *sql.DB, actionID string, approved bool) error {
	status := "rejected"
	if approved {
		status = "approved"
	}
	res, err := db.ExecContext(ctx,
		`UPDATE mcp_approvals SET status = ? WHERE id = ? AND status = 'pending'`, status, actionID)
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("approval %s: not pending", actionID)
	}
	return nil
}
