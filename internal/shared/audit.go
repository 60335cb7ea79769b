package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// AuditLog is one compliance trail record. Entity names the document kind
// ("invoice", "journal-entry") and EntityID its business code, not the row id,
// so the trail survives renumbering and cross-year moves.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends to the audit_logs table. Writes go through whatever
// Querier the caller holds, so a document mutation can audit inside its own
// transaction.
type AuditLogger struct {
	q db.Querier
}

// NewAuditLogger wraps q, typically the shared pool.
func NewAuditLogger(q db.Querier) *AuditLogger {
	return &AuditLogger{q: q}
}

// Record persists one trail entry. A zero At is stamped with the server time.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.q == nil {
		return errors.New("shared: audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("shared: audit log requires action, entity and entity id")
	}
	if log.At.IsZero() {
		log.At = time.Now()
	}
	meta, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = l.q.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ActorID, log.Action, log.Entity, log.EntityID, meta, log.At)
	return err
}
