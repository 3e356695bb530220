// Package audit records lifecycle events. Writes are fire-and-forget: an
// audit failure is logged, never surfaced to the signing flow.
package audit

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/alinme/docsign/internal/model"
)

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, documentID, action, actorEmail, details string)
}

// DBSink appends audit entries to the relational store.
type DBSink struct {
	db *gorm.DB
}

// NewDBSink creates a sink writing to the given database handle.
func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

// Record appends one entry. Failures are logged and swallowed.
func (s *DBSink) Record(ctx context.Context, documentID, action, actorEmail, details string) {
	entry := model.AuditEntry{
		DocumentID: documentID,
		Action:     action,
		ActorEmail: actorEmail,
		Details:    details,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		slog.Error("audit write failed",
			"document_id", documentID, "action", action, "error", err)
	}
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Record(context.Context, string, string, string, string) {}
