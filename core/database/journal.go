package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/menubot/core/conversation"
	"github.com/m3rciful/menubot/core/logger"
)

const insertHandoff = `INSERT INTO agent_handoffs (conversation_id, transport, category, detail, created_at)
VALUES (:conversation_id, :transport, :category, :detail, :created_at)`

// NamedExecer is the part of *sqlx.DB the journal needs.
type NamedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

type handoffRow struct {
	ConversationID string    `db:"conversation_id"`
	Transport      string    `db:"transport"`
	Category       string    `db:"category"`
	Detail         string    `db:"detail"`
	CreatedAt      time.Time `db:"created_at"`
}

// Journal writes agent handoffs to the agent_handoffs table.
type Journal struct {
	db NamedExecer
}

// NewJournal returns a journal backed by db.
func NewJournal(db NamedExecer) *Journal {
	return &Journal{db: db}
}

// RecordHandoff inserts one handoff row.
func (j *Journal) RecordHandoff(ctx context.Context, h conversation.Handoff) error {
	row := handoffRow{
		ConversationID: h.ConversationID,
		Transport:      h.Transport,
		Category:       string(h.Category),
		Detail:         h.Detail,
		CreatedAt:      h.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	if _, err := j.db.NamedExecContext(ctx, insertHandoff, row); err != nil {
		return fmt.Errorf("insert handoff: %w", err)
	}
	logger.Debug(ctx, logger.CompDB, "handoff.insert",
		slog.String("category", row.Category),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}
