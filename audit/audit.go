// Package audit records wipe receipts in Postgres so support can prove when
// an account's data was removed. Everything here is best-effort: the wipe
// never fails because the audit database is down.
package audit

import (
	"context"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tripzi/functions/log"
	"github.com/tripzi/functions/wipe"
)

const dbDriver = "postgres"

var auditDSN = os.Getenv("AUDIT_DB_DSN")

var schema = `
CREATE TABLE IF NOT EXISTS wipe_audit (
	id SERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	trips_deleted INT NOT NULL,
	ratings_deleted INT NOT NULL,
	reports_deleted INT NOT NULL,
	feedback_deleted INT NOT NULL,
	chats_deleted INT NOT NULL,
	chats_updated INT NOT NULL,
	messages_deleted INT NOT NULL,
	storage_failures INT NOT NULL
);`

const insertReceipt = `
INSERT INTO wipe_audit (
	user_id, started_at, finished_at,
	trips_deleted, ratings_deleted, reports_deleted, feedback_deleted,
	chats_deleted, chats_updated, messages_deleted, storage_failures
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// Record inserts one receipt for a completed wipe. A no-op when
// AUDIT_DB_DSN is unset; failures are logged and swallowed.
func Record(ctx context.Context, sum *wipe.Summary) {
	if auditDSN == "" {
		return
	}
	logger := log.LoggerFromContext(ctx)

	db, err := sqlx.ConnectContext(ctx, dbDriver, auditDSN)
	if err != nil {
		logger.Error("failed to connect to audit database", slog.String("errorMsg", err.Error()))
		return
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		logger.Error("failed to ensure audit schema", slog.String("errorMsg", err.Error()))
		return
	}

	if _, err := db.ExecContext(ctx, insertReceipt,
		sum.UserID, sum.StartedAt, sum.FinishedAt,
		sum.TripsDeleted, sum.RatingsDeleted, sum.ReportsDeleted, sum.FeedbackDeleted,
		sum.ChatsDeleted, sum.ChatsUpdated, sum.MessagesDeleted, sum.StorageFailures,
	); err != nil {
		logger.Error("failed to insert wipe receipt", slog.String("errorMsg", err.Error()))
		return
	}
	logger.Info("wipe receipt recorded", slog.String("userID", sum.UserID))
}
