package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Batch groups the emails sent in one run; its start time anchors the
// verification search window.
type Batch struct {
	ID             string
	StartedAt      time.Time
	SenderEmail    string
	RecipientEmail string
}

func NewBatchID() string {
	return uuid.NewString()
}

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS ticket_counter (
		id          INTEGER PRIMARY KEY CHECK (id = 1),
		last_number INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS batches (
		batch_id        TEXT PRIMARY KEY,
		started_at      DATETIME NOT NULL,
		sender_email    TEXT DEFAULT '',
		recipient_email TEXT DEFAULT '',
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sent_emails (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence          INTEGER NOT NULL UNIQUE,
		batch_id          TEXT NOT NULL,
		subject           TEXT NOT NULL,
		expected_priority TEXT DEFAULT '',
		expected_type     TEXT DEFAULT '',
		expected_category TEXT DEFAULT '',
		sent_at           DATETIME NOT NULL,
		created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sent_emails_batch ON sent_emails(batch_id);

	CREATE TABLE IF NOT EXISTS verification_runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		batch_id    TEXT NOT NULL,
		total       INTEGER NOT NULL,
		found       INTEGER NOT NULL,
		not_found   INTEGER NOT NULL,
		passed      INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		pass_rate   REAL NOT NULL,
		report_path TEXT DEFAULT '',
		verified_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_verification_runs_batch ON verification_runs(batch_id);
	`
	if _, err = db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

// NextSequenceRange allocates count consecutive ticket numbers and persists
// the counter, so numbers never repeat across program runs.
func NextSequenceRange(db *sql.DB, count int) (start, end int64, err error) {
	if count < 1 {
		return 0, 0, fmt.Errorf("sequence range count must be >= 1, got %d", count)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`INSERT OR IGNORE INTO ticket_counter (id, last_number) VALUES (1, 0)`); err != nil {
		return 0, 0, err
	}

	var last int64
	if err = tx.QueryRow(`SELECT last_number FROM ticket_counter WHERE id = 1`).Scan(&last); err != nil {
		return 0, 0, err
	}

	start = last + 1
	end = last + int64(count)
	if _, err = tx.Exec(`UPDATE ticket_counter SET last_number = ? WHERE id = 1`, end); err != nil {
		return 0, 0, err
	}

	return start, end, tx.Commit()
}

// CurrentSequence returns the last allocated ticket number (0 when none).
func CurrentSequence(db *sql.DB) (int64, error) {
	var last int64
	err := db.QueryRow(`SELECT last_number FROM ticket_counter WHERE id = 1`).Scan(&last)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return last, err
}

func InsertBatch(db *sql.DB, b Batch) error {
	_, err := db.Exec(
		`INSERT INTO batches (batch_id, started_at, sender_email, recipient_email) VALUES (?, ?, ?, ?)`,
		b.ID, b.StartedAt, b.SenderEmail, b.RecipientEmail,
	)
	return err
}

func InsertSentEmails(db *sql.DB, records []SentEmailRecord) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO sent_emails (sequence, batch_id, subject, expected_priority, expected_type, expected_category, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		_, err := stmt.Exec(
			rec.Sequence, rec.BatchID, rec.Subject,
			rec.ExpectedPriority, rec.ExpectedType, rec.ExpectedCategory, rec.SentAt,
		)
		if err != nil {
			return inserted, err
		}
		inserted++
	}

	return inserted, tx.Commit()
}

func GetSentEmailsByBatch(db *sql.DB, batchID string) ([]SentEmailRecord, error) {
	rows, err := db.Query(
		`SELECT sequence, batch_id, subject, expected_priority, expected_type, expected_category, sent_at
		 FROM sent_emails WHERE batch_id = ? ORDER BY sequence`,
		batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SentEmailRecord
	for rows.Next() {
		var seq int64
		var bid, subject, priority, ticketType, category string
		var sentAt time.Time
		if err := rows.Scan(&seq, &bid, &subject, &priority, &ticketType, &category, &sentAt); err != nil {
			return nil, err
		}
		rec := NewSentEmailRecord(seq, subject, priority, ticketType, category)
		rec.BatchID = bid
		rec.SentAt = sentAt
		records = append(records, rec)
	}
	return records, rows.Err()
}

func GetBatch(db *sql.DB, batchID string) (*Batch, error) {
	var b Batch
	err := db.QueryRow(
		`SELECT batch_id, started_at, sender_email, recipient_email FROM batches WHERE batch_id = ?`,
		batchID,
	).Scan(&b.ID, &b.StartedAt, &b.SenderEmail, &b.RecipientEmail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LatestBatch returns the most recently started batch, or nil when the
// database has none.
func LatestBatch(db *sql.DB) (*Batch, error) {
	var b Batch
	err := db.QueryRow(
		`SELECT batch_id, started_at, sender_email, recipient_email
		 FROM batches ORDER BY started_at DESC LIMIT 1`,
	).Scan(&b.ID, &b.StartedAt, &b.SenderEmail, &b.RecipientEmail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LatestUnverifiedBatch finds the most recent batch with no recorded
// verification run; the scheduler verifies these.
func LatestUnverifiedBatch(db *sql.DB) (*Batch, error) {
	var b Batch
	err := db.QueryRow(
		`SELECT b.batch_id, b.started_at, b.sender_email, b.recipient_email
		 FROM batches b
		 LEFT JOIN verification_runs v ON v.batch_id = b.batch_id
		 WHERE v.id IS NULL
		 ORDER BY b.started_at DESC LIMIT 1`,
	).Scan(&b.ID, &b.StartedAt, &b.SenderEmail, &b.RecipientEmail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func RecordVerificationRun(db *sql.DB, runID, batchID string, summary BatchSummary, reportPath string) error {
	_, err := db.Exec(
		`INSERT INTO verification_runs (run_id, batch_id, total, found, not_found, passed, failed, pass_rate, report_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, batchID, summary.Total, summary.Found, summary.NotFound,
		summary.Passed, summary.Failed, summary.PassRate, reportPath,
	)
	return err
}
