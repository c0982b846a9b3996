// Package calllog archives finished calls to Postgres for later
// review. Archiving is best effort: a failed write never affects the
// call it describes.
package calllog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adascal/voicedesk/pkg/transcript"
)

type Archive struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects and ensures the archive table exists.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Archive, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	a := &Archive{pool: pool, logger: logger}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if err := a.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) Close() {
	a.pool.Close()
}

func (a *Archive) ensureSchema(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS call_archive (
			id           UUID PRIMARY KEY,
			kind         TEXT NOT NULL,
			call_sid     TEXT,
			language     TEXT NOT NULL DEFAULT 'en',
			duration_sec INT NOT NULL DEFAULT 0,
			turn_count   INT NOT NULL,
			logged_ros   TEXT[],
			transcript   JSONB NOT NULL,
			ended_at     TIMESTAMPTZ NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure call_archive: %w", err)
	}
	return nil
}

// ArchiveCall stores one finished call.
func (a *Archive) ArchiveCall(ctx context.Context, kind, callSID, language string, duration time.Duration, turns []transcript.Turn, loggedROs []string) error {
	payload, err := encodeTurns(turns)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO call_archive (id, kind, call_sid, language, duration_sec, turn_count, logged_ros, transcript, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.NewString(), kind, callSID, language, int(duration.Seconds()), len(turns), loggedROs, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert call archive: %w", err)
	}
	a.logger.Debug("call archived", "kind", kind, "call_sid", callSID, "turns", len(turns), "duration", duration)
	return nil
}

// Entry is one archived call as returned by Recent.
type Entry struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	CallSID     string    `json:"call_sid"`
	Language    string    `json:"language"`
	DurationSec int       `json:"duration_sec"`
	TurnCount   int       `json:"turn_count"`
	LoggedROs   []string  `json:"logged_ros"`
	EndedAt     time.Time `json:"ended_at"`
}

// Recent lists the newest archived calls.
func (a *Archive) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.pool.Query(ctx, `
		SELECT id, kind, call_sid, language, duration_sec, turn_count, logged_ros, ended_at
		FROM call_archive
		ORDER BY ended_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.CallSID, &e.Language, &e.DurationSec, &e.TurnCount, &e.LoggedROs, &e.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type archivedTurn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

func encodeTurns(turns []transcript.Turn) ([]byte, error) {
	out := make([]archivedTurn, len(turns))
	for i, t := range turns {
		out[i] = archivedTurn{Role: t.Role, Text: t.Text, At: t.At}
	}
	return json.Marshal(out)
}
