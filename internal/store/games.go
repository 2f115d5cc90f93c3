package store

import (
	"context"
	"database/sql"
	"time"
)

// Outcomes stored in games.outcome.
const (
	OutcomeWon          = "won"
	OutcomeExhausted    = "exhausted"
	OutcomeDisconnected = "disconnected"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// GameRecord is one finished game.
type GameRecord struct {
	ID         string    `json:"id"`
	Remote     string    `json:"remote"`
	Word       string    `json:"word"`
	Outcome    string    `json:"outcome"`
	Guesses    int       `json:"guesses"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// GameLog appends finished games to the games table.
type GameLog struct{ db *sql.DB }

func NewGameLog(db *sql.DB) *GameLog { return &GameLog{db: db} }

// Insert records a finished game. Duplicate IDs are ignored.
func (l *GameLog) Insert(ctx context.Context, r GameRecord) error {
	_, err := l.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO games
            (id, remote_addr, word, outcome, guesses, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Remote, r.Word, r.Outcome, r.Guesses,
		r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
	)
	return err
}

// Recent returns the latest finished games, newest first. Default limit is 20.
func (l *GameLog) Recent(ctx context.Context, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
        SELECT id, remote_addr, word, outcome, guesses, started_at, finished_at
        FROM games
        ORDER BY finished_at DESC, id ASC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]GameRecord, 0, limit)
	for rows.Next() {
		var r GameRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Remote, &r.Word, &r.Outcome, &r.Guesses, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt = mustParse(started)
		r.FinishedAt = mustParse(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByOutcome returns how many logged games ended with each outcome.
func (l *GameLog) CountByOutcome(ctx context.Context) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT outcome, COUNT(1) FROM games GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[outcome] = n
	}
	return out, rows.Err()
}

func mustParse(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
