// Package history ведет локальный журнал отправленных инструкций и
// аномалий декодирования. Авторитетное состояние живет в программе,
// здесь только след для пользователя и отладки.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	action_kind TEXT    NOT NULL,
	game_id     INTEGER NOT NULL,
	signature   TEXT    NOT NULL DEFAULT '',
	error       TEXT    NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS anomalies (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	field      TEXT    NOT NULL,
	raw        TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Open открывает (и при необходимости создает) базу журнала
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("пустой путь к базе журнала")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации схемы: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSubmission записывает исход отправки инструкции
func (s *Store) RecordSubmission(ctx context.Context, actionKind string, gameID int64, signature string, submitErr error) error {
	errText := ""
	if submitErr != nil {
		errText = submitErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (action_kind, game_id, signature, error, created_at) VALUES (?, ?, ?, ?, ?)`,
		actionKind, gameID, signature, errText, time.Now().Unix())
	return err
}

// RecordAnomaly записывает аномалию декодирования
func (s *Store) RecordAnomaly(ctx context.Context, field, raw string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO anomalies (field, raw, created_at) VALUES (?, ?, ?)`,
		field, raw, time.Now().Unix())
	return err
}

// Submission - одна запись журнала отправок
type Submission struct {
	ID         int64
	ActionKind string
	GameID     int64
	Signature  string
	Error      string
	CreatedAt  time.Time
}

// RecentSubmissions возвращает последние записи журнала
func (s *Store) RecentSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action_kind, game_id, signature, error, created_at
		 FROM submissions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		var ts int64
		if err := rows.Scan(&sub.ID, &sub.ActionKind, &sub.GameID, &sub.Signature, &sub.Error, &ts); err != nil {
			return nil, err
		}
		sub.CreatedAt = time.Unix(ts, 0)
		out = append(out, sub)
	}
	return out, rows.Err()
}
