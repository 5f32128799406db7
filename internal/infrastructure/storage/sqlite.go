package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ability-server/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS save_slots (
	slot      TEXT PRIMARY KEY,
	timestamp INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS save_players (
	slot    TEXT NOT NULL REFERENCES save_slots(slot) ON DELETE CASCADE,
	id      TEXT NOT NULL,
	credits INTEGER NOT NULL,
	PRIMARY KEY (slot, id)
);
CREATE TABLE IF NOT EXISTS save_actors (
	slot TEXT NOT NULL REFERENCES save_slots(slot) ON DELETE CASCADE,
	seq  INTEGER NOT NULL,
	name TEXT NOT NULL,
	x    REAL NOT NULL,
	y    REAL NOT NULL,
	data BLOB,
	PRIMARY KEY (slot, seq)
);`

// SQLiteStore хранит все слоты в одной базе.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite открывает (или создает) saves.db в каталоге dir.
func OpenSQLite(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	path := filepath.Join(filepath.Clean(dir), "saves.db")
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Одна запись за раз, сохранения редкие
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save заменяет слот целиком в одной транзакции.
func (s *SQLiteStore) Save(ctx context.Context, game *domain.SaveGame) error {
	if err := ValidateSlot(game.Slot); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"save_players", "save_actors", "save_slots"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE slot = ?`, game.Slot); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO save_slots (slot, timestamp) VALUES (?, ?)`, game.Slot, game.Timestamp); err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	for _, p := range game.Players {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO save_players (slot, id, credits) VALUES (?, ?, ?)`,
			game.Slot, string(p.ID), p.Credits,
		); err != nil {
			return fmt.Errorf("insert player %s: %w", p.ID, err)
		}
	}
	for i, a := range game.Actors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO save_actors (slot, seq, name, x, y, data) VALUES (?, ?, ?, ?, ?, ?)`,
			game.Slot, i, a.Name, a.Pos.X, a.Pos.Y, a.Data,
		); err != nil {
			return fmt.Errorf("insert actor %s: %w", a.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, slot string) (*domain.SaveGame, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}

	game := &domain.SaveGame{Slot: slot}
	err := s.sqlDB.QueryRowContext(ctx, `SELECT timestamp FROM save_slots WHERE slot = ?`, slot).Scan(&game.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", slot, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}

	// 1. Игроки
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, credits FROM save_players WHERE slot = ? ORDER BY id`, slot)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	for rows.Next() {
		var (
			id string
			p  domain.PlayerSave
		)
		if err := rows.Scan(&id, &p.Credits); err != nil {
			rows.Close()
			return nil, err
		}
		p.ID = domain.ActorID(id)
		game.Players = append(game.Players, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	// 2. Акторы
	rows, err = s.sqlDB.QueryContext(ctx, `SELECT name, x, y, data FROM save_actors WHERE slot = ? ORDER BY seq`, slot)
	if err != nil {
		return nil, fmt.Errorf("load actors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.ActorSave
		if err := rows.Scan(&a.Name, &a.Pos.X, &a.Pos.Y, &a.Data); err != nil {
			return nil, err
		}
		if len(a.Data) == 0 {
			a.Data = nil
		}
		game.Actors = append(game.Actors, a)
	}
	return game, rows.Err()
}
