package storage

import (
	"bytes"
	"civsim-server/internal/actionlog"
	"civsim-server/internal/domain"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS action_logs (
		id           TEXT PRIMARY KEY,
		created_at   INTEGER NOT NULL,
		civ_count    INTEGER NOT NULL,
		action_count INTEGER NOT NULL,
		data         BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS relay_files (
		name       TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_reports (
		id         TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		steps      INTEGER NOT NULL,
		report     TEXT NOT NULL
	)`,
}

// SQLiteStore хранит логи (gzip CRPL), файлы мультиплеерного релея и готовые отчеты.
type SQLiteStore struct {
	db *sql.DB
}

// LogInfo - краткие сведения о сохраненном логе.
type LogInfo struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	CivCount    int       `json:"civCount"`
	ActionCount int       `json:"actionCount"`
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Один писатель: sqlite не любит конкурентные записи из пула.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveLog сохраняет лог целиком (INSERT OR REPLACE по ID).
func (s *SQLiteStore) SaveLog(ctx context.Context, log *actionlog.Log) error {
	var raw bytes.Buffer
	if err := Encode(&raw, log); err != nil {
		return fmt.Errorf("encode log: %w", err)
	}
	blob, err := compress(raw.Bytes())
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO action_logs (id, created_at, civ_count, action_count, data) VALUES (?, ?, ?, ?, ?)`,
		log.ID().String(), log.CreatedAt().UnixNano(), len(log.Civilizations()), log.ActionCount(), blob)
	if err != nil {
		return fmt.Errorf("insert log %s: %w", log.ID(), err)
	}
	return nil
}

// LoadLog читает лог по ID. Нет такого - domain.ErrNotFound.
func (s *SQLiteStore) LoadLog(ctx context.Context, id string) (*actionlog.Log, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM action_logs WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: action log %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select log %s: %w", id, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("gunzip log %s: %w", id, err)
	}
	defer zr.Close()

	return Decode(zr)
}

// LogInfo возвращает метаданные лога без распаковки.
func (s *SQLiteStore) LogInfo(ctx context.Context, id string) (LogInfo, error) {
	var (
		info    LogInfo
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, civ_count, action_count FROM action_logs WHERE id = ?`, id).
		Scan(&info.ID, &created, &info.CivCount, &info.ActionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return LogInfo{}, fmt.Errorf("%w: action log %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return LogInfo{}, err
	}
	info.CreatedAt = time.Unix(0, created).UTC()
	return info, nil
}

// --- Релей файлов мультиплеера ---

func (s *SQLiteStore) PutFile(ctx context.Context, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO relay_files (name, data, updated_at) VALUES (?, ?, ?)`,
		name, data, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("put file %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) GetFile(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM relay_files WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", name, err)
	}
	return data, nil
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM relay_files WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: file %s", domain.ErrNotFound, name)
	}
	return nil
}

// --- Отчеты симуляций ---

// SaveReport сохраняет JSON готового отчета.
func (s *SQLiteStore) SaveReport(ctx context.Context, id string, steps int, report []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO simulation_reports (id, created_at, steps, report) VALUES (?, ?, ?, ?)`,
		id, time.Now().UnixNano(), steps, string(report))
	if err != nil {
		return fmt.Errorf("insert report %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) LoadReport(ctx context.Context, id string) ([]byte, error) {
	var report string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM simulation_reports WHERE id = ?`, id).Scan(&report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: report %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return []byte(report), nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}
