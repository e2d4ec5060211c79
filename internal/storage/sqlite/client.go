package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rag-console/console/internal/settings"
	"github.com/rag-console/console/internal/storage/models"
	"github.com/rag-console/console/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		payload TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings_revisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_revisions_created ON settings_revisions(created_at);

	CREATE TABLE IF NOT EXISTS connection_tests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service TEXT NOT NULL,
		success INTEGER NOT NULL,
		detail TEXT,
		duration_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tests_service ON connection_tests(service);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// LoadSettings returns settings.ErrNotFound until the first save.
func (c *Client) LoadSettings(ctx context.Context) (settings.Settings, error) {
	var payload string
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM settings WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Settings{}, settings.ErrNotFound
	}
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	s := settings.Defaults()
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return settings.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, nil
}

// SaveSettings writes the current settings and appends a revision in one
// transaction.
func (c *Client) SaveSettings(ctx context.Context, s settings.Settings) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	now := time.Now().Unix()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO settings (id, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, string(payload), now)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settings_revisions (payload, created_at) VALUES (?, ?)`,
		string(payload), now,
	)
	if err != nil {
		return fmt.Errorf("failed to record settings revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}

	logger.Debug("Settings saved", zap.Int64("at", now))
	return nil
}

func (c *Client) SettingsRevisions(ctx context.Context, limit int) ([]models.SettingsRevision, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, payload, created_at FROM settings_revisions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings revisions: %w", err)
	}
	defer rows.Close()

	var revisions []models.SettingsRevision
	for rows.Next() {
		var r models.SettingsRevision
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan settings revision: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		revisions = append(revisions, r)
	}

	return revisions, rows.Err()
}

// LastSaved returns when settings were last saved, or the zero time.
func (c *Client) LastSaved(ctx context.Context) (time.Time, error) {
	revs, err := c.SettingsRevisions(ctx, 1)
	if err != nil || len(revs) == 0 {
		return time.Time{}, err
	}
	return revs[0].CreatedAt, nil
}

func (c *Client) RecordConnectionTest(ctx context.Context, t *models.ConnectionTest) error {
	success := 0
	if t.Success {
		success = 1
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO connection_tests (service, success, detail, duration_ms, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.Service, success, t.Detail, t.DurationMS, t.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record connection test: %w", err)
	}
	return nil
}

// RecordTest stores one connection test outcome.
func (c *Client) RecordTest(ctx context.Context, service string, ok bool, detail string, took time.Duration) error {
	return c.RecordConnectionTest(ctx, &models.ConnectionTest{
		Service:    service,
		Success:    ok,
		Detail:     detail,
		DurationMS: int(took.Milliseconds()),
		CreatedAt:  time.Now(),
	})
}

func (c *Client) LastConnectionTests(ctx context.Context) (map[string]models.ConnectionTest, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, service, success, detail, duration_ms, created_at
		FROM connection_tests
		WHERE id IN (SELECT MAX(id) FROM connection_tests GROUP BY service)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query connection tests: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.ConnectionTest)
	for rows.Next() {
		var t models.ConnectionTest
		var success int
		var detail sql.NullString
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.Service, &success, &detail, &t.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection test: %w", err)
		}
		t.Success = success == 1
		t.Detail = detail.String
		t.CreatedAt = time.Unix(createdAt, 0)
		out[t.Service] = t
	}

	return out, rows.Err()
}
