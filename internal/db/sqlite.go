package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RichardoC/bizchat/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conv_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
    content TEXT NOT NULL,
    ip TEXT NOT NULL DEFAULT '',
    ua TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (conv_id) REFERENCES conversations(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_conv_id ON messages(conv_id, id);`

var (
	ErrInvalidRole         = errors.New("db: invalid message role")
	ErrMissingConversation = errors.New("db: message has no conversation id")
)

type Database struct {
	db *sql.DB
}

// New opens (or creates) the SQLite file at dbPath and applies the schema.
// Running it against an existing database is a no-op.
func New(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", dbPath, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

// EnsureConversation inserts the conversation if it does not exist yet and
// returns the stored record.
func (db *Database) EnsureConversation(ctx context.Context, id string) (*models.Conversation, error) {
	if id == "" {
		return nil, ErrMissingConversation
	}

	_, err := db.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, created_at) VALUES (?, ?)`,
		id, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	conv := &models.Conversation{}
	err = db.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading conversation: %w", err)
	}
	return conv, nil
}

func (db *Database) ConversationExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := db.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM conversations WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking conversation: %w", err)
	}
	return n > 0, nil
}

// SaveMessage appends msg and fills in its ID and CreatedAt. System
// messages are rejected.
func (db *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	if !msg.Role.Valid() || msg.Role == models.RoleSystem {
		return fmt.Errorf("%w: %q", ErrInvalidRole, msg.Role)
	}
	if msg.ConvID == "" {
		return ErrMissingConversation
	}

	now := time.Now().UTC()
	res, err := db.db.ExecContext(ctx, `
        INSERT INTO messages (conv_id, role, content, ip, ua, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ConvID, string(msg.Role), msg.Content, msg.IP, msg.UA, now)
	if err != nil {
		return fmt.Errorf("saving message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("saving message: %w", err)
	}
	msg.ID = id
	msg.CreatedAt = now
	return nil
}

// GetConversationHistory returns up to limit messages of the conversation
// with an id below beforeID, newest first. beforeID <= 0 means no upper bound.
func (db *Database) GetConversationHistory(ctx context.Context, convID string, beforeID int64, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return []models.Message{}, nil
	}

	query := `
        SELECT id, conv_id, role, content, ip, ua, created_at
        FROM messages
        WHERE conv_id = ? AND (? <= 0 OR id < ?)
        ORDER BY id DESC
        LIMIT ?`

	rows, err := db.db.QueryContext(ctx, query, convID, beforeID, beforeID, limit)
	if err != nil {
		return []models.Message{}, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return []models.Message{}, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return []models.Message{}, fmt.Errorf("querying history: %w", err)
	}
	return messages, nil
}

// EachMessage calls fn for every stored message in ascending id order.
// Iteration stops at the first error returned by fn.
func (db *Database) EachMessage(ctx context.Context, fn func(models.Message) error) error {
	rows, err := db.db.QueryContext(ctx, `
        SELECT id, conv_id, role, content, ip, ua, created_at
        FROM messages
        ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (db *Database) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := db.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}

func scanMessage(rows *sql.Rows) (models.Message, error) {
	var (
		msg  models.Message
		role string
	)
	if err := rows.Scan(&msg.ID, &msg.ConvID, &role, &msg.Content, &msg.IP, &msg.UA, &msg.CreatedAt); err != nil {
		return models.Message{}, fmt.Errorf("scanning message: %w", err)
	}
	msg.Role = models.Role(role)
	return msg, nil
}
