package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openagora/agora/internal/storage"
)

// Store is a SQLite implementation of HistoryStore.
type Store struct {
	db *sql.DB
}

var _ storage.HistoryStore = (*Store)(nil)

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			agent TEXT,
			content TEXT NOT NULL,
			kind TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) CreateConversation(ctx context.Context, conv *storage.Conversation) error {
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = time.Now()

	metadata, err := json.Marshal(conv.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO conversations (id, user_id, question, answer, metadata, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		conv.ID, conv.UserID, conv.Question, conv.Answer, string(metadata),
		conv.CreatedAt, conv.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

func (s *Store) AddTurn(ctx context.Context, convID string, turn *storage.Turn) error {
	turn.CreatedAt = time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO turns (id, conversation_id, role, agent, content, kind, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, query,
		turn.ID, convID, turn.Role, turn.Agent, turn.Content, turn.Kind, turn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	updateQuery := `UPDATE conversations SET updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, updateQuery, time.Now(), convID); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return tx.Commit()
}

func (s *Store) GetConversation(ctx context.Context, id string) (*storage.Conversation, error) {
	query := `SELECT id, user_id, question, answer, metadata, created_at, updated_at
	          FROM conversations WHERE id = ?`

	var conv storage.Conversation
	var answer, metadataJSON sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID, &conv.UserID, &conv.Question, &answer, &metadataJSON,
		&conv.CreatedAt, &conv.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	conv.Answer = answer.String
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &conv.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	turns, err := s.getTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Turns = turns

	return &conv, nil
}

func (s *Store) getTurns(ctx context.Context, convID string) ([]storage.Turn, error) {
	query := `SELECT id, role, agent, content, kind, created_at
	          FROM turns WHERE conversation_id = ?
	          ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, convID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []storage.Turn
	for rows.Next() {
		var turn storage.Turn
		var agent sql.NullString
		if err := rows.Scan(&turn.ID, &turn.Role, &agent, &turn.Content, &turn.Kind, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Agent = agent.String
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

func (s *Store) ListConversations(ctx context.Context, opts storage.ListOptions) ([]*storage.Conversation, error) {
	query := `SELECT id, user_id, question, answer, metadata, created_at, updated_at
	          FROM conversations WHERE user_id = ?
	          ORDER BY updated_at DESC
	          LIMIT ? OFFSET ?`

	limit := opts.Limit
	if limit == 0 {
		limit = 100 // default limit
	}

	rows, err := s.db.QueryContext(ctx, query, opts.UserID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*storage.Conversation
	for rows.Next() {
		var conv storage.Conversation
		var answer, metadataJSON sql.NullString

		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Question, &answer, &metadataJSON,
			&conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		conv.Answer = answer.String
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &conv.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		turns, err := s.getTurns(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		conv.Turns = turns

		conversations = append(conversations, &conv)
	}

	return conversations, rows.Err()
}

func (s *Store) SetAnswer(ctx context.Context, convID, answer string) error {
	query := `UPDATE conversations SET answer = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, answer, time.Now(), convID)
	if err != nil {
		return fmt.Errorf("failed to set answer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("conversation %s not found", convID)
	}

	return nil
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	query := `DELETE FROM conversations WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("conversation %s not found", id)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
