package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	courerrors "courier/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	last_seen  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS conversations (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL DEFAULT '',
	direct          INTEGER NOT NULL DEFAULT 0,
	last_message    TEXT NOT NULL DEFAULT '',
	last_message_at INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	user_id         TEXT NOT NULL REFERENCES users(id),
	unread_count    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (conversation_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	sender_id       TEXT NOT NULL REFERENCES users(id),
	content         TEXT NOT NULL,
	sent_at         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, sent_at DESC);
CREATE INDEX IF NOT EXISTS idx_participants_user
	ON participants(user_id);
`

// recentContactWindow bounds how far back message activity still counts
// as "recent" for contact scoring.
const recentContactWindow = 7 * 24 * time.Hour

// SQLiteStore implements Store on top of modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path. Use ":memory:"
// for tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// DB exposes the handle for seeding in tests and the CLI.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// UpsertUser inserts or replaces a directory entry.
func (s *SQLiteStore) UpsertUser(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, avatar_url, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			avatar_url = excluded.avatar_url,
			last_seen = excluded.last_seen`,
		u.ID, u.Name, u.Email, u.Phone, u.AvatarURL, u.LastSeen.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, avatar_url, last_seen
		FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, courerrors.NewNotFound("contact", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, userID string) ([]Contact, error) {
	cutoff := time.Now().Add(-recentContactWindow).UnixMilli()
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.phone, u.avatar_url, u.last_seen,
			EXISTS (
				SELECT 1 FROM messages m
				JOIN participants p1 ON p1.conversation_id = m.conversation_id AND p1.user_id = ?
				JOIN participants p2 ON p2.conversation_id = m.conversation_id AND p2.user_id = u.id
				WHERE m.sent_at >= ?
			) AS recent
		FROM users u
		WHERE u.id != ?
		ORDER BY u.name`, userID, cutoff, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts for %s: %w", userID, err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		var lastSeen int64
		var recent int
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.AvatarURL, &lastSeen, &recent); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		c.LastSeen = time.UnixMilli(lastSeen)
		c.Recent = recent == 1
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id, userID string) (*Conversation, error) {
	ok, err := s.IsParticipant(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Access denied reads the same as not found.
		return nil, courerrors.NewNotFound("conversation", id)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, direct, last_message, last_message_at, created_at
		FROM conversations WHERE id = ?`, id)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, courerrors.NewNotFound("conversation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	if conv.Participants, err = s.participantIDs(ctx, id); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *SQLiteStore) FindDirectConversation(ctx context.Context, userA, userB string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.title, c.direct, c.last_message, c.last_message_at, c.created_at
		FROM conversations c
		JOIN participants pa ON pa.conversation_id = c.id AND pa.user_id = ?
		JOIN participants pb ON pb.conversation_id = c.id AND pb.user_id = ?
		WHERE c.direct = 1
		ORDER BY c.last_message_at DESC
		LIMIT 1`, userA, userB)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, courerrors.NewNotFound("conversation", "")
	}
	if err != nil {
		return nil, fmt.Errorf("find direct conversation: %w", err)
	}
	if conv.Participants, err = s.participantIDs(ctx, conv.ID); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	if len(conv.Participants) == 0 {
		return fmt.Errorf("conversation %s has no participants", conv.ID)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, title, direct, last_message, last_message_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.Title, boolToInt(conv.Direct),
		conv.LastMessage, conv.LastMessageAt.UnixMilli(), conv.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("insert conversation %s: %w", conv.ID, err)
	}
	for _, uid := range conv.Participants {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO participants (conversation_id, user_id) VALUES (?, ?)`,
			conv.ID, uid); err != nil {
			return fmt.Errorf("insert participant %s: %w", uid, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListConversations(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.direct, c.last_message, c.last_message_at, c.created_at
		FROM conversations c
		JOIN participants p ON p.conversation_id = c.id
		WHERE p.user_id = ?
		ORDER BY c.last_message_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations for %s: %w", userID, err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		conv, err := scanConversationRows(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range convs {
		if convs[i].Participants, err = s.participantIDs(ctx, convs[i].ID); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]Message, error) {
	ok, err := s.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, courerrors.NewNotFound("conversation", conversationID)
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, u.name, m.content, m.sent_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ?
		ORDER BY m.sent_at DESC
		LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages %s: %w", conversationID, err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var sentAt int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Content, &sentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.SentAt = time.UnixMilli(sentAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	ok, err := s.IsParticipant(ctx, msg.ConversationID, msg.SenderID)
	if err != nil {
		return err
	}
	if !ok {
		return courerrors.NewNotFound("conversation", msg.ConversationID)
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, sent_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.SentAt.UnixMilli()); err != nil {
		return fmt.Errorf("insert message %s: %w", msg.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_message = ?, last_message_at = ?
		WHERE id = ?`,
		msg.Content, msg.SentAt.UnixMilli(), msg.ConversationID); err != nil {
		return fmt.Errorf("update conversation metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE participants SET unread_count = unread_count + 1
		WHERE conversation_id = ? AND user_id != ?`,
		msg.ConversationID, msg.SenderID); err != nil {
		return fmt.Errorf("bump unread counts: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) SearchMessagesText(ctx context.Context, userID, query string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, u.name, m.content, m.sent_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		JOIN participants p ON p.conversation_id = m.conversation_id AND p.user_id = ?
		WHERE m.content LIKE ? ESCAPE '\'
		ORDER BY m.sent_at DESC
		LIMIT ?`, userID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search messages for %s: %w", userID, err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var sentAt int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Content, &sentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.SentAt = time.UnixMilli(sentAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListAllMessages returns up to limit messages across all conversations,
// newest first (0 = no limit). Used to backfill the vector index.
func (s *SQLiteStore) ListAllMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, u.name, m.content, m.sent_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		ORDER BY m.sent_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list all messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var sentAt int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Content, &sentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.SentAt = time.UnixMilli(sentAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *SQLiteStore) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM participants WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) participantIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM participants WHERE conversation_id = ? ORDER BY user_id`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("list participants %s: %w", conversationID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var lastSeen int64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.AvatarURL, &lastSeen); err != nil {
		return nil, err
	}
	u.LastSeen = time.UnixMilli(lastSeen)
	return &u, nil
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var c Conversation
	var direct int
	var lastAt, createdAt int64
	if err := row.Scan(&c.ID, &c.Title, &direct, &c.LastMessage, &lastAt, &createdAt); err != nil {
		return nil, err
	}
	c.Direct = direct == 1
	c.LastMessageAt = time.UnixMilli(lastAt)
	c.CreatedAt = time.UnixMilli(createdAt)
	return &c, nil
}

func scanConversationRows(rows *sql.Rows) (*Conversation, error) {
	conv, err := scanConversation(rows)
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return conv, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
