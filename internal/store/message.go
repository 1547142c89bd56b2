package store

import (
	"fmt"
	"time"
)

// InsertMessages inserts new messages for a chat, ignoring rows whose
// (chat_id, msg_id) already exists. Stored messages are never updated.
// Returns the number of newly inserted rows.
func (db *DB) InsertMessages(chatID string, msgs []Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	inserted := 0
	for _, m := range msgs {
		res, err := tx.Exec(`
			INSERT OR IGNORE INTO messages (chat_id, msg_id, sender_display, body, media_kind, from_me, timestamp, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			chatID, m.MsgID, m.SenderDisplay, m.Body, m.MediaKind, m.FromMe, m.Timestamp, now)
		if err != nil {
			return 0, fmt.Errorf("insert message %q: %w", m.MsgID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// CountMessages returns the number of stored messages for a chat within
// [startMs, endMs]. The orchestrator uses this to decide whether a fetch
// against the source API is necessary at all.
func (db *DB) CountMessages(chatID string, startMs, endMs int64) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM messages
		WHERE chat_id = ? AND timestamp >= ? AND timestamp <= ?`,
		chatID, startMs, endMs).Scan(&count)
	return count, err
}

// ListMessagesBetween returns messages for a chat within [startMs, endMs],
// ordered by timestamp ascending. Equal timestamps keep insertion order.
func (db *DB) ListMessagesBetween(chatID string, startMs, endMs int64) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, chat_id, msg_id, sender_display, body, media_kind, from_me, timestamp
		FROM messages
		WHERE chat_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, id ASC`,
		chatID, startMs, endMs)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.MsgID, &m.SenderDisplay, &m.Body, &m.MediaKind, &m.FromMe, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the total number of stored messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
