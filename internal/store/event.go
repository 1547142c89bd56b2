package store

import "time"

// InsertLocalEvent records the local mirror of a calendar write.
// The UNIQUE(chat_id, start_ms, end_ms, title) constraint makes repeated
// inserts of the same rendered session idempotent.
func (db *DB) InsertLocalEvent(ev *LocalEvent) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT OR IGNORE INTO local_events (chat_id, title, start_ms, end_ms, body, external_event_id, inbound_count, outbound_count, message_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ChatID, ev.Title, ev.StartMs, ev.EndMs, ev.Body, ev.ExternalEventID, ev.InboundCount, ev.OutboundCount, ev.MessageCount, now)
	return err
}

// ListLocalEvents returns mirrored events, optionally filtered by chat,
// ordered by start time ascending.
func (db *DB) ListLocalEvents(chatID string) ([]LocalEvent, error) {
	query := `
		SELECT id, chat_id, title, start_ms, end_ms, body, external_event_id, inbound_count, outbound_count, message_count, created_at
		FROM local_events`
	args := []any{}
	if chatID != "" {
		query += ` WHERE chat_id = ?`
		args = append(args, chatID)
	}
	query += ` ORDER BY start_ms ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []LocalEvent
	for rows.Next() {
		var ev LocalEvent
		if err := rows.Scan(&ev.ID, &ev.ChatID, &ev.Title, &ev.StartMs, &ev.EndMs, &ev.Body, &ev.ExternalEventID, &ev.InboundCount, &ev.OutboundCount, &ev.MessageCount, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
