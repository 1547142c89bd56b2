package store

import "database/sql"

// PutSyncStatus writes the per-chat status row for the latest run.
func (db *DB) PutSyncStatus(s *SyncStatus) error {
	_, err := db.Exec(`
		INSERT INTO sync_status (chat_id, last_run_at, ok, messages_seen, events_created, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			ok = excluded.ok,
			messages_seen = excluded.messages_seen,
			events_created = excluded.events_created,
			error = excluded.error`,
		s.ChatID, s.LastRunAt, s.OK, s.MessagesSeen, s.EventsCreated, s.Error)
	return err
}

// GetSyncStatus returns the latest status row for a chat, or nil if absent.
func (db *DB) GetSyncStatus(chatID string) (*SyncStatus, error) {
	var s SyncStatus
	err := db.QueryRow(`
		SELECT chat_id, last_run_at, ok, messages_seen, events_created, error
		FROM sync_status WHERE chat_id = ?`, chatID).
		Scan(&s.ChatID, &s.LastRunAt, &s.OK, &s.MessagesSeen, &s.EventsCreated, &s.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSyncStatus returns all status rows ordered by chat ID.
func (db *DB) ListSyncStatus() ([]SyncStatus, error) {
	rows, err := db.Query(`
		SELECT chat_id, last_run_at, ok, messages_seen, events_created, error
		FROM sync_status ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var statuses []SyncStatus
	for rows.Next() {
		var s SyncStatus
		if err := rows.Scan(&s.ChatID, &s.LastRunAt, &s.OK, &s.MessagesSeen, &s.EventsCreated, &s.Error); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}
