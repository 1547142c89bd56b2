package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertEntity inserts or updates a contact/group record. Inclusion and
// company name are preserved on update; they change only via SetIncluded
// and SetCompanyName.
func (db *DB) UpsertEntity(e *Entity) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO entities (chat_id, kind, phone, display_name, push_name, subject, company_name, included, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			kind = excluded.kind,
			phone = CASE WHEN excluded.phone != '' THEN excluded.phone ELSE entities.phone END,
			display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE entities.display_name END,
			push_name = CASE WHEN excluded.push_name != '' THEN excluded.push_name ELSE entities.push_name END,
			subject = CASE WHEN excluded.subject != '' THEN excluded.subject ELSE entities.subject END,
			updated_at = excluded.updated_at`,
		e.ChatID, e.Kind, e.Phone, e.DisplayName, e.PushName, e.Subject, e.CompanyName, e.Included, now, now)
	return err
}

// BulkUpsertEntities inserts or updates multiple entities in a single transaction.
func (db *DB) BulkUpsertEntities(entities []Entity) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, e := range entities {
		if _, err := tx.Exec(`
			INSERT INTO entities (chat_id, kind, phone, display_name, push_name, subject, company_name, included, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chat_id) DO UPDATE SET
				kind = excluded.kind,
				phone = CASE WHEN excluded.phone != '' THEN excluded.phone ELSE entities.phone END,
				display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE entities.display_name END,
				push_name = CASE WHEN excluded.push_name != '' THEN excluded.push_name ELSE entities.push_name END,
				subject = CASE WHEN excluded.subject != '' THEN excluded.subject ELSE entities.subject END,
				updated_at = excluded.updated_at`,
			e.ChatID, e.Kind, e.Phone, e.DisplayName, e.PushName, e.Subject, e.CompanyName, e.Included, now, now); err != nil {
			return fmt.Errorf("upsert entity %q: %w", e.ChatID, err)
		}
	}
	return tx.Commit()
}

// GetEntity returns an entity by chat ID, or nil if absent.
func (db *DB) GetEntity(chatID string) (*Entity, error) {
	var e Entity
	err := db.QueryRow(`
		SELECT chat_id, kind, phone, display_name, push_name, subject, company_name, included
		FROM entities WHERE chat_id = ?`, chatID).
		Scan(&e.ChatID, &e.Kind, &e.Phone, &e.DisplayName, &e.PushName, &e.Subject, &e.CompanyName, &e.Included)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntities returns all known entities ordered by chat ID.
func (db *DB) ListEntities() ([]Entity, error) {
	rows, err := db.Query(`
		SELECT chat_id, kind, phone, display_name, push_name, subject, company_name, included
		FROM entities ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entities []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ChatID, &e.Kind, &e.Phone, &e.DisplayName, &e.PushName, &e.Subject, &e.CompanyName, &e.Included); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// ListIncluded returns chat IDs of every entity with the inclusion flag set.
func (db *DB) ListIncluded() ([]string, error) {
	rows, err := db.Query(`SELECT chat_id FROM entities WHERE included = 1 ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

// SetIncluded flips the inclusion flag for a chat. Returns sql.ErrNoRows
// semantics via found=false when the chat is unknown.
func (db *DB) SetIncluded(chatID string, included bool) (bool, error) {
	res, err := db.Exec(`UPDATE entities SET included = ?, updated_at = ? WHERE chat_id = ?`,
		included, time.Now().UnixMilli(), chatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetCompanyName assigns the operator-chosen company name for a chat.
func (db *DB) SetCompanyName(chatID, companyName string) (bool, error) {
	res, err := db.Exec(`UPDATE entities SET company_name = ?, updated_at = ? WHERE chat_id = ?`,
		companyName, time.Now().UnixMilli(), chatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
