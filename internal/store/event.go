package store

import (
	"database/sql"
	"time"
)

// BurstEvent records one completed burst.
type BurstEvent struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	BurstID     string    `json:"burst_id"`
	Gesture     string    `json:"gesture"`
	Level       int       `json:"level"`
	CompletedAt time.Time `json:"completed_at"`
}

// EventRepository stores the burst history of sessions.
type EventRepository struct {
	db *sql.DB
}

// Events returns the burst event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts a burst event and sets its ID.
func (r *EventRepository) Record(e *BurstEvent) error {
	result, err := r.db.Exec(
		`INSERT INTO burst_events (session_id, burst_id, gesture, level, completed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.SessionID, e.BurstID, e.Gesture, e.Level, e.CompletedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListBySession retrieves the burst events of a session in completion order.
func (r *EventRepository) ListBySession(sessionID string) ([]BurstEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, burst_id, gesture, level, completed_at
		 FROM burst_events
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []BurstEvent
	for rows.Next() {
		var e BurstEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.BurstID, &e.Gesture, &e.Level, &e.CompletedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CountBySession returns the number of completed bursts of a session per gesture.
func (r *EventRepository) CountBySession(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT gesture, COUNT(*) FROM burst_events WHERE session_id = ? GROUP BY gesture`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var gesture string
		var n int
		if err := rows.Scan(&gesture, &n); err != nil {
			return nil, err
		}
		counts[gesture] = n
	}

	return counts, rows.Err()
}
