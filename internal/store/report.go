package store

import (
	"database/sql"
	"errors"
	"time"
)

// Report is the persisted result of a finished session.
type Report struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Reason      string    `json:"reason"`
	Level       int       `json:"level"`
	Label       string    `json:"engagement_label"`
	MMSS        string    `json:"mmss"`
	ActionType  string    `json:"action_type"`
	ActionCount int       `json:"action_count"`
	WaitingPct  int       `json:"waiting_pct"`
	TotalBursts int       `json:"total_bursts"`
	ShotPath    string    `json:"-"`
	ShotURL     string    `json:"shot_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportRepository provides operations for reports.
type ReportRepository struct {
	db *sql.DB
}

// Reports returns the report repository for this store.
func (s *Store) Reports() *ReportRepository {
	return &ReportRepository{db: s.db}
}

const reportColumns = `id, session_id, reason, level, label, mmss, action_type, action_count,
	waiting_pct, total_bursts, shot_path, shot_url, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*Report, error) {
	rep := &Report{}
	err := row.Scan(&rep.ID, &rep.SessionID, &rep.Reason, &rep.Level, &rep.Label, &rep.MMSS,
		&rep.ActionType, &rep.ActionCount, &rep.WaitingPct, &rep.TotalBursts,
		&rep.ShotPath, &rep.ShotURL, &rep.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rep, nil
}

// Create inserts a new report into the database.
func (r *ReportRepository) Create(rep *Report) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO reports (`+reportColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.SessionID, rep.Reason, rep.Level, rep.Label, rep.MMSS,
		rep.ActionType, rep.ActionCount, rep.WaitingPct, rep.TotalBursts,
		rep.ShotPath, rep.ShotURL, rep.CreatedAt,
	)
	return err
}

// GetByID retrieves a report by its ID.
func (r *ReportRepository) GetByID(id string) (*Report, error) {
	return scanReport(r.db.QueryRow(
		`SELECT `+reportColumns+` FROM reports WHERE id = ?`, id,
	))
}

// Latest retrieves the most recently created report.
func (r *ReportRepository) Latest() (*Report, error) {
	return scanReport(r.db.QueryRow(
		`SELECT ` + reportColumns + ` FROM reports ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	))
}

// List retrieves up to limit reports, newest first.
func (r *ReportRepository) List(limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reports, nil
}

// SetShotPath records where the local composite shot was written.
func (r *ReportRepository) SetShotPath(id, path string) error {
	result, err := r.db.Exec(`UPDATE reports SET shot_path = ? WHERE id = ?`, path, id)
	if err != nil {
		return err
	}
	return affected(result)
}

// SetShotURL records the public URL of the uploaded composite shot.
func (r *ReportRepository) SetShotURL(id, url string) error {
	result, err := r.db.Exec(`UPDATE reports SET shot_url = ? WHERE id = ?`, url, id)
	if err != nil {
		return err
	}
	return affected(result)
}
