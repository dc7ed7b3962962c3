package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivityEntry records one analyst or system action against a case.
type ActivityEntry struct {
	ID        string                 `json:"id"`
	CaseID    int64                  `json:"case_id"`
	Action    string                 `json:"action"` // "case_created", "case_switched", "evidence_added", "report_exported"
	Details   map[string]interface{} `json:"details"`
	CreatedAt time.Time              `json:"created_at"`
}

func (s *Store) setupActivityTable() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS activity (
			id TEXT PRIMARY KEY,
			case_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			details TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_case_id ON activity(case_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute activity migration: %w", err)
		}
	}
	return nil
}

// LogActivity appends an entry to a case's activity trail.
func (s *Store) LogActivity(ctx context.Context, caseID int64, action string, details map[string]interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal activity details: %w", err)
	}

	query := `INSERT INTO activity (id, case_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		uuid.NewString(), caseID, action, string(detailsJSON), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert activity entry: %w", err)
	}
	return nil
}

// GetActivity returns a case's activity trail, newest first. A limit of 0
// returns everything.
func (s *Store) GetActivity(ctx context.Context, caseID int64, limit int) ([]ActivityEntry, error) {
	query := `SELECT id, case_id, action, details, created_at
		FROM activity WHERE case_id = ? ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var entry ActivityEntry
		var detailsJSON string
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.CaseID, &entry.Action, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0)
		if err := json.Unmarshal([]byte(detailsJSON), &entry.Details); err != nil {
			entry.Details = map[string]interface{}{"raw": detailsJSON}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return entries, nil
}
