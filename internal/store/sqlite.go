package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SakshiShukla1/forensight/internal/evidence"
)

// Store archives cases and evidence in SQLite. The dashboard treats it as
// a session archive: the default DSN is ":memory:" so nothing outlives
// the process unless the analyst points --db at a file.
type Store struct {
	db *sql.DB
}

// CaseRow is an archived case with its evidence count.
type CaseRow struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	EvidenceCount int       `json:"evidence_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewStore opens (and migrates) the archive at dbPath.
func NewStore(dbPath string) (*Store, error) {
	// Ensure target directory exists for file-backed archives.
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open(sqliteDriver, dbPath+sqliteDSNOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS cases (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS evidence (
			id INTEGER PRIMARY KEY,
			case_id INTEGER NOT NULL,
			module TEXT NOT NULL,
			target TEXT NOT NULL,
			verdict TEXT NOT NULL,
			risk_score INTEGER NOT NULL,
			details TEXT NOT NULL,
			captured_at TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_evidence_case_id ON evidence(case_id)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_module ON evidence(module)`,
		`CREATE INDEX IF NOT EXISTS idx_cases_created_at ON cases(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return s.setupActivityTable()
}

// SaveCase archives a case. Saving an existing id refreshes its name.
func (s *Store) SaveCase(ctx context.Context, id int64, name string, createdAt time.Time) error {
	query := `INSERT OR REPLACE INTO cases (id, name, created_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, name, createdAt.Unix()); err != nil {
		return fmt.Errorf("failed to save case %d: %w", id, err)
	}
	return nil
}

// SaveEvidence archives an evidence record under its case.
func (s *Store) SaveEvidence(ctx context.Context, caseID int64, rec evidence.Record) error {
	detailsJSON, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence details: %w", err)
	}

	query := `INSERT INTO evidence (
		id, case_id, module, target, verdict, risk_score, details, captured_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID, caseID, string(rec.Module), rec.Target, rec.Verdict,
		rec.Score, string(detailsJSON), rec.Timestamp, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save evidence %d: %w", rec.ID, err)
	}
	return nil
}

// GetCase returns a single archived case.
func (s *Store) GetCase(ctx context.Context, id int64) (CaseRow, error) {
	query := `SELECT c.id, c.name, c.created_at,
		(SELECT COUNT(1) FROM evidence e WHERE e.case_id = c.id)
		FROM cases c WHERE c.id = ?`

	var row CaseRow
	var createdAt int64
	err := s.db.QueryRowContext(ctx, query, id).Scan(&row.ID, &row.Name, &createdAt, &row.EvidenceCount)
	if err == sql.ErrNoRows {
		return CaseRow{}, fmt.Errorf("no case with id %d", id)
	}
	if err != nil {
		return CaseRow{}, fmt.Errorf("failed to query case %d: %w", id, err)
	}
	row.CreatedAt = time.Unix(createdAt, 0)
	return row, nil
}

// ListCases returns all archived cases, newest first.
func (s *Store) ListCases(ctx context.Context) ([]CaseRow, error) {
	query := `SELECT c.id, c.name, c.created_at,
		(SELECT COUNT(1) FROM evidence e WHERE e.case_id = c.id)
		FROM cases c ORDER BY c.created_at DESC, c.id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	var cases []CaseRow
	for rows.Next() {
		var row CaseRow
		var createdAt int64
		if err := rows.Scan(&row.ID, &row.Name, &createdAt, &row.EvidenceCount); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		row.CreatedAt = time.Unix(createdAt, 0)
		cases = append(cases, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case rows: %w", err)
	}
	return cases, nil
}

// GetEvidenceByCase returns a case's archived evidence, most recent first
// (descending record id matches ingestion order).
func (s *Store) GetEvidenceByCase(ctx context.Context, caseID int64) ([]evidence.Record, error) {
	query := `SELECT id, module, target, verdict, risk_score, details, captured_at
		FROM evidence WHERE case_id = ? ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence: %w", err)
	}
	defer rows.Close()

	var records []evidence.Record
	for rows.Next() {
		var rec evidence.Record
		var module, detailsJSON string
		if err := rows.Scan(&rec.ID, &module, &rec.Target, &rec.Verdict,
			&rec.Score, &detailsJSON, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		rec.Module = evidence.Module(module)
		if err := json.Unmarshal([]byte(detailsJSON), &rec.Details); err != nil {
			rec.Details = []string{}
		}
		if rec.Details == nil {
			rec.Details = []string{}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evidence rows: %w", err)
	}
	return records, nil
}

// Reset removes all archived cases, evidence, and activity.
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{"activity", "evidence", "cases"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
