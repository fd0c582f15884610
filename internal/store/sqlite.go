package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dreamtumulus/andun/internal/model/report"
	"github.com/dreamtumulus/andun/internal/model/subject"
)

// SQLiteStore persists subject records durably. Each top-level record field
// lives in its own JSON column so Save can overwrite named fields wholesale,
// matching the shallow-merge contract.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL mode for better concurrency. _pragma entries are applied by the
	// driver on every new connection in the pool.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS subject_records (
		subject_id      TEXT PRIMARY KEY,
		assessment_json TEXT NOT NULL DEFAULT '[]',
		counseling_json TEXT NOT NULL DEFAULT '[]',
		report_json     TEXT,
		documents_json  TEXT NOT NULL DEFAULT '[]',
		turn_count      INTEGER NOT NULL DEFAULT 0,
		updated_at      INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get loads the record, inserting an empty row on first access.
func (s *SQLiteStore) Get(ctx context.Context, subjectID string) (subject.Record, error) {
	if subjectID == "" {
		return subject.Record{}, ErrEmptySubjectID
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT assessment_json, counseling_json, report_json, documents_json, turn_count
		FROM subject_records WHERE subject_id = ?`, subjectID)

	var (
		assessmentJSON, counselingJSON, documentsJSON string
		reportJSON                                    sql.NullString
		turnCount                                     int
	)
	err := row.Scan(&assessmentJSON, &counselingJSON, &reportJSON, &documentsJSON, &turnCount)
	if err == sql.ErrNoRows {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO subject_records (subject_id, updated_at) VALUES (?, ?)
			ON CONFLICT(subject_id) DO NOTHING`, subjectID, time.Now().Unix())
		if err != nil {
			return subject.Record{}, fmt.Errorf("init record: %w", err)
		}
		return subject.Record{}, nil
	}
	if err != nil {
		return subject.Record{}, fmt.Errorf("load record: %w", err)
	}

	var rec subject.Record
	if err := json.Unmarshal([]byte(assessmentJSON), &rec.AssessmentLog); err != nil {
		return subject.Record{}, fmt.Errorf("decode assessment log: %w", err)
	}
	if err := json.Unmarshal([]byte(counselingJSON), &rec.CounselingLog); err != nil {
		return subject.Record{}, fmt.Errorf("decode counseling log: %w", err)
	}
	if err := json.Unmarshal([]byte(documentsJSON), &rec.Documents); err != nil {
		return subject.Record{}, fmt.Errorf("decode documents: %w", err)
	}
	if reportJSON.Valid && reportJSON.String != "" {
		rec.Report = &report.Report{}
		if err := json.Unmarshal([]byte(reportJSON.String), rec.Report); err != nil {
			return subject.Record{}, fmt.Errorf("decode report: %w", err)
		}
	}
	rec.TurnCount = turnCount
	return rec, nil
}

// Save overwrites the patched fields of the stored record.
func (s *SQLiteStore) Save(ctx context.Context, subjectID string, patch subject.Patch) error {
	if subjectID == "" {
		return ErrEmptySubjectID
	}

	// Ensure the row exists so the UPDATE below always has a target.
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO subject_records (subject_id, updated_at) VALUES (?, ?)
		ON CONFLICT(subject_id) DO NOTHING`, subjectID, time.Now().Unix()); err != nil {
		return fmt.Errorf("init record: %w", err)
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().Unix()}

	appendJSON := func(column string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", column, err)
		}
		sets = append(sets, column+" = ?")
		args = append(args, string(data))
		return nil
	}

	if patch.AssessmentLog != nil {
		if err := appendJSON("assessment_json", patch.AssessmentLog); err != nil {
			return err
		}
	}
	if patch.CounselingLog != nil {
		if err := appendJSON("counseling_json", patch.CounselingLog); err != nil {
			return err
		}
	}
	if patch.Documents != nil {
		if err := appendJSON("documents_json", patch.Documents); err != nil {
			return err
		}
	}
	if patch.Report != nil {
		if *patch.Report == nil {
			sets = append(sets, "report_json = NULL")
		} else if err := appendJSON("report_json", *patch.Report); err != nil {
			return err
		}
	}
	if patch.TurnCount != nil {
		sets = append(sets, "turn_count = ?")
		args = append(args, *patch.TurnCount)
	}

	query := "UPDATE subject_records SET "
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += " WHERE subject_id = ?"
	args = append(args, subjectID)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}
