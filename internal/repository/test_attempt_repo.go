package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hskmaster/internal/database"
	"hskmaster/internal/models"
)

const attemptColumns = `id, test_id, hsk_level, total_score, total_questions, listening_score,
	reading_score, completion_time_ms, attempt_date_ms, passed, answers`

// TestAttemptRepository persists graded test submissions
type TestAttemptRepository struct {
	db  *database.DB
	now func() time.Time
}

func NewTestAttemptRepository(db *database.DB) *TestAttemptRepository {
	return &TestAttemptRepository{db: db, now: time.Now}
}

// Insert stores an attempt and assigns its ID. A zero attempt date becomes now.
func (r *TestAttemptRepository) Insert(ctx context.Context, attempt *models.TestAttempt) (int64, error) {
	return r.insert(ctx, r.db, attempt)
}

// InsertBatch stores several attempts in one transaction
func (r *TestAttemptRepository) InsertBatch(ctx context.Context, attempts []models.TestAttempt) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		for i := range attempts {
			if _, err := r.insert(ctx, tx, &attempts[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TestAttemptRepository) insert(ctx context.Context, q database.DBTX, attempt *models.TestAttempt) (int64, error) {
	if attempt.AttemptDate.IsZero() {
		attempt.AttemptDate = r.now()
	}
	answers := attempt.Answers
	if answers == nil {
		answers = []models.AnswerRecord{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return 0, fmt.Errorf("encode answers: %w", err)
	}

	query := `
		INSERT INTO test_attempts (test_id, hsk_level, total_score, total_questions, listening_score,
			reading_score, completion_time_ms, attempt_date_ms, passed, answers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	id, err := q.ExecReturningID(ctx, query,
		attempt.TestID,
		attempt.HSKLevel,
		attempt.TotalScore,
		attempt.TotalQuestions,
		attempt.ListeningScore,
		attempt.ReadingScore,
		attempt.CompletionTime,
		attempt.AttemptDate.UnixMilli(),
		attempt.Passed,
		string(answersJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("insert test attempt: %w", err)
	}

	attempt.ID = id
	return id, nil
}

// All returns every attempt, newest first
func (r *TestAttemptRepository) All(ctx context.Context) ([]models.TestAttempt, error) {
	return r.list(ctx, ``)
}

// ByTestID returns the attempts at one test paper, newest first
func (r *TestAttemptRepository) ByTestID(ctx context.Context, testID string) ([]models.TestAttempt, error) {
	return r.list(ctx, `WHERE test_id = ?`, testID)
}

// ByLevel returns the attempts at one HSK level, newest first
func (r *TestAttemptRepository) ByLevel(ctx context.Context, level int) ([]models.TestAttempt, error) {
	return r.list(ctx, `WHERE hsk_level = ?`, level)
}

func (r *TestAttemptRepository) list(ctx context.Context, where string, args ...interface{}) ([]models.TestAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM test_attempts ` + where + ` ORDER BY attempt_date_ms DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query test attempts: %w", err)
	}
	defer rows.Close()

	attempts := []models.TestAttempt{}
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// ByID returns one attempt or ErrNotFound
func (r *TestAttemptRepository) ByID(ctx context.Context, id int64) (*models.TestAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM test_attempts WHERE id = ?`
	attempt, err := scanAttempt(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Delete removes one attempt or returns ErrNotFound
func (r *TestAttemptRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM test_attempts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete test attempt: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete test attempt: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every attempt
func (r *TestAttemptRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM test_attempts`)
	if err != nil {
		return 0, fmt.Errorf("delete test attempts: %w", err)
	}
	return result.RowsAffected()
}

// PassedCount counts the passed attempts at one test paper
func (r *TestAttemptRepository) PassedCount(ctx context.Context, testID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM test_attempts WHERE test_id = ? AND passed = ?`
	if err := r.db.QueryRowContext(ctx, query, testID, true).Scan(&count); err != nil {
		return 0, fmt.Errorf("count passed attempts: %w", err)
	}
	return count, nil
}

// TotalCount counts every attempt at one test paper
func (r *TestAttemptRepository) TotalCount(ctx context.Context, testID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM test_attempts WHERE test_id = ?`
	if err := r.db.QueryRowContext(ctx, query, testID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

// BestScorePercentage returns the highest score percentage at one test paper,
// or nil when there are no attempts with at least one question
func (r *TestAttemptRepository) BestScorePercentage(ctx context.Context, testID string) (*float64, error) {
	var best sql.NullFloat64
	query := `
		SELECT MAX(total_score * 100.0 / total_questions)
		FROM test_attempts
		WHERE test_id = ? AND total_questions > 0
	`
	if err := r.db.QueryRowContext(ctx, query, testID).Scan(&best); err != nil {
		return nil, fmt.Errorf("best score: %w", err)
	}
	if !best.Valid {
		return nil, nil
	}
	return &best.Float64, nil
}

func scanAttempt(row rowScanner) (models.TestAttempt, error) {
	var attempt models.TestAttempt
	var attemptDate int64
	var answersJSON string

	err := row.Scan(
		&attempt.ID,
		&attempt.TestID,
		&attempt.HSKLevel,
		&attempt.TotalScore,
		&attempt.TotalQuestions,
		&attempt.ListeningScore,
		&attempt.ReadingScore,
		&attempt.CompletionTime,
		&attemptDate,
		&attempt.Passed,
		&answersJSON,
	)
	if err != nil {
		return attempt, err
	}

	attempt.AttemptDate = time.UnixMilli(attemptDate)
	attempt.Answers = []models.AnswerRecord{}
	if answersJSON != "" {
		if err := json.Unmarshal([]byte(answersJSON), &attempt.Answers); err != nil {
			return attempt, fmt.Errorf("decode answers of attempt %d: %w", attempt.ID, err)
		}
	}
	return attempt, nil
}
