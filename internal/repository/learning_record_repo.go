package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"hskmaster/internal/database"
	"hskmaster/internal/live"
	"hskmaster/internal/metrics"
	"hskmaster/internal/models"
)

// ErrNotFound is returned when a row looked up by identifier does not exist
var ErrNotFound = errors.New("not found")

// RecordStore is the append-only log of practice events. Records are never
// updated; they are only inserted or bulk-deleted.
type RecordStore interface {
	Insert(ctx context.Context, record *models.LearningRecord) (int64, error)
	InsertBatch(ctx context.Context, records []models.LearningRecord) error

	All(ctx context.Context) ([]models.LearningRecord, error)
	ByLevel(ctx context.Context, level int) ([]models.LearningRecord, error)
	ByGameType(ctx context.Context, gameType models.GameType) ([]models.LearningRecord, error)
	ByCharacter(ctx context.Context, character string) ([]models.LearningRecord, error)
	ByDateRange(ctx context.Context, start, end time.Time) ([]models.LearningRecord, error)
	Find(ctx context.Context, q RecordQuery) ([]models.LearningRecord, error)
	Watch(ctx context.Context, q RecordQuery) <-chan []models.LearningRecord

	CharacterProgress(ctx context.Context) ([]models.CharacterProgress, error)
	WatchCharacterProgress(ctx context.Context) <-chan []models.CharacterProgress
	GameStatsSince(ctx context.Context, start time.Time) ([]models.GameStats, error)
	GameStatsBetween(ctx context.Context, start, end time.Time) ([]models.GameStats, error)
	CountDistinctCharactersSince(ctx context.Context, start time.Time) (int, error)

	DeleteAll(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type queryKind int

const (
	queryAll queryKind = iota
	queryByLevel
	queryByGameType
	queryByCharacter
	queryByDateRange
)

// RecordQuery selects the records a read or a live view returns
type RecordQuery struct {
	kind      queryKind
	level     int
	gameType  models.GameType
	character string
	start     time.Time
	end       time.Time
}

// QueryAll selects every record
func QueryAll() RecordQuery { return RecordQuery{kind: queryAll} }

// QueryByLevel selects the records of one HSK level
func QueryByLevel(level int) RecordQuery { return RecordQuery{kind: queryByLevel, level: level} }

// QueryByGameType selects the records of one game type
func QueryByGameType(gameType models.GameType) RecordQuery {
	return RecordQuery{kind: queryByGameType, gameType: gameType}
}

// QueryByCharacter selects the records of one practiced item
func QueryByCharacter(character string) RecordQuery {
	return RecordQuery{kind: queryByCharacter, character: character}
}

// QueryByDateRange selects records with start <= timestamp <= end
func QueryByDateRange(start, end time.Time) RecordQuery {
	return RecordQuery{kind: queryByDateRange, start: start, end: end}
}

// Name is a short label for logs and metrics
func (q RecordQuery) Name() string {
	switch q.kind {
	case queryByLevel:
		return "by_level"
	case queryByGameType:
		return "by_game_type"
	case queryByCharacter:
		return "by_character"
	case queryByDateRange:
		return "by_date_range"
	default:
		return "all"
	}
}

const recordColumns = `id, timestamp_ms, hsk_level, game_type, character_text, pinyin, meaning,
	is_correct, response_time_ms, attempts, hint_used, question_type`

const correctSum = `SUM(CASE WHEN is_correct THEN 1 ELSE 0 END)`

// LearningRecordRepository is the SQL RecordStore
type LearningRecordRepository struct {
	db      *database.DB
	broker  *live.Broker
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewLearningRecordRepository creates a new learning record repository
func NewLearningRecordRepository(db *database.DB, log logrus.FieldLogger, m *metrics.Metrics) *LearningRecordRepository {
	return &LearningRecordRepository{
		db:      db,
		broker:  live.NewBroker(),
		metrics: m,
		log:     log.WithField("component", "learning_records"),
		now:     time.Now,
	}
}

// Insert appends a record and assigns its ID. A zero timestamp becomes now
// and zero attempts become 1.
func (r *LearningRecordRepository) Insert(ctx context.Context, record *models.LearningRecord) (int64, error) {
	if err := r.insert(ctx, r.db, record); err != nil {
		return 0, err
	}

	r.log.WithFields(logrus.Fields{
		"id":        record.ID,
		"game_type": record.GameType,
		"correct":   record.IsCorrect,
	}).Debug("learning record inserted")

	r.broker.Publish()
	return record.ID, nil
}

// InsertBatch appends several records in one transaction and notifies
// watchers once
func (r *LearningRecordRepository) InsertBatch(ctx context.Context, records []models.LearningRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		for i := range records {
			if err := r.insert(ctx, tx, &records[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.WithField("count", len(records)).Info("learning records imported")
	r.broker.Publish()
	return nil
}

func (r *LearningRecordRepository) insert(ctx context.Context, q database.DBTX, record *models.LearningRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = r.now()
	}
	if record.Attempts == 0 {
		record.Attempts = 1
	}

	query := `
		INSERT INTO learning_records (timestamp_ms, hsk_level, game_type, character_text, pinyin, meaning,
			is_correct, response_time_ms, attempts, hint_used, question_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	id, err := q.ExecReturningID(ctx, query,
		record.Timestamp.UnixMilli(),
		record.HSKLevel,
		string(record.GameType),
		record.Character,
		record.Pinyin,
		record.Meaning,
		record.IsCorrect,
		record.ResponseTime,
		record.Attempts,
		record.HintUsed,
		record.QuestionType,
	)
	if err != nil {
		return fmt.Errorf("insert learning record: %w", err)
	}

	record.ID = id
	r.metrics.RecordInserted(string(record.GameType))
	return nil
}

// All returns every record, newest first
func (r *LearningRecordRepository) All(ctx context.Context) ([]models.LearningRecord, error) {
	return r.Find(ctx, QueryAll())
}

// ByLevel returns the records of one HSK level, newest first
func (r *LearningRecordRepository) ByLevel(ctx context.Context, level int) ([]models.LearningRecord, error) {
	return r.Find(ctx, QueryByLevel(level))
}

// ByGameType returns the records of one game type, newest first
func (r *LearningRecordRepository) ByGameType(ctx context.Context, gameType models.GameType) ([]models.LearningRecord, error) {
	return r.Find(ctx, QueryByGameType(gameType))
}

// ByCharacter returns the records of one practiced item, newest first
func (r *LearningRecordRepository) ByCharacter(ctx context.Context, character string) ([]models.LearningRecord, error) {
	return r.Find(ctx, QueryByCharacter(character))
}

// ByDateRange returns records with start <= timestamp <= end, newest first
func (r *LearningRecordRepository) ByDateRange(ctx context.Context, start, end time.Time) ([]models.LearningRecord, error) {
	return r.Find(ctx, QueryByDateRange(start, end))
}

// Find runs a record query
func (r *LearningRecordRepository) Find(ctx context.Context, q RecordQuery) ([]models.LearningRecord, error) {
	defer r.metrics.ObserveQuery(q.Name(), time.Now())

	query := `SELECT ` + recordColumns + ` FROM learning_records`
	var args []interface{}

	switch q.kind {
	case queryByLevel:
		query += ` WHERE hsk_level = ?`
		args = append(args, q.level)
	case queryByGameType:
		query += ` WHERE game_type = ?`
		args = append(args, string(q.gameType))
	case queryByCharacter:
		query += ` WHERE character_text = ?`
		args = append(args, q.character)
	case queryByDateRange:
		query += ` WHERE timestamp_ms >= ? AND timestamp_ms <= ?`
		args = append(args, q.start.UnixMilli(), q.end.UnixMilli())
	}
	query += ` ORDER BY timestamp_ms DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query learning records %s: %w", q.Name(), err)
	}
	defer rows.Close()

	records := []models.LearningRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan learning record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Watch delivers the query's result now and again after every insert or
// delete until ctx is done. A failing query is logged and delivered as an
// empty list.
func (r *LearningRecordRepository) Watch(ctx context.Context, q RecordQuery) <-chan []models.LearningRecord {
	return live.Watch(ctx, r.broker, func(ctx context.Context) []models.LearningRecord {
		records, err := r.Find(ctx, q)
		if err != nil {
			if ctx.Err() == nil {
				r.log.WithError(err).WithField("query", q.Name()).Warn("live query failed")
			}
			return []models.LearningRecord{}
		}
		return records
	})
}

// CharacterProgress aggregates the records of every practiced item, ordered
// by mastery descending and then by character
func (r *LearningRecordRepository) CharacterProgress(ctx context.Context) ([]models.CharacterProgress, error) {
	defer r.metrics.ObserveQuery("character_progress", time.Now())

	query := `
		SELECT character_text, MAX(pinyin), COUNT(*), ` + correctSum + `, MAX(timestamp_ms)
		FROM learning_records
		GROUP BY character_text
		ORDER BY ` + correctSum + ` * 1.0 / COUNT(*) DESC, character_text ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query character progress: %w", err)
	}
	defer rows.Close()

	progress := []models.CharacterProgress{}
	for rows.Next() {
		var p models.CharacterProgress
		var lastSeen int64
		if err := rows.Scan(&p.Character, &p.Pinyin, &p.TotalAttempts, &p.CorrectCount, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan character progress: %w", err)
		}
		p.LastSeen = time.UnixMilli(lastSeen)
		p.Mastery = models.Percentage(p.CorrectCount, p.TotalAttempts)
		progress = append(progress, p)
	}
	return progress, rows.Err()
}

// WatchCharacterProgress is the live form of CharacterProgress
func (r *LearningRecordRepository) WatchCharacterProgress(ctx context.Context) <-chan []models.CharacterProgress {
	return live.Watch(ctx, r.broker, func(ctx context.Context) []models.CharacterProgress {
		progress, err := r.CharacterProgress(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.log.WithError(err).Warn("live character progress failed")
			}
			return []models.CharacterProgress{}
		}
		return progress
	})
}

// GameStatsSince groups records at or after start by game type
func (r *LearningRecordRepository) GameStatsSince(ctx context.Context, start time.Time) ([]models.GameStats, error) {
	return r.gameStats(ctx, `WHERE timestamp_ms >= ?`, start.UnixMilli())
}

// GameStatsBetween groups records with start <= timestamp < end by game type
func (r *LearningRecordRepository) GameStatsBetween(ctx context.Context, start, end time.Time) ([]models.GameStats, error) {
	return r.gameStats(ctx, `WHERE timestamp_ms >= ? AND timestamp_ms < ?`, start.UnixMilli(), end.UnixMilli())
}

func (r *LearningRecordRepository) gameStats(ctx context.Context, where string, args ...interface{}) ([]models.GameStats, error) {
	defer r.metrics.ObserveQuery("game_stats", time.Now())

	query := `
		SELECT game_type, COUNT(*), ` + correctSum + `
		FROM learning_records
		` + where + `
		GROUP BY game_type
		ORDER BY game_type
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query game stats: %w", err)
	}
	defer rows.Close()

	stats := []models.GameStats{}
	for rows.Next() {
		var s models.GameStats
		var gameType string
		if err := rows.Scan(&gameType, &s.Attempts, &s.Correct); err != nil {
			return nil, fmt.Errorf("scan game stats: %w", err)
		}
		s.GameType = models.GameType(gameType)
		s.Accuracy = models.Percentage(s.Correct, s.Attempts)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// CountDistinctCharactersSince counts the distinct items practiced at or after start
func (r *LearningRecordRepository) CountDistinctCharactersSince(ctx context.Context, start time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(DISTINCT character_text) FROM learning_records WHERE timestamp_ms >= ?`
	if err := r.db.QueryRowContext(ctx, query, start.UnixMilli()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct characters: %w", err)
	}
	return count, nil
}

// DeleteAll removes every record
func (r *LearningRecordRepository) DeleteAll(ctx context.Context) (int64, error) {
	return r.delete(ctx, `DELETE FROM learning_records`)
}

// DeleteOlderThan removes records with a timestamp before cutoff
func (r *LearningRecordRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.delete(ctx, `DELETE FROM learning_records WHERE timestamp_ms < ?`, cutoff.UnixMilli())
}

func (r *LearningRecordRepository) delete(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete learning records: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete learning records: %w", err)
	}

	r.metrics.RecordsDeleted(n)
	r.log.WithField("deleted", n).Info("learning records deleted")
	r.broker.Publish()
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (models.LearningRecord, error) {
	var record models.LearningRecord
	var timestamp int64
	var gameType string
	var responseTime sql.NullInt64
	var questionType sql.NullString

	err := row.Scan(
		&record.ID,
		&timestamp,
		&record.HSKLevel,
		&gameType,
		&record.Character,
		&record.Pinyin,
		&record.Meaning,
		&record.IsCorrect,
		&responseTime,
		&record.Attempts,
		&record.HintUsed,
		&questionType,
	)
	if err != nil {
		return record, err
	}

	record.Timestamp = time.UnixMilli(timestamp)
	record.GameType = models.GameType(gameType)
	if responseTime.Valid {
		record.ResponseTime = &responseTime.Int64
	}
	if questionType.Valid {
		record.QuestionType = &questionType.String
	}
	return record, nil
}
