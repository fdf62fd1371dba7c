package service

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hskmaster/internal/counters"
	"hskmaster/internal/gamification"
	"hskmaster/internal/logging"
	"hskmaster/internal/metrics"
	"hskmaster/internal/models"
	"hskmaster/internal/repository"
)

type backupFixture struct {
	backup   *BackupService
	records  repository.RecordStore
	attempts *repository.TestAttemptRepository
	store    counters.Store
}

func newBackupFixture(t *testing.T) backupFixture {
	t.Helper()

	db := setupTestDB(t)
	records := repository.NewLearningRecordRepository(db, logging.Discard(), metrics.New())
	attempts := repository.NewTestAttemptRepository(db)
	store := counters.NewMemoryStore()

	return backupFixture{
		backup:   NewBackupService(records, attempts, store, "sqlite", logging.Discard()),
		records:  records,
		attempts: attempts,
		store:    store,
	}
}

func (f backupFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	insert(t, f.records, "你", 1, models.GameQuiz, true, now.Add(-time.Hour))
	insert(t, f.records, "好", 1, models.GameMatching, false, now)

	_, err := f.attempts.Insert(ctx, &models.TestAttempt{
		TestID:         "H10901",
		HSKLevel:       1,
		TotalScore:     12,
		TotalQuestions: 20,
		ReadingScore:   12,
		AttemptDate:    now,
		Passed:         true,
		Answers:        []models.AnswerRecord{{QuestionNumber: 1, UserAnswer: "A", CorrectAnswer: "A", IsCorrect: true, Section: models.SectionReading}},
	})
	require.NoError(t, err)

	require.NoError(t, f.store.Save(ctx, gamification.Namespace, counters.Values{"total_xp": "120"}))
	require.NoError(t, f.store.Save(ctx, PurchasesNamespace, counters.Values{"is_premium": "true"}))
}

func TestBackupRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	src := newBackupFixture(t)
	src.seed(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "backup.json")
	exported, err := src.backup.Export(ctx, path)
	require.NoError(t, err)
	assert.Len(t, exported.Records, 2)
	assert.Len(t, exported.Attempts, 1)
	assert.Len(t, exported.Checksum, 64)

	dst := newBackupFixture(t)
	imported, err := dst.backup.Import(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, exported.ID, imported.ID)

	records, err := dst.records.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "好", records[0].Character, "newest first")
	assert.True(t, records[0].Timestamp.Equal(now))

	attempts, err := dst.attempts.ByTestID(ctx, "H10901")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Passed)
	assert.Len(t, attempts[0].Answers, 1)

	values, err := dst.store.Load(ctx, gamification.Namespace)
	require.NoError(t, err)
	assert.Equal(t, 120, values.Int("total_xp", 0))

	premium, err := NewPurchaseService(dst.store, logging.Discard()).IsPremium(ctx)
	require.NoError(t, err)
	assert.True(t, premium)
}

func TestBackupImportClear(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	f := newBackupFixture(t)
	f.seed(t)
	ctx := context.Background()

	var buf bytes.Buffer
	_, err := f.backup.ExportToWriter(ctx, &buf)
	require.NoError(t, err)

	insert(t, f.records, "新", 2, models.GameWriting, true, now)

	_, err = f.backup.ImportFromReader(ctx, bytes.NewReader(buf.Bytes()), true)
	require.NoError(t, err)

	records, err := f.records.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2, "clear removes rows added after the export")

	total, err := f.attempts.TotalCount(ctx, "H10901")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestBackupChecksum(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	f := newBackupFixture(t)
	f.seed(t)
	ctx := context.Background()

	var buf bytes.Buffer
	_, err := f.backup.ExportToWriter(ctx, &buf)
	require.NoError(t, err)

	tampered := strings.Replace(buf.String(), `"total_xp": "120"`, `"total_xp": "99999"`, 1)
	require.NotEqual(t, buf.String(), tampered)

	dst := newBackupFixture(t)
	_, err = dst.backup.ImportFromReader(ctx, strings.NewReader(tampered), false)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	records, err := dst.records.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, records, "nothing is written from a rejected backup")

	_, err = dst.backup.ImportFromReader(ctx, strings.NewReader("not json"), false)
	assert.Error(t, err)
}
