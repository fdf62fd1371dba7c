package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"hskmaster/internal/counters"
	"hskmaster/internal/gamification"
	"hskmaster/internal/models"
	"hskmaster/internal/repository"
)

// BackupVersion is the format version written by Export
const BackupVersion = "1.0"

// ErrChecksumMismatch is returned when a backup's content does not match its checksum
var ErrChecksumMismatch = errors.New("backup checksum mismatch")

// BackupNamespaces are the counter namespaces included in a backup
var BackupNamespaces = []string{gamification.Namespace, PurchasesNamespace, speedChallengeNamespace}

// BackupData represents the complete backup structure
type BackupData struct {
	Version      string                     `json:"version"`
	ID           uuid.UUID                  `json:"id"`
	ExportedAt   time.Time                  `json:"exported_at"`
	DatabaseType string                     `json:"database_type"`
	Records      []models.LearningRecord    `json:"learning_records"`
	Attempts     []models.TestAttempt       `json:"test_attempts"`
	Counters     map[string]counters.Values `json:"counters"`
	Checksum     string                     `json:"checksum,omitempty"`
}

// computeChecksum returns the hex BLAKE2b-256 digest of the backup without
// its checksum field
func (b BackupData) computeChecksum() (string, error) {
	b.Checksum = ""
	payload, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// BackupService handles backup and restore of learning data
type BackupService struct {
	records      repository.RecordStore
	attempts     *repository.TestAttemptRepository
	counters     counters.Store
	databaseType string
	log          logrus.FieldLogger
	now          func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(records repository.RecordStore, attempts *repository.TestAttemptRepository, store counters.Store, databaseType string, log logrus.FieldLogger) *BackupService {
	return &BackupService{
		records:      records,
		attempts:     attempts,
		counters:     store,
		databaseType: databaseType,
		log:          log.WithField("component", "backup"),
		now:          time.Now,
	}
}

// Snapshot collects every record, attempt and counter into a checksummed backup
func (s *BackupService) Snapshot(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ID:           uuid.New(),
		ExportedAt:   s.now().UTC(),
		DatabaseType: s.databaseType,
		Counters:     make(map[string]counters.Values, len(BackupNamespaces)),
	}

	var err error
	if backup.Records, err = s.records.All(ctx); err != nil {
		return nil, fmt.Errorf("failed to export learning records: %w", err)
	}
	if backup.Attempts, err = s.attempts.All(ctx); err != nil {
		return nil, fmt.Errorf("failed to export test attempts: %w", err)
	}
	for _, ns := range BackupNamespaces {
		values, err := s.counters.Load(ctx, ns)
		if err != nil {
			return nil, fmt.Errorf("failed to export counters %s: %w", ns, err)
		}
		backup.Counters[ns] = values
	}

	if backup.Checksum, err = backup.computeChecksum(); err != nil {
		return nil, fmt.Errorf("failed to checksum backup: %w", err)
	}
	return backup, nil
}

// Export writes a complete backup to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) (*BackupData, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(ctx, file)
	if err != nil {
		return nil, err
	}
	s.log.WithField("path", outputPath).Info("backup written")
	return backup, nil
}

// ExportToWriter writes a complete backup as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"backup_id": backup.ID.String(),
		"records":   len(backup.Records),
		"attempts":  len(backup.Attempts),
	}).Info("backup exported")
	return backup, nil
}

// Import restores a backup file. With clear set, existing data is removed first.
func (s *BackupService) Import(ctx context.Context, inputPath string, clear bool) (*BackupData, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file, clear)
}

// ImportFromReader restores a backup read from r after verifying its checksum.
// Records and attempts get new identifiers; counters are merged.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader, clear bool) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}

	if backup.Checksum != "" {
		sum, err := backup.computeChecksum()
		if err != nil {
			return nil, fmt.Errorf("failed to checksum backup: %w", err)
		}
		if sum != backup.Checksum {
			return nil, ErrChecksumMismatch
		}
	} else {
		s.log.Warn("backup has no checksum, importing unverified")
	}

	log := s.log.WithFields(logrus.Fields{
		"backup_id":   backup.ID.String(),
		"version":     backup.Version,
		"exported_at": backup.ExportedAt,
	})

	if clear {
		if err := s.clear(ctx); err != nil {
			return nil, err
		}
		log.Info("existing data cleared")
	}

	for i := range backup.Records {
		backup.Records[i].ID = 0
	}
	if err := s.records.InsertBatch(ctx, backup.Records); err != nil {
		return nil, fmt.Errorf("failed to import learning records: %w", err)
	}

	for i := range backup.Attempts {
		backup.Attempts[i].ID = 0
	}
	if err := s.attempts.InsertBatch(ctx, backup.Attempts); err != nil {
		return nil, fmt.Errorf("failed to import test attempts: %w", err)
	}

	for ns, values := range backup.Counters {
		if len(values) == 0 {
			continue
		}
		if err := s.counters.Save(ctx, ns, values); err != nil {
			return nil, fmt.Errorf("failed to import counters %s: %w", ns, err)
		}
	}

	log.WithFields(logrus.Fields{
		"records":  len(backup.Records),
		"attempts": len(backup.Attempts),
	}).Info("backup imported")
	return &backup, nil
}

func (s *BackupService) clear(ctx context.Context) error {
	if _, err := s.records.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear learning records: %w", err)
	}
	if _, err := s.attempts.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear test attempts: %w", err)
	}
	for _, ns := range BackupNamespaces {
		if err := s.counters.Clear(ctx, ns); err != nil {
			return fmt.Errorf("failed to clear counters %s: %w", ns, err)
		}
	}
	return nil
}
