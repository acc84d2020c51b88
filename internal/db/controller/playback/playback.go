// Package playback persists resume positions, one record per media file.
package playback

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tvplayer/tvplayer/internal/db/models"
)

// CompletionRatio is the watched fraction from which a file counts as finished.
const CompletionRatio = 0.95

const filePathQueryPattern = "file_path = ?"

var (
	// ErrRecordNotFound is returned when no resume record exists for a path.
	ErrRecordNotFound = errors.New("playback record not found")
	// ErrFilePathEmpty is returned for an empty file path.
	ErrFilePathEmpty = errors.New("file path cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// IsCompleted reports whether a position counts as having finished the file.
// An unknown (non-positive) duration is never complete.
func IsCompleted(positionMs, durationMs int64) bool {
	if durationMs <= 0 {
		return false
	}

	return float64(positionMs)/float64(durationMs) >= CompletionRatio
}

// Store reads and writes PlaybackRecord rows.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore returns a Store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrDBNil
	}

	return s.db.WithContext(ctx), nil
}

// Get returns the record of filePath.
func (s *Store) Get(ctx context.Context, filePath string) (*models.PlaybackRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, ErrFilePathEmpty
	}

	var record models.PlaybackRecord

	result := db.Where(filePathQueryPattern, filePath).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}

		return nil, result.Error
	}

	return &record, nil
}

// Upsert stores the position of filePath, stamping LastPlayed with the current time.
// The row is updated in place when it exists, in a single statement, so
// concurrent first writes of the same path never collide; the last write wins.
func (s *Store) Upsert(ctx context.Context, filePath string, positionMs, durationMs int64) (*models.PlaybackRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, ErrFilePathEmpty
	}

	record := models.PlaybackRecord{
		FilePath:   filePath,
		PositionMs: positionMs,
		DurationMs: durationMs,
		LastPlayed: s.now(),
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"position_ms", "duration_ms", "last_played"}),
	}).Create(&record)
	if result.Error != nil {
		return nil, result.Error
	}

	// The id is not reported back when the insert turned into an update.
	return s.Get(ctx, filePath)
}

// Delete removes the record of filePath. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, filePath string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return ErrFilePathEmpty
	}

	return db.Where(filePathQueryPattern, filePath).Delete(&models.PlaybackRecord{}).Error
}

// ListAll returns every record, most recently played first.
func (s *Store) ListAll(ctx context.Context) ([]models.PlaybackRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var records []models.PlaybackRecord
	if result := db.Order("last_played DESC").Order("id DESC").Find(&records); result.Error != nil {
		return nil, result.Error
	}

	return records, nil
}

// Clear removes every record and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.PlaybackRecord{})

	return result.RowsAffected, result.Error
}
