package models

import "time"

// PlaybackRecord is the resume position of one media file.
// FilePath is unique: there is never more than one row per file.
type PlaybackRecord struct {
	ID         uint64    `gorm:"primaryKey"                     json:"id"`
	FilePath   string    `gorm:"size:768;uniqueIndex;not null"  json:"filePath"`
	PositionMs int64     `gorm:"not null;default:0"             json:"positionMs"`
	DurationMs int64     `gorm:"not null;default:0"             json:"durationMs"`
	LastPlayed time.Time `gorm:"index;not null"                 json:"lastPlayed"`
}

// TableName keeps the table name stable across gorm naming strategies.
func (PlaybackRecord) TableName() string {
	return "playback_history"
}

// Percent returns how much of the file was watched, 0 when the duration is unknown.
func (r *PlaybackRecord) Percent() float64 {
	if r.DurationMs <= 0 {
		return 0
	}

	return float64(r.PositionMs) / float64(r.DurationMs) * 100 //nolint:mnd
}
