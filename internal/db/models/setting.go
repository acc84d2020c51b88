// Package models contains database model definitions.
package models

// Setting is one named value of the persisted application settings.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"size:191;unique"`
	Value []byte // driver specific blob type
}

// All returns every model the daemon migrates on start.
func All() []any {
	return []any{
		&Setting{},
		&PlaybackRecord{},
	}
}
