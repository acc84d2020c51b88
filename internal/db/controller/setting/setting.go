// Package setting provides CRUD operations on the named settings table.
// Callers scope a call with db.WithContext(ctx) when it must be cancellable.
package setting

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tvplayer/tvplayer/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when attempting to create/update a setting with an empty name.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrSettingAlreadyExists is returned when attempting to create a setting that already exists.
	ErrSettingAlreadyExists = errors.New("setting already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

func normalize(name string) string {
	return strings.TrimSpace(name)
}

// Get retrieves a setting by its name.
func Get(db *gorm.DB, name string) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	name = normalize(name)
	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var setting models.Setting

	result := db.Where(nameQueryPattern, name).First(&setting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}

		return nil, result.Error
	}

	return &setting, nil
}

// GetAll retrieves all settings keyed by name.
func GetAll(db *gorm.DB) (map[string][]byte, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var settings []models.Setting
	if result := db.Find(&settings); result.Error != nil {
		return nil, result.Error
	}

	out := make(map[string][]byte, len(settings))
	for _, s := range settings {
		out[s.Name] = s.Value
	}

	return out, nil
}

// Create creates a new setting in the database.
func Create(db *gorm.DB, name string, value []byte) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	name = normalize(name)
	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var existing models.Setting

	result := db.Where(nameQueryPattern, name).First(&existing)
	if result.Error == nil {
		return nil, ErrSettingAlreadyExists
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	setting := &models.Setting{
		Name:  name,
		Value: value,
	}

	if result = db.Create(setting); result.Error != nil {
		return nil, result.Error
	}

	return setting, nil
}

// Set creates or updates a setting by name (upsert operation).
func Set(db *gorm.DB, name string, value []byte) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	name = normalize(name)
	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	setting, err := UpdateByName(db, name, value)
	if errors.Is(err, ErrSettingNotFound) {
		return Create(db, name, value)
	}

	return setting, err
}

// SetMany upserts every entry inside one transaction: either all values are written or none.
func SetMany(db *gorm.DB, values map[string][]byte) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for name, value := range values {
			if _, err := Set(tx, name, value); err != nil {
				return err
			}
		}

		return nil
	})
}

// UpdateByName updates an existing setting by name.
func UpdateByName(db *gorm.DB, name string, value []byte) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	setting, err := Get(db, name)
	if err != nil {
		return nil, err
	}

	setting.Value = value
	if result := db.Save(setting); result.Error != nil {
		return nil, result.Error
	}

	return setting, nil
}

// DeleteByName deletes a setting by name.
func DeleteByName(db *gorm.DB, name string) error {
	if db == nil {
		return ErrDBNil
	}

	name = normalize(name)
	if name == "" {
		return ErrSettingNameEmpty
	}

	result := db.Where(nameQueryPattern, name).Delete(&models.Setting{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	return nil
}
