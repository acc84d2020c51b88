package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if config db.gormEngine names an unsupported driver.
	ErrUnknownGormEngine = errors.New("toml config db.gormEngine must be sqlite, mysql or postgres")

	// ErrEmptyLibraryRoot error if config library.root is empty.
	ErrEmptyLibraryRoot = errors.New("toml config library.root can not be empty")

	// ErrUnknownBrowseMode error if config library.browseMode is neither parent nor history.
	ErrUnknownBrowseMode = errors.New("toml config library.browseMode must be parent or history")
)
