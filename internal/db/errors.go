package db

import "errors"

var (
	// ErrConfigNil is returned when Open is called without configuration.
	ErrConfigNil = errors.New("config is nil")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)
