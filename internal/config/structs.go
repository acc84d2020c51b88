package config

import (
	"time"

	"github.com/tvplayer/tvplayer/internal/logger"
)

const (
	// EngineSQLite selects the pure go sqlite driver.
	EngineSQLite = "sqlite"
	// EngineMySQL selects the mysql driver.
	EngineMySQL = "mysql"
	// EnginePostgres selects the postgres driver.
	EnginePostgres = "postgres"

	// BrowseModeParent walks up the filesystem and never leaves Library.Root.
	BrowseModeParent = "parent"
	// BrowseModeHistory pops the directories visited before.
	BrowseModeHistory = "history"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Player    Player
	Library   Library
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic   bool   // enable static file browsing (for development purposes only)
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
	CheckAliveURI  string // uri answering load balancer checks
}

// DB holds the database configuration settings.
type DB struct {
	GormEngine string // sqlite, mysql or postgres
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLite     SQLite
}

// SQLite tunes the embedded database.
type SQLite struct {
	Path          string
	BusyTimeoutMS int
	JournalMode   string
	Synchronous   string
	MaxOpenConns  int
	MaxIdleConns  int
}

// Player configures the mpv engine and the duration prober.
type Player struct {
	Binary        string   // mpv executable
	Args          []string // extra mpv arguments
	SocketPath    string   // json ipc socket, empty = temp dir
	FFProbeBinary string
	ProbeTimeout  Duration
	DisableProbe  bool // skip duration probing while listing
}

// Library configures what the browser may show.
type Library struct {
	Root           string   // browsing never leaves this directory
	BrowseMode     string   // parent or history
	StoragePaths   []string // well known mount points
	RemovableRoots []string // each sub directory is a removable medium
	USBMountRoot   string   // usb* sub directories are usb drives
}

// Duration wraps time.Duration for toml and json text decoding.
type Duration struct {
	time.Duration
}

// UnmarshalText parses values like "5s".
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err //nolint: wrapcheck
	}

	d.Duration = parsed

	return nil
}

// MarshalText renders the duration the way UnmarshalText reads it.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
