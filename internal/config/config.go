// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	// EnvConfigJSON holds a JSON document merged on top of main.toml.
	EnvConfigJSON = "TVPLAYER_CONFIG_JSON"

	defaultShutDownTime  = 5
	defaultProbeTimeout  = 5 * time.Second
	defaultMPVBinary     = "mpv"
	defaultFFProbeBinary = "ffprobe"
	defaultSQLitePath    = "tvplayer.db"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to decode "+EnvConfigJSON)
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the daemon can not start without
// and fills in defaults for the optional ones.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineSQLite
	case EngineSQLite, EngineMySQL, EnginePostgres:
	default:
		return errors.Wrapf(ErrUnknownGormEngine, "%s: %q", invalidErrMessage, c.DB.GormEngine)
	}

	if c.DB.GormEngine == EngineSQLite && c.DB.SQLite.Path == "" {
		c.DB.SQLite.Path = defaultSQLitePath
	}

	if c.Library.Root == "" {
		return errors.Wrap(ErrEmptyLibraryRoot, invalidErrMessage)
	}

	switch c.Library.BrowseMode {
	case "":
		c.Library.BrowseMode = BrowseModeParent
	case BrowseModeParent, BrowseModeHistory:
	default:
		return errors.Wrapf(ErrUnknownBrowseMode, "%s: %q", invalidErrMessage, c.Library.BrowseMode)
	}

	if c.Player.Binary == "" {
		c.Player.Binary = defaultMPVBinary
	}

	if c.Player.FFProbeBinary == "" {
		c.Player.FFProbeBinary = defaultFFProbeBinary
	}

	if c.Player.ProbeTimeout.Duration == 0 {
		c.Player.ProbeTimeout = Duration{defaultProbeTimeout}
	}

	return nil
}
