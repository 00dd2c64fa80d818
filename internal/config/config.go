// Package config reads the chessbot settings from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config holds every setting of the server, UCI and bench binaries.
type Config struct {
	Addr      string
	ModelPath string
	BookPath  string
	DataDir   string

	Depth       int
	TimeLimit   time.Duration
	HashMB      int
	KeepHistory bool
	Cache       bool

	LogLevel zerolog.Level
}

// Default returns the configuration used when no variable is set. ModelPath
// stays empty and is resolved under the data directory by the binaries.
func Default() Config {
	return Config{
		Addr:        "0.0.0.0:8080",
		Depth:       5,
		TimeLimit:   5 * time.Second,
		HashMB:      64,
		KeepHistory: true,
		Cache:       true,
		LogLevel:    zerolog.InfoLevel,
	}
}

// Load reads the CHESSBOT_* variables over the defaults.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	var err error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int, least int) {
		v, ok := lookup(key)
		if !ok || v == "" || err != nil {
			return
		}
		n, perr := strconv.Atoi(v)
		if perr != nil || n < least {
			err = errors.Errorf("config: %s=%q must be an integer >= %d", key, v, least)
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" || err != nil {
			return
		}
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			err = errors.Wrapf(perr, "config: %s", key)
			return
		}
		*dst = b
	}

	str("CHESSBOT_ADDR", &c.Addr)
	str("CHESSBOT_MODEL_PATH", &c.ModelPath)
	str("CHESSBOT_BOOK_PATH", &c.BookPath)
	str("CHESSBOT_DATA_DIR", &c.DataDir)
	num("CHESSBOT_DEPTH", &c.Depth, 1)
	num("CHESSBOT_HASH_MB", &c.HashMB, 1)
	flag("CHESSBOT_KEEP_HISTORY", &c.KeepHistory)
	flag("CHESSBOT_CACHE", &c.Cache)
	if err != nil {
		return Config{}, err
	}

	if v, ok := lookup("CHESSBOT_TIME_LIMIT"); ok && v != "" {
		d, perr := ParseDuration(v)
		if perr != nil {
			return Config{}, errors.Wrap(perr, "config: CHESSBOT_TIME_LIMIT")
		}
		c.TimeLimit = d
	}
	if v, ok := lookup("CHESSBOT_LOG_LEVEL"); ok && v != "" {
		lvl, perr := zerolog.ParseLevel(v)
		if perr != nil {
			return Config{}, errors.Wrap(perr, "config: CHESSBOT_LOG_LEVEL")
		}
		c.LogLevel = lvl
	}
	return c, nil
}

// ParseDuration accepts a Go duration ("750ms") or plain seconds ("2.5").
func ParseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs <= 0 {
			return 0, errors.Errorf("duration %q must be positive", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "duration %q", s)
	}
	if d <= 0 {
		return 0, errors.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

// ResolveModelPath returns ModelPath, or model.bin under dir when unset.
func (c Config) ResolveModelPath(dir string) string {
	if c.ModelPath != "" {
		return c.ModelPath
	}
	return filepath.Join(dir, "model.bin")
}
