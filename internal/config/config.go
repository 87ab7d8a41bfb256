package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the service configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Log     Log     `toml:"log"`
	DB      DB      `toml:"db"`
	Auth    Auth    `toml:"auth"`
	Uploads Uploads `toml:"uploads"`
}

type Server struct {
	Address     string   `toml:"address"`
	DiagAddress string   `toml:"diag-address"`
	CORSOrigins []string `toml:"cors-origins"`
}

type Log struct {
	Level  string `toml:"level"`
	File   string `toml:"file"`
	Format string `toml:"format"`
}

type DB struct {
	Driver  string `toml:"driver"`
	Connect string `toml:"connect"`
}

type Auth struct {
	Secret      string `toml:"secret"`
	TokenExpiry string `toml:"token-expiry"`

	Converted struct {
		TokenExpiry time.Duration
	} `toml:"-"`
}

type Uploads struct {
	Dir       string `toml:"dir"`
	URLPrefix string `toml:"url-prefix"`
	// MaxMemory bounds the multipart form kept in memory, in bytes.
	MaxMemory int64 `toml:"max-memory"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	c := Config{
		Server: Server{
			Address:     ":3333",
			DiagAddress: ":9999",
			CORSOrigins: []string{"*"},
		},
		Log: Log{
			Level:  "info",
			File:   "-",
			Format: "json",
		},
		DB: DB{
			Driver:  "sqlite3",
			Connect: "file:./data/feeds.db?_foreign_keys=on",
		},
		Auth: Auth{
			TokenExpiry: "24h",
		},
		Uploads: Uploads{
			Dir:       "uploads",
			URLPrefix: "/uploads",
			MaxMemory: 32 << 20,
		},
	}
	c.Auth.Converted.TokenExpiry = 24 * time.Hour

	return c
}

// SecretEnv overrides auth.secret so it can stay out of the config file.
const SecretEnv = "FEEDS_AUTH_SECRET"

// Read loads the config data from the given path on top of the defaults.
// The token secret has no default and must come from the file or SecretEnv.
func Read(path string) (Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "reading config from %s", path)
		}

		if err = toml.Unmarshal(b, &c); err != nil {
			return Config{}, errors.Wrapf(err, "unmarshaling toml config from %s", path)
		}
	}

	if v := os.Getenv(SecretEnv); v != "" {
		c.Auth.Secret = v
	}

	if err := c.convert(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c *Config) convert() error {
	if c.Auth.Secret == "" {
		return errors.Errorf("auth secret is not set, use [auth] secret or %s", SecretEnv)
	}

	d, err := time.ParseDuration(c.Auth.TokenExpiry)
	if err != nil {
		return errors.Wrapf(err, "parsing auth token-expiry %q", c.Auth.TokenExpiry)
	}
	if d <= 0 {
		return errors.Errorf("auth token-expiry must be positive, got %s", d)
	}
	c.Auth.Converted.TokenExpiry = d

	if c.Uploads.MaxMemory <= 0 {
		c.Uploads.MaxMemory = 32 << 20
	}

	return nil
}
