package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Nearby     NearbyConfig     `yaml:"nearby"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
	URL        string `yaml:"url"`
}

// CloudinaryConfig holds media store credentials. Missing values are not a startup error;
// operations that need them fail individually.
type CloudinaryConfig struct {
	CloudName      string `yaml:"cloud_name"`
	APIKey         string `yaml:"api_key"`
	APISecret      string `yaml:"api_secret"`
	UploadPreset   string `yaml:"upload_preset"`
	Folder         string `yaml:"folder"`
	DeleteProxyURL string `yaml:"delete_proxy_url"`
	BaseURL        string `yaml:"base_url"`
}

type UploadsConfig struct {
	MaxWidth        int  `yaml:"max_width"`
	Quality         int  `yaml:"quality"`
	Concurrency     int  `yaml:"concurrency"`
	SubmissionOrder bool `yaml:"submission_order"`
}

type NearbyConfig struct {
	Limit    int     `yaml:"limit"`
	RadiusKm float64 `yaml:"radius_km"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Driver:     DriverSQLite,
			SQLitePath: "./goplaces.db",
		},
		Cloudinary: CloudinaryConfig{Folder: "cambodia-travel"},
		Uploads: UploadsConfig{
			MaxWidth:    1920,
			Quality:     85,
			Concurrency: 4,
		},
		Nearby: NearbyConfig{Limit: 4, RadiusKm: 50},
	}
}

// Load builds the configuration from defaults, then the YAML file at path if one is
// given, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Cloudinary.CloudName, "CLOUDINARY_CLOUD_NAME")
	setString(&c.Cloudinary.APIKey, "CLOUDINARY_API_KEY")
	setString(&c.Cloudinary.APISecret, "CLOUDINARY_API_SECRET")
	setString(&c.Cloudinary.UploadPreset, "CLOUDINARY_UPLOAD_PRESET")
	setString(&c.Cloudinary.DeleteProxyURL, "CLOUDINARY_DELETE_PROXY_URL")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.SQLitePath, "SQLITE_DB_PATH")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("UPLOAD_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid UPLOAD_CONCURRENCY %q: %w", v, err)
		}
		c.Uploads.Concurrency = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Database.Driver) {
	case DriverSQLite:
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url (DATABASE_URL) is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Uploads.Quality < 1 || c.Uploads.Quality > 100 {
		errs = append(errs, fmt.Errorf("upload quality must be between 1 and 100, got %d", c.Uploads.Quality))
	}
	if c.Uploads.MaxWidth <= 0 {
		errs = append(errs, fmt.Errorf("upload max width must be positive, got %d", c.Uploads.MaxWidth))
	}
	if c.Cloudinary.Folder == "" {
		errs = append(errs, errors.New("cloudinary.folder must not be empty"))
	}
	if c.Nearby.Limit <= 0 || c.Nearby.RadiusKm <= 0 {
		errs = append(errs, errors.New("nearby limit and radius must be positive"))
	}

	return errors.Join(errs...)
}
