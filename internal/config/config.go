package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"

	defaultOpenAIModel   = "gpt-3.5-turbo"
	defaultServerAddr    = ":8080"
	defaultPhotoDir      = "photos"
	defaultCacheTTLHours = 24

	defaultOverpassURL       = "https://overpass-api.de/api/interpreter"
	defaultWaterCacheMinutes = 60
	defaultWaterRadiusKm     = 5.0
)

// defaultWaterMap covers central San Jose
var defaultWaterMap = WaterMapConfig{
	South:     37.20,
	West:      -122.00,
	North:     37.45,
	East:      -121.70,
	CenterLat: 37.3382,
	CenterLng: -121.8863,
}

// RedisConfig enables the geocode cache
type RedisConfig struct {
	Addr          string `yaml:"addr" validate:"required,hostname_port"`
	DB            int    `yaml:"db,omitempty" validate:"min=0"`
	CacheTTLHours int    `yaml:"cacheTTLHours,omitempty" validate:"omitempty,min=1"`
}

// NotificationConfig lists who is emailed when a report asks to alert the community
type NotificationConfig struct {
	Recipients []string `yaml:"recipients,omitempty" validate:"omitempty,dive,email"`
	Subject    string   `yaml:"subject,omitempty"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// SweeperConfig configures the background expiry sweep
type SweeperConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule,omitempty" validate:"required_if=Enabled true"`
}

// WaterMapConfig is the area searched for public drinking water.
// An unset box falls back to central San Jose; an unset centre to the box midpoint.
type WaterMapConfig struct {
	OverpassURL     string  `yaml:"overpassURL,omitempty" validate:"omitempty,url"`
	South           float64 `yaml:"south" validate:"latitude,ltfield=North"`
	West            float64 `yaml:"west" validate:"longitude,ltfield=East"`
	North           float64 `yaml:"north" validate:"latitude"`
	East            float64 `yaml:"east" validate:"longitude"`
	CenterLat       float64 `yaml:"centerLat" validate:"latitude"`
	CenterLng       float64 `yaml:"centerLng" validate:"longitude"`
	DefaultRadiusKm float64 `yaml:"defaultRadiusKm,omitempty" validate:"gte=0.5,lte=10"`
	CacheTTLMinutes int     `yaml:"cacheTTLMinutes,omitempty" validate:"min=1"`
}

// Config represents the application configuration
type Config struct {
	Backend         string             `yaml:"backend" validate:"required,oneof=sheets postgres"`
	DatabaseSheetID string             `yaml:"databaseSheetID,omitempty" validate:"required_if=Backend sheets"`
	OpenAIModel     string             `yaml:"openaiModel,omitempty"`
	OpenAIBaseURL   string             `yaml:"openaiBaseURL,omitempty" validate:"omitempty,url"`
	PhotoDir        string             `yaml:"photoDir,omitempty"`
	Redis           *RedisConfig       `yaml:"redis,omitempty"`
	Notifications   NotificationConfig `yaml:"notifications,omitempty"`
	Server          ServerConfig       `yaml:"server,omitempty"`
	Sweeper         SweeperConfig      `yaml:"sweeper,omitempty"`
	WaterMap        WaterMapConfig     `yaml:"waterMap,omitempty"`
}

// Secrets are read from the environment, never from the config file
type Secrets struct {
	OpenAIAPIKey  string
	MapsAPIKey    string
	DatabaseURL   string
	RedisPassword string
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates waterwatch_config.yaml, or waterwatch_config.<env>.yaml when env is set.
// It looks for the config file in the current directory first, then in the user's home directory
func Load(env string) (*Config, error) {
	configPath, err := findFile(configFileName(env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backend == "" {
		cfg.Backend = BackendSheets
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = defaultOpenAIModel
	}
	if cfg.PhotoDir == "" {
		cfg.PhotoDir = defaultPhotoDir
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.Redis != nil && cfg.Redis.CacheTTLHours == 0 {
		cfg.Redis.CacheTTLHours = defaultCacheTTLHours
	}

	wm := &cfg.WaterMap
	if wm.South == 0 && wm.West == 0 && wm.North == 0 && wm.East == 0 {
		defaults := defaultWaterMap
		defaults.OverpassURL, defaults.DefaultRadiusKm, defaults.CacheTTLMinutes = wm.OverpassURL, wm.DefaultRadiusKm, wm.CacheTTLMinutes
		*wm = defaults
	}
	if wm.CenterLat == 0 && wm.CenterLng == 0 {
		wm.CenterLat = (wm.South + wm.North) / 2
		wm.CenterLng = (wm.West + wm.East) / 2
	}
	if wm.OverpassURL == "" {
		wm.OverpassURL = defaultOverpassURL
	}
	if wm.DefaultRadiusKm == 0 {
		wm.DefaultRadiusKm = defaultWaterRadiusKm
	}
	if wm.CacheTTLMinutes == 0 {
		wm.CacheTTLMinutes = defaultWaterCacheMinutes
	}
}

// Validate validates the configuration struct and checks cron syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Sweeper.Enabled {
		if _, err := cron.ParseStandard(cfg.Sweeper.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule in sweeper.schedule: %w", err)
		}
	}

	return nil
}

// LoadSecrets reads API keys from the environment after loading envFile if it exists.
// Variables already set in the environment win over the file.
func LoadSecrets(envFile string) (*Secrets, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	return &Secrets{
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		MapsAPIKey:    os.Getenv("MAPS_API_KEY"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}, nil
}

// ErrMissingSecret is returned when a required environment variable is unset
var ErrMissingSecret = errors.New("missing required environment variable")

// RequireDatabaseURL checks the secret needed by the postgres backend
func (s *Secrets) RequireDatabaseURL() (string, error) {
	if s.DatabaseURL == "" {
		return "", fmt.Errorf("%w: DATABASE_URL", ErrMissingSecret)
	}
	return s.DatabaseURL, nil
}

// RequireOpenAIKey checks the secret needed for text generation
func (s *Secrets) RequireOpenAIKey() (string, error) {
	if s.OpenAIAPIKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingSecret)
	}
	return s.OpenAIAPIKey, nil
}

// EnvFileName returns .env, or .env.<env> when env is set
func EnvFileName(env string) string {
	if env == "" {
		return ".env"
	}
	return ".env." + env
}

func configFileName(env string) string {
	if env == "" {
		return "waterwatch_config.yaml"
	}
	return "waterwatch_config." + env + ".yaml"
}

// findFile searches for name in the current directory and then the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
