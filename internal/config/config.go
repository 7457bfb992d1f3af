// Package config loads the application configuration from config.json,
// an optional .env file and the environment, in increasing precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Env             string   `json:"env"`
	Port            int      `json:"port"`
	DatabaseURL     string   `json:"DATABASE_URL"`
	GeminiAPIKey    string   `json:"gemini_api_key"`
	GeminiModel     string   `json:"gemini_model"`
	ExtractorURL    string   `json:"extractor_url"`
	ExtractorAPIKey string   `json:"extractor_api_key"`
	ImageDir        string   `json:"image_dir"`
	FreeRecipeLimit int      `json:"free_recipe_limit"`
	AllowOrigins    []string `json:"allow_origins"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env:             "development",
		Port:            8080,
		GeminiModel:     "gemini-1.5-flash",
		ImageDir:        "images",
		FreeRecipeLimit: 10,
		AllowOrigins:    []string{"http://localhost:8081"},
	}
}

// Load reads the configuration. A missing config file or .env file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.GeminiModel, "GEMINI_MODEL")
	setString(&cfg.ExtractorURL, "EXTRACTOR_URL")
	setString(&cfg.ExtractorAPIKey, "EXTRACTOR_API_KEY")
	setString(&cfg.ImageDir, "IMAGE_DIR")

	if err := setInt(&cfg.Port, "PORT"); err != nil {
		return err
	}
	return setInt(&cfg.FreeRecipeLimit, "FREE_RECIPE_LIMIT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}
