package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/oukeidos/photomotion/internal/logger"
	"github.com/oukeidos/photomotion/internal/veo"
)

const (
	DefaultAddr         = ":8080"
	DefaultMaxUploadMB  = 10
	DefaultSuggestModel = "gemini-2.5-flash"

	MinPollInterval = 1 * time.Second
	MaxPollInterval = 5 * time.Minute
	MaxUploadMBCap  = 50
)

// Config holds the settings shared by the serve and animate commands.
type Config struct {
	// Server
	Addr           string
	AllowedOrigins []string
	MaxUploadMB    int

	// Video generation
	Model        string
	PollInterval time.Duration
	MaxPolls     int

	// Prompt suggestions
	SuggestModel string

	// AllowEnv permits GEMINI_API_KEY / API_KEY as a credential fallback.
	AllowEnv bool
}

func Default() Config {
	return Config{
		Addr:         DefaultAddr,
		MaxUploadMB:  DefaultMaxUploadMB,
		Model:        veo.DefaultModel,
		PollInterval: veo.DefaultPollInterval,
		SuggestModel: DefaultSuggestModel,
	}
}

// Load reads .env files (when present) and then the process environment.
// Missing files are not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load .env: %w", err)
		}
		logger.Debug(".env file not found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment on top of Default().
func FromEnv() (Config, error) {
	cfg := Default()
	cfg.Addr = getEnv("PHOTOMOTION_ADDR", cfg.Addr)
	cfg.Model = getEnv("VEO_MODEL", cfg.Model)
	cfg.SuggestModel = getEnv("GEMINI_SUGGEST_MODEL", cfg.SuggestModel)
	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	if v := os.Getenv("VEO_POLL_INTERVAL"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VEO_POLL_INTERVAL %q: %w", v, err)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("VEO_MAX_POLLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VEO_MAX_POLLS %q: %w", v, err)
		}
		cfg.MaxPolls = n
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MAX_UPLOAD_MB %q: %w", v, err)
		}
		cfg.MaxUploadMB = n
	}
	if v := os.Getenv("PHOTOMOTION_ALLOW_ENV"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PHOTOMOTION_ALLOW_ENV %q: %w", v, err)
		}
		cfg.AllowEnv = b
	}
	return cfg, nil
}

// Normalize applies safe bounds to config values and returns any adjustments.
func (c Config) Normalize() (Config, []string) {
	var notes []string
	if c.PollInterval > 0 && c.PollInterval < MinPollInterval {
		notes = append(notes, fmt.Sprintf("poll interval raised from %s to %s (min %s)", c.PollInterval, MinPollInterval, MinPollInterval))
		c.PollInterval = MinPollInterval
	}
	if c.PollInterval > MaxPollInterval {
		notes = append(notes, fmt.Sprintf("poll interval lowered from %s to %s (max %s)", c.PollInterval, MaxPollInterval, MaxPollInterval))
		c.PollInterval = MaxPollInterval
	}
	if c.MaxUploadMB > MaxUploadMBCap {
		notes = append(notes, fmt.Sprintf("max upload clamped from %dMB to %dMB (max %dMB)", c.MaxUploadMB, MaxUploadMBCap, MaxUploadMBCap))
		c.MaxUploadMB = MaxUploadMBCap
	}
	c.Model = strings.TrimSpace(c.Model)
	c.Addr = strings.TrimSpace(c.Addr)
	return c, notes
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be greater than 0, got %s", c.PollInterval)
	}
	if c.MaxPolls < 0 {
		return fmt.Errorf("max polls must be 0 (unlimited) or greater, got %d", c.MaxPolls)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload must be greater than 0, got %d", c.MaxUploadMB)
	}
	return nil
}

// VeoConfig returns the generator settings derived from c.
func (c Config) VeoConfig() veo.Config {
	vc := veo.DefaultConfig()
	vc.Model = c.Model
	vc.PollInterval = c.PollInterval
	vc.MaxPolls = c.MaxPolls
	return vc
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseDuration accepts Go durations ("15s") and bare seconds ("15").
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
