package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config — настройки сервиса рендеринга.
type Config struct {
	ListenAddr    string        `yaml:"listen_addr"`
	DataDir       string        `yaml:"data_dir"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	FFprobePath   string        `yaml:"ffprobe_path"`
	VideoEncoder  string        `yaml:"video_encoder"` // пусто = автоопределение
	FontsDir      string        `yaml:"fonts_dir"`
	LogLevel      string        `yaml:"log_level"`
	HookTimeout   time.Duration `yaml:"hook_timeout"`
	KeepTasks     bool          `yaml:"keep_tasks"`

	Redis     RedisConfig     `yaml:"redis"`
	S3        S3Config        `yaml:"s3"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	BuildVersion string `yaml:"-"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Prefix       string `yaml:"prefix"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// RenderParams are the encoder settings derived for one job.
type RenderParams struct {
	Width, Height int
	FPS           int
	Bitrate       int // бит/с
	Encoder       string
	Quality       int
}

func Default() Config {
	return Config{
		ListenAddr:    ":8080",
		DataDir:       "tmp",
		MaxConcurrent: 2,
		TickInterval:  10 * time.Millisecond,
		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		FontsDir:      "fonts",
		LogLevel:      "info",
		HookTimeout:   30 * time.Second,
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
		},
	}
}

// Load собирает конфигурацию: значения по умолчанию, YAML-файл (если есть),
// .env и переменные окружения AUDIOGRAM_*.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// .env необязателен
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"AUDIOGRAM_LISTEN_ADDR":    &cfg.ListenAddr,
		"AUDIOGRAM_DATA_DIR":       &cfg.DataDir,
		"AUDIOGRAM_FFMPEG_PATH":    &cfg.FFmpegPath,
		"AUDIOGRAM_FFPROBE_PATH":   &cfg.FFprobePath,
		"AUDIOGRAM_VIDEO_ENCODER":  &cfg.VideoEncoder,
		"AUDIOGRAM_FONTS_DIR":      &cfg.FontsDir,
		"AUDIOGRAM_LOG_LEVEL":      &cfg.LogLevel,
		"AUDIOGRAM_REDIS_ADDR":     &cfg.Redis.Addr,
		"AUDIOGRAM_REDIS_PASSWORD": &cfg.Redis.Password,
		"AUDIOGRAM_S3_BUCKET":      &cfg.S3.Bucket,
		"AUDIOGRAM_S3_REGION":      &cfg.S3.Region,
		"AUDIOGRAM_S3_PREFIX":      &cfg.S3.Prefix,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("AUDIOGRAM_MAX_CONCURRENT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUDIOGRAM_MAX_CONCURRENT: %w", err)
		}
		cfg.MaxConcurrent = n
	}
	if v, ok := os.LookupEnv("AUDIOGRAM_TICK_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AUDIOGRAM_TICK_INTERVAL: %w", err)
		}
		cfg.TickInterval = d
	}
	if v, ok := os.LookupEnv("AUDIOGRAM_KEEP_TASKS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUDIOGRAM_KEEP_TASKS: %w", err)
		}
		cfg.KeepTasks = b
	}
	return nil
}

func (c Config) Validate() error {
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", c.MaxConcurrent)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	return nil
}
