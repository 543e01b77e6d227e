package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxConcurrent)
	assert.Equal(t, 10*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audiogram.yaml")
	data := []byte("data_dir: /var/lib/audiogram\nmax_concurrent: 4\ntick_interval: 25ms\nredis:\n  addr: localhost:6379\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	t.Setenv("AUDIOGRAM_MAX_CONCURRENT", "3")
	t.Setenv("AUDIOGRAM_S3_BUCKET", "renders")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/audiogram", cfg.DataDir)
	assert.Equal(t, 3, cfg.MaxConcurrent)
	assert.Equal(t, 25*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "renders", cfg.S3.Bucket)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }, true},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }, true},
		{"no data dir", func(c *Config) { c.DataDir = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestBadEnv(t *testing.T) {
	t.Setenv("AUDIOGRAM_TICK_INTERVAL", "soon")
	_, err := Load("")
	assert.Error(t, err)
}
