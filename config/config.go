package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel int `yaml:"log_level"`

	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Render   RenderConfig   `yaml:"render"`
	Encoder  EncoderConfig  `yaml:"encoder"`
	Database DatabaseConfig `yaml:"database"`
	Tracks   []TrackConfig  `yaml:"tracks"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type StorageConfig struct {
	// Type of storage: "local" or "gcs"
	Type string `yaml:"type"`

	// Local storage options
	OutputDir string `yaml:"output_dir"`
	TempDir   string `yaml:"temp_dir"`

	// GCS options
	Bucket          string `yaml:"bucket"`
	ObjectPrefix    string `yaml:"object_prefix"`
	CredentialsFile string `yaml:"credentials_file"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

type RenderConfig struct {
	// Resolution is one of 720p, 1080p, source or custom
	Resolution string  `yaml:"resolution"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	FrameRate  float64 `yaml:"frame_rate"`
	TickRate   float64 `yaml:"tick_rate"`
	SettleMS   int     `yaml:"settle_ms"`
}

type EncoderConfig struct {
	FFmpegPath   string `yaml:"ffmpeg_path"`
	FFprobePath  string `yaml:"ffprobe_path"`
	AudioBitrate string `yaml:"audio_bitrate"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type TrackConfig struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	// Unmarshal the YAML data into the struct
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	config := &Config{}
	config.SetDefaults()
	return config
}

// SetDefaults fills in every unset field.
func (c *Config) SetDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}

	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "output"
	}

	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}

	if c.Render.Resolution == "" {
		c.Render.Resolution = "720p"
	}

	if c.Render.FrameRate <= 0 {
		c.Render.FrameRate = 30
	}

	if c.Render.TickRate <= 0 {
		c.Render.TickRate = 60
	}

	if c.Render.SettleMS <= 0 {
		c.Render.SettleMS = 100
	}

	if c.Encoder.FFmpegPath == "" {
		c.Encoder.FFmpegPath = "ffmpeg"
	}

	if c.Encoder.FFprobePath == "" {
		c.Encoder.FFprobePath = "ffprobe"
	}

	if c.Encoder.AudioBitrate == "" {
		c.Encoder.AudioBitrate = "128k"
	}

	if c.Database.Path == "" {
		c.Database.Path = "data/projects.db"
	}

	if len(c.Tracks) == 0 {
		c.Tracks = []TrackConfig{
			{ID: "V1", Kind: "video", Name: "Video 1"},
			{ID: "A1", Kind: "audio", Name: "Audio 1"},
			{ID: "A2", Kind: "audio", Name: "Audio 2"},
		}
	}
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "local":
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for gcs storage")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	switch c.Render.Resolution {
	case "720p", "1080p", "source":
	case "custom":
		if c.Render.Width <= 0 || c.Render.Height <= 0 {
			return fmt.Errorf("custom resolution needs a positive width and height, got %dx%d", c.Render.Width, c.Render.Height)
		}
	default:
		return fmt.Errorf("unknown resolution %q", c.Render.Resolution)
	}

	seen := make(map[string]bool, len(c.Tracks))
	for _, t := range c.Tracks {
		if t.ID == "" {
			return fmt.Errorf("track id is required")
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate track id %q", t.ID)
		}
		seen[t.ID] = true
		if t.Kind != "video" && t.Kind != "audio" {
			return fmt.Errorf("track %s has unknown kind %q", t.ID, t.Kind)
		}
	}
	return nil
}
