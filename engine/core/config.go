package core

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultMaxMeshes         uint32 = 1024
	DefaultPipelineConfig    string = "config/model_pipeline.toml"
	DefaultSkyPipelineConfig string = "config/sky_pipeline.toml"
	DefaultModelDirectory    string = "assets/models"
	DefaultLogLevel          string = "info"
)

type LogConfig struct {
	Level string `toml:"level"`
}

type MeshConfig struct {
	// Number of mesh slots allocated at initialization. Never resized.
	MaxMeshes uint32 `toml:"max_meshes"`
	// Delete a mesh as soon as its reference count drops to zero instead of
	// waiting for the slot to be reclaimed by a later acquisition.
	AutoRelease       bool   `toml:"auto_release"`
	PipelineConfig    string `toml:"pipeline_config"`
	SkyPipelineConfig string `toml:"sky_pipeline_config"`
	// Draws each pipeline can queue per frame. Zero means one per mesh slot.
	MaxDrawsPerFrame uint32 `toml:"max_draws_per_frame"`
}

type AssetsConfig struct {
	ModelDirectory string `toml:"model_dir"`
	Watch          bool   `toml:"watch"`
}

type Config struct {
	Log    LogConfig    `toml:"log"`
	Mesh   MeshConfig   `toml:"mesh"`
	Assets AssetsConfig `toml:"assets"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: DefaultLogLevel},
		Mesh: MeshConfig{
			MaxMeshes:         DefaultMaxMeshes,
			PipelineConfig:    DefaultPipelineConfig,
			SkyPipelineConfig: DefaultSkyPipelineConfig,
		},
		Assets: AssetsConfig{ModelDirectory: DefaultModelDirectory},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
		err = fmt.Errorf("%w: decoding %s: %s", ErrInvalidConfig, path, err)
		LogError(err.Error())
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		LogError(err.Error())
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Mesh.MaxMeshes == 0 {
		return fmt.Errorf("%w: mesh.max_meshes must be > 0", ErrInvalidConfig)
	}
	if c.Mesh.PipelineConfig == "" || c.Mesh.SkyPipelineConfig == "" {
		return fmt.Errorf("%w: mesh pipeline config paths must be set", ErrInvalidConfig)
	}
	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%w: log.level: %s", ErrInvalidConfig, err)
		}
	}
	return nil
}
