package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything needed to build and run a terrain.
type Config struct {
	Chunk   ChunkConfig   `yaml:"chunk"`
	World   WorldConfig   `yaml:"world"`
	Mesh    MeshConfig    `yaml:"mesh"`
	Storage StorageConfig `yaml:"storage"`
	Edit    EditConfig    `yaml:"edit"`
	Log     LogConfig     `yaml:"log"`
	Workers int           `yaml:"workers"`
}

// ChunkConfig sets node dimensions per chunk.
type ChunkConfig struct {
	Size []int `yaml:"size"`
}

// WorldConfig controls how many chunks exist and how they are generated.
type WorldConfig struct {
	Count      []int   `yaml:"count"`
	Seed       int64   `yaml:"seed"`
	Generator  string  `yaml:"generator"` // perlin | layered | flat
	NoiseScale float64 `yaml:"noise_scale"`
	BaseHeight float64 `yaml:"base_height"`
}

// MeshConfig selects the Marching Cubes variant.
type MeshConfig struct {
	SurfaceLevel float32 `yaml:"surface_level"`
	Smooth       bool    `yaml:"smooth"`
	Stitch       bool    `yaml:"stitch"`
	Normals      bool    `yaml:"normals"`
	Materials    bool    `yaml:"materials"`
}

// StorageConfig selects where chunk data is persisted.
type StorageConfig struct {
	Driver   string `yaml:"driver"` // none | file | sqlite
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

// EditConfig is the default sculpting brush.
type EditConfig struct {
	Radius     float32 `yaml:"radius"`
	AddRate    float32 `yaml:"add_rate"`
	RemoveRate float32 `yaml:"remove_rate"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Chunk: ChunkConfig{Size: []int{16, 16, 16}},
		World: WorldConfig{
			Count:      []int{4, 2, 4},
			Seed:       1,
			Generator:  "perlin",
			NoiseScale: 0.05,
			BaseHeight: 12,
		},
		Mesh: MeshConfig{
			SurfaceLevel: 0.5,
			Smooth:       true,
			Stitch:       true,
			Normals:      true,
			Materials:    true,
		},
		Storage: StorageConfig{Driver: "file", Path: "chunks"},
		Edit:    EditConfig{Radius: 2, AddRate: 1, RemoveRate: 1},
		Log:     LogConfig{Level: "info"},
		Workers: 0,
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config.yaml: %w", err)
	}
	return cfg, nil
}

// Normalize clamps values into usable ranges.
func (c *Config) Normalize() {
	if c.Mesh.SurfaceLevel < 0 {
		c.Mesh.SurfaceLevel = 0
	}
	if c.Mesh.SurfaceLevel > 1 {
		c.Mesh.SurfaceLevel = 1
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.Workers > 64 {
		c.Workers = 64
	}
	if c.Edit.Radius < 0.5 {
		c.Edit.Radius = 0.5
	}
	if c.Edit.Radius > 16 {
		c.Edit.Radius = 16
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "none"
	}
}

// Validate reports configuration errors that cannot be clamped.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Chunk.Size) != 3 {
		errs = append(errs, fmt.Errorf("chunk.size: want 3 values, got %d", len(c.Chunk.Size)))
	} else {
		for i, v := range c.Chunk.Size {
			if v < 2 {
				errs = append(errs, fmt.Errorf("chunk.size[%d]: %d is below 2", i, v))
			}
		}
	}
	if len(c.World.Count) != 3 {
		errs = append(errs, fmt.Errorf("world.count: want 3 values, got %d", len(c.World.Count)))
	} else {
		for i, v := range c.World.Count {
			if v < 1 {
				errs = append(errs, fmt.Errorf("world.count[%d]: %d is below 1", i, v))
			}
		}
	}
	switch c.World.Generator {
	case "perlin", "layered", "flat":
	default:
		errs = append(errs, fmt.Errorf("world.generator: unknown %q", c.World.Generator))
	}
	if c.World.NoiseScale <= 0 {
		errs = append(errs, fmt.Errorf("world.noise_scale: must be positive"))
	}
	switch c.Storage.Driver {
	case "none":
	case "file", "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path: required for driver %q", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

// ChunkSize returns the chunk dimensions.
func (c *Config) ChunkSize() (int, int, int) {
	return c.Chunk.Size[0], c.Chunk.Size[1], c.Chunk.Size[2]
}
