package main

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/pelletier/go-toml/v2"
)

const (
	formatDualQuat  = "dualquat"
	formatTransform = "transform"
)

// ClipConfig selects one playing clip by name.
type ClipConfig struct {
	Clip string `toml:"clip"`
	// Offset is the playback position at frame 0, in seconds.
	Offset float32 `toml:"offset"`
	// Speed scales playback. 0 means 1.
	Speed float32 `toml:"speed"`
	// Weight defaults to 1 for the current clip and 0 for the next. An explicit 0 keeps the layer idle.
	Weight *float32 `toml:"weight"`
}

// Config holds the settings of a pose dump run.
type Config struct {
	Manifest      string  `toml:"manifest"`
	Frames        int     `toml:"frames"`
	FPS           float32 `toml:"fps"`
	Instances     int     `toml:"instances"`
	Workers       int     `toml:"workers"`
	Interpolation string  `toml:"interpolation"`
	Profile       bool    `toml:"profile"`
	// Format is "dualquat" for the raw buffer or "transform" for the recovered translation and rotation.
	Format string `toml:"format"`
	// Shader is an optional skinning shader whose pose buffer declaration sets the output binding.
	Shader  string     `toml:"shader"`
	Current ClipConfig `toml:"current"`
	Next    ClipConfig `toml:"next"`
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Manifest      string
	Frames        int
	FPS           float32
	Workers       int
	Interpolation string
	Current       string
	Next          string
	NextWeight    float32
	Format        string
	Shader        string
	Profile       bool
}

// Load reads a TOML config file. Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve applies CLI overrides and fills defaults.
func (c *Config) Resolve(flags Flags) {
	c.Manifest = common.Coalesce(flags.Manifest, c.Manifest)
	c.Frames = common.Coalesce(flags.Frames, c.Frames, 1)
	c.FPS = common.Coalesce(flags.FPS, c.FPS, 30)
	c.Instances = common.Coalesce(c.Instances, 1)
	c.Workers = common.Coalesce(flags.Workers, c.Workers, 1)
	c.Interpolation = common.Coalesce(flags.Interpolation, c.Interpolation, pose.InterpolationNearest.String())
	c.Profile = c.Profile || flags.Profile
	c.Format = common.Coalesce(flags.Format, c.Format, formatDualQuat)
	c.Shader = common.Coalesce(flags.Shader, c.Shader)

	c.Current.Clip = common.Coalesce(flags.Current, c.Current.Clip)
	c.Current.Weight = common.Ptr(common.ValueOr(c.Current.Weight, 1))
	c.Current.Speed = common.Coalesce(c.Current.Speed, 1)

	c.Next.Clip = common.Coalesce(flags.Next, c.Next.Clip)
	if flags.NextWeight != 0 {
		c.Next.Weight = common.Ptr(flags.NextWeight)
	}
	c.Next.Weight = common.Ptr(common.ValueOr(c.Next.Weight, 0))
	c.Next.Speed = common.Coalesce(c.Next.Speed, 1)
}

// Validate reports settings no run can use.
func (c *Config) Validate() error {
	if c.Manifest == "" {
		return fmt.Errorf("config: no manifest")
	}
	if c.Current.Clip == "" && c.Next.Clip == "" {
		return fmt.Errorf("config: no clip to play")
	}
	if _, ok := pose.ParseInterpolation(c.Interpolation); !ok {
		return fmt.Errorf("config: unknown interpolation %q", c.Interpolation)
	}
	if c.Format != formatDualQuat && c.Format != formatTransform {
		return fmt.Errorf("config: unknown format %q", c.Format)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("config: fps must be positive, got %g", c.FPS)
	}
	return nil
}
