package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	pf "github.com/jhoydich/bearing-pf"
	"github.com/jhoydich/bearing-pf/robot"
)

// RunConfig is the on-disk form of a filter run. Every field is optional;
// the Get* methods fall back to the defaults below, so partial files are
// safe.
type RunConfig struct {
	// Noise
	BearingNoise  *float64 `json:"bearing_noise,omitempty"`
	SteeringNoise *float64 `json:"steering_noise,omitempty"`
	DistanceNoise *float64 `json:"distance_noise,omitempty"`

	// Convergence tolerances
	ToleranceXY          *float64 `json:"tolerance_xy,omitempty"`
	ToleranceOrientation *float64 `json:"tolerance_orientation,omitempty"`

	// World and robot. Landmarks are [row, col] pairs.
	Landmarks        [][2]float64 `json:"landmarks,omitempty"`
	WorldSize        *float64     `json:"world_size,omitempty"`
	MaxSteeringAngle *float64     `json:"max_steering_angle,omitempty"`
	Length           *float64     `json:"length,omitempty"`

	// Filter
	Particles *int    `json:"particles,omitempty"`
	Workers   *int    `json:"workers,omitempty"`
	Seed      *uint64 `json:"seed,omitempty"`
}

const (
	DefaultBearingNoise         = 0.1
	DefaultSteeringNoise        = 0.1
	DefaultDistanceNoise        = 5.0
	DefaultToleranceXY          = 15.0
	DefaultToleranceOrientation = 0.25
	DefaultParticles            = 500
	DefaultWorkers              = 1
)

// DefaultLandmarks are the four corners of the 100x100 world, as [row, col].
var DefaultLandmarks = [][2]float64{{0.0, 100.0}, {0.0, 0.0}, {100.0, 0.0}, {100.0, 100.0}}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultRunConfig returns a RunConfig with every field populated.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		BearingNoise:         ptrFloat64(DefaultBearingNoise),
		SteeringNoise:        ptrFloat64(DefaultSteeringNoise),
		DistanceNoise:        ptrFloat64(DefaultDistanceNoise),
		ToleranceXY:          ptrFloat64(DefaultToleranceXY),
		ToleranceOrientation: ptrFloat64(DefaultToleranceOrientation),
		Landmarks:            append([][2]float64(nil), DefaultLandmarks...),
		WorldSize:            ptrFloat64(robot.DefaultWorldSize),
		MaxSteeringAngle:     ptrFloat64(robot.DefaultMaxSteeringAngle),
		Length:               ptrFloat64(robot.DefaultLength),
		Particles:            ptrInt(DefaultParticles),
		Workers:              ptrInt(DefaultWorkers),
	}
}

// LoadRunConfig loads a RunConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *RunConfig) Validate() error {
	if c.GetBearingNoise() <= 0 {
		return fmt.Errorf("bearing_noise must be positive, got %f", c.GetBearingNoise())
	}
	if c.GetSteeringNoise() < 0 {
		return fmt.Errorf("steering_noise must be non-negative, got %f", c.GetSteeringNoise())
	}
	if c.GetDistanceNoise() < 0 {
		return fmt.Errorf("distance_noise must be non-negative, got %f", c.GetDistanceNoise())
	}
	if c.GetToleranceXY() <= 0 {
		return fmt.Errorf("tolerance_xy must be positive, got %f", c.GetToleranceXY())
	}
	if c.GetToleranceOrientation() <= 0 {
		return fmt.Errorf("tolerance_orientation must be positive, got %f", c.GetToleranceOrientation())
	}
	if c.Landmarks != nil && len(c.Landmarks) == 0 {
		return fmt.Errorf("landmarks must not be empty")
	}
	if c.GetWorldSize() <= 0 {
		return fmt.Errorf("world_size must be positive, got %f", c.GetWorldSize())
	}
	if a := c.GetMaxSteeringAngle(); a <= 0 || a >= math.Pi/2 {
		return fmt.Errorf("max_steering_angle must be in (0, pi/2), got %f", a)
	}
	if c.GetLength() <= 0 {
		return fmt.Errorf("length must be positive, got %f", c.GetLength())
	}
	if c.GetParticles() < 1 {
		return fmt.Errorf("particles must be at least 1, got %d", c.GetParticles())
	}
	if c.GetWorkers() < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.GetWorkers())
	}
	return nil
}

func (c *RunConfig) GetBearingNoise() float64 {
	if c.BearingNoise == nil {
		return DefaultBearingNoise
	}
	return *c.BearingNoise
}

func (c *RunConfig) GetSteeringNoise() float64 {
	if c.SteeringNoise == nil {
		return DefaultSteeringNoise
	}
	return *c.SteeringNoise
}

func (c *RunConfig) GetDistanceNoise() float64 {
	if c.DistanceNoise == nil {
		return DefaultDistanceNoise
	}
	return *c.DistanceNoise
}

func (c *RunConfig) GetToleranceXY() float64 {
	if c.ToleranceXY == nil {
		return DefaultToleranceXY
	}
	return *c.ToleranceXY
}

func (c *RunConfig) GetToleranceOrientation() float64 {
	if c.ToleranceOrientation == nil {
		return DefaultToleranceOrientation
	}
	return *c.ToleranceOrientation
}

func (c *RunConfig) GetLandmarks() []pf.Landmark {
	src := c.Landmarks
	if src == nil {
		src = DefaultLandmarks
	}
	out := make([]pf.Landmark, len(src))
	for i, lm := range src {
		out[i] = pf.Landmark{Row: lm[0], Col: lm[1]}
	}
	return out
}

func (c *RunConfig) GetWorldSize() float64 {
	if c.WorldSize == nil {
		return robot.DefaultWorldSize
	}
	return *c.WorldSize
}

func (c *RunConfig) GetMaxSteeringAngle() float64 {
	if c.MaxSteeringAngle == nil {
		return robot.DefaultMaxSteeringAngle
	}
	return *c.MaxSteeringAngle
}

func (c *RunConfig) GetLength() float64 {
	if c.Length == nil {
		return robot.DefaultLength
	}
	return *c.Length
}

func (c *RunConfig) GetParticles() int {
	if c.Particles == nil {
		return DefaultParticles
	}
	return *c.Particles
}

func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}

// GetSeed returns the configured seed and whether one was set. An unset
// seed means the caller should pick one.
func (c *RunConfig) GetSeed() (uint64, bool) {
	if c.Seed == nil {
		return 0, false
	}
	return *c.Seed, true
}

func (c *RunConfig) Noise() pf.Noise {
	return pf.Noise{
		Bearing:  c.GetBearingNoise(),
		Steering: c.GetSteeringNoise(),
		Distance: c.GetDistanceNoise(),
	}
}

// Filter builds the engine configuration.
func (c *RunConfig) Filter() pf.Config {
	return pf.Config{
		NumSamples: c.GetParticles(),
		Noise:      c.Noise(),
		Landmarks:  c.GetLandmarks(),
		Workers:    c.GetWorkers(),
	}
}

// Robot builds the pose provider.
func (c *RunConfig) Robot() robot.Bicycle {
	b := robot.New()
	b.Length = c.GetLength()
	b.MaxSteeringAngle = c.GetMaxSteeringAngle()
	b.WorldSize = c.GetWorldSize()
	return b
}
