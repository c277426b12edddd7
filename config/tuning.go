// Package config loads the optional JSON tuning file that overrides the
// reconstruction constants.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/recolude/cloudmesh/normals"
	"github.com/recolude/cloudmesh/reconstruct"
)

// TuningConfig mirrors reconstruct.Params. Every field is optional; omitted
// fields keep their defaults, so partial files are safe.
type TuningConfig struct {
	// Default normal estimation
	NormalRadius          *float64 `json:"normal_radius,omitempty"`
	NormalMaxNeighbors    *int     `json:"normal_max_neighbors,omitempty"`
	NormalOrientNeighbors *int     `json:"normal_orient_neighbors,omitempty"`

	// Implicit path normal estimation
	ImplicitNormalRadius          *float64 `json:"implicit_normal_radius,omitempty"`
	ImplicitNormalMaxNeighbors    *int     `json:"implicit_normal_max_neighbors,omitempty"`
	ImplicitNormalOrientNeighbors *int     `json:"implicit_normal_orient_neighbors,omitempty"`

	// Implicit solve
	Depth     *int     `json:"depth,omitempty"`
	Scale     *float64 `json:"scale,omitempty"`
	LinearFit *bool    `json:"linear_fit,omitempty"`

	// Ball pivot and alpha
	BallRadiusMultipliers []float64 `json:"ball_radius_multipliers,omitempty"`
	AlphaMultiplier       *float64  `json:"alpha_multiplier,omitempty"`
}

const maxFileSize = 1 * 1024 * 1024

func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig reads and validates a tuning file. The path must end in
// .json.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the set fields by validating the parameters they produce.
func (c *TuningConfig) Validate() error {
	return c.Params().Validate()
}

// Params overlays the set fields onto reconstruct.DefaultParams.
func (c *TuningConfig) Params() reconstruct.Params {
	p := reconstruct.DefaultParams()
	p.Normals = overlayNormals(p.Normals, c.NormalRadius, c.NormalMaxNeighbors, c.NormalOrientNeighbors)
	p.ImplicitNormals = overlayNormals(p.ImplicitNormals, c.ImplicitNormalRadius, c.ImplicitNormalMaxNeighbors, c.ImplicitNormalOrientNeighbors)
	p.Depth = c.GetDepth()
	p.Scale = c.GetScale()
	p.LinearFit = c.GetLinearFit()
	p.RadiusMultipliers = c.GetBallRadiusMultipliers()
	p.AlphaMultiplier = c.GetAlphaMultiplier()
	return p
}

func overlayNormals(p normals.Params, radius *float64, maxNN, orientNN *int) normals.Params {
	if radius != nil {
		p.Radius = *radius
	}
	if maxNN != nil {
		p.MaxNeighbors = *maxNN
	}
	if orientNN != nil {
		p.OrientNeighbors = *orientNN
	}
	return p
}

// GetDepth returns the depth value or the default.
func (c *TuningConfig) GetDepth() int {
	if c.Depth == nil {
		return reconstruct.DefaultParams().Depth
	}
	return *c.Depth
}

// GetScale returns the scale value or the default.
func (c *TuningConfig) GetScale() float64 {
	if c.Scale == nil {
		return reconstruct.DefaultParams().Scale
	}
	return *c.Scale
}

// GetLinearFit returns the linear_fit value or the default.
func (c *TuningConfig) GetLinearFit() bool {
	if c.LinearFit == nil {
		return reconstruct.DefaultParams().LinearFit
	}
	return *c.LinearFit
}

// GetBallRadiusMultipliers returns the ball_radius_multipliers value or the
// default.
func (c *TuningConfig) GetBallRadiusMultipliers() []float64 {
	if len(c.BallRadiusMultipliers) == 0 {
		return reconstruct.DefaultParams().RadiusMultipliers
	}
	return append([]float64(nil), c.BallRadiusMultipliers...)
}

// GetAlphaMultiplier returns the alpha_multiplier value or the default.
func (c *TuningConfig) GetAlphaMultiplier() float64 {
	if c.AlphaMultiplier == nil {
		return reconstruct.DefaultParams().AlphaMultiplier
	}
	return *c.AlphaMultiplier
}
