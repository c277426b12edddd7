// Package postprocess runs the fixed sequence of mesh clean-up stages applied
// after reconstruction. Every stage returns a new mesh and leaves its input
// untouched.
package postprocess

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/recolude/cloudmesh/geometry"
)

const (
	StageCleanup   = "cleanup"
	StageSimplify  = "simplify"
	StageFillHoles = "fill-holes"
	StageColors    = "colors"
	StageOrigin    = "origin"
)

var (
	ErrUnknownStrategy = errors.New("unknown simplification strategy")
	ErrNoDecimator     = errors.New("no decimator configured")
	ErrNoHoleFiller    = errors.New("no hole filler configured")
	ErrColorMismatch   = errors.New("color count does not match vertex count")
)

type Strategy string

const (
	StrategyUniform  Strategy = "uniform"
	StrategyAdaptive Strategy = "adaptive"
)

// ParseStrategy accepts "uniform", "adaptive" and the empty string, which
// means uniform.
func ParseStrategy(tag string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(tag))) {
	case "", StrategyUniform:
		return StrategyUniform, nil
	case StrategyAdaptive:
		return StrategyAdaptive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, tag)
	}
}

// Config toggles the stages. Zero numeric values leave their stage off.
type Config struct {
	Cleanup bool

	// SimplifyTarget is the triangle count to decimate toward.
	SimplifyTarget int
	Strategy       Strategy
	// ErrorThreshold stops adaptive simplification once the cheapest
	// remaining collapse would move the surface further than this
	// (in squared distance units). Non-positive means no limit.
	ErrorThreshold float64

	// FillHolesSize is the largest boundary loop perimeter to close.
	FillHolesSize float64

	OriginNormalize bool
}

// Decimator reduces a mesh to at most target triangles, stopping early once
// a collapse would cost more than maxError.
type Decimator interface {
	Decimate(m *geometry.Mesh, target int, maxError float64) (*geometry.Mesh, error)
}

// HoleFiller closes boundary loops up to maxSize.
type HoleFiller interface {
	FillHoles(m *geometry.Mesh, maxSize float64) (*geometry.Mesh, error)
}

// Warning is a stage failure the processor recovered from.
type Warning struct {
	Stage string
	Err   error
}

func (w Warning) Error() string { return fmt.Sprintf("%s: %v", w.Stage, w.Err) }

func (w Warning) Unwrap() error { return w.Err }

// Processor runs the stages with its collaborators.
type Processor struct {
	Decimator  Decimator
	HoleFiller HoleFiller
	Logger     *log.Logger
}

func NewProcessor(d Decimator, h HoleFiller) *Processor {
	return &Processor{Decimator: d, HoleFiller: h}
}

// Run applies cleanup, simplification, hole filling, color validation and
// origin normalization in that order. Recoverable stage failures come back as
// warnings alongside the mesh.
func (p *Processor) Run(m *geometry.Mesh, cfg Config) (*geometry.Mesh, []Warning) {
	var warnings []Warning
	note := func(w *Warning) {
		if w != nil {
			p.logger().Printf("warning: %v", w)
			warnings = append(warnings, *w)
		}
	}

	if cfg.Cleanup {
		before := m.TriangleCount()
		m = Cleanup(m)
		p.logger().Printf("cleanup: %d -> %d triangles", before, m.TriangleCount())
	}

	var w *Warning
	m, w = p.Simplify(m, cfg)
	note(w)

	if cfg.FillHolesSize > 0 {
		m, w = p.FillHoles(m, cfg.FillHolesSize)
		note(w)
	}

	m, w = ValidateColors(m)
	note(w)

	if cfg.OriginNormalize {
		m = NormalizeOrigin(m)
	}
	return m, warnings
}

// Simplify decimates toward cfg.SimplifyTarget. Meshes already at or below
// the target, or runs with no target, come back unchanged. The adaptive
// strategy stops at cfg.ErrorThreshold; uniform only stops at the target.
func (p *Processor) Simplify(m *geometry.Mesh, cfg Config) (*geometry.Mesh, *Warning) {
	if cfg.SimplifyTarget <= 0 || cfg.SimplifyTarget >= m.TriangleCount() {
		return m, nil
	}
	if p.Decimator == nil {
		return m, &Warning{Stage: StageSimplify, Err: ErrNoDecimator}
	}

	maxError := math.Inf(1)
	if cfg.Strategy == StrategyAdaptive && cfg.ErrorThreshold > 0 {
		maxError = cfg.ErrorThreshold
	}
	out, err := p.Decimator.Decimate(m, cfg.SimplifyTarget, maxError)
	if err != nil {
		return m, &Warning{Stage: StageSimplify, Err: err}
	}
	if out.TriangleCount() > m.TriangleCount() {
		return m, &Warning{Stage: StageSimplify, Err: fmt.Errorf("decimation grew the mesh to %d triangles", out.TriangleCount())}
	}
	p.logger().Printf("simplify (%s): %d -> %d triangles", cfg.Strategy, m.TriangleCount(), out.TriangleCount())
	return out, nil
}

// FillHoles delegates to the hole filler. A missing filler or a filler error
// leaves the mesh as it was.
func (p *Processor) FillHoles(m *geometry.Mesh, maxSize float64) (*geometry.Mesh, *Warning) {
	if p.HoleFiller == nil {
		return m, &Warning{Stage: StageFillHoles, Err: ErrNoHoleFiller}
	}
	out, err := p.HoleFiller.FillHoles(m, maxSize)
	if err != nil {
		return m, &Warning{Stage: StageFillHoles, Err: err}
	}
	if err := out.Validate(); err != nil {
		return m, &Warning{Stage: StageFillHoles, Err: err}
	}
	return out, nil
}

func (p *Processor) logger() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}
