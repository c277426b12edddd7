// Package pipeline runs a complete point cloud to mesh conversion: load,
// color normalization, reconstruction, post-processing and export.
package pipeline

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/recolude/cloudmesh/archive"
	"github.com/recolude/cloudmesh/cache"
	"github.com/recolude/cloudmesh/export"
	"github.com/recolude/cloudmesh/geometry"
	"github.com/recolude/cloudmesh/native"
	"github.com/recolude/cloudmesh/pointcloud"
	"github.com/recolude/cloudmesh/postprocess"
	"github.com/recolude/cloudmesh/reconstruct"
	"github.com/recolude/cloudmesh/repair"
)

const (
	StageValidate    = "validate"
	StageCache       = "cache"
	StageLoad        = "load"
	StageColors      = "colors"
	StageReconstruct = "reconstruct"
	StagePostprocess = "postprocess"
	StageExport      = "export"
	StageArchive     = "archive"
)

// Config describes one conversion. The zero values of the optional fields
// disable what they control.
type Config struct {
	InputPath string
	// OutputPath gets its extension replaced by Format's.
	OutputPath string
	Format     string
	Method     string

	Cleanup          bool
	SimplifyTarget   int
	SimplifyStrategy string
	ErrorThreshold   float64
	FillHolesSize    float64
	OriginNormalize  bool

	// CacheDir enables the mesh cache. With ReuseCache an existing entry
	// short-circuits the conversion.
	CacheDir   string
	ReuseCache bool

	// ArchivePath, when set, receives a RAP recording of the run.
	ArchivePath string

	// Params overrides the pipeline's reconstruction parameters.
	Params *reconstruct.Params
}

// DefaultConfig is what the command line runs with when only paths are given.
func DefaultConfig(input, output string) Config {
	return Config{
		InputPath:        input,
		OutputPath:       output,
		Format:           string(export.OBJ),
		Method:           string(reconstruct.MethodImplicit),
		Cleanup:          true,
		SimplifyStrategy: string(postprocess.StrategyUniform),
		OriginNormalize:  true,
	}
}

// Trace times every stage of a run.
type Trace []archive.Stage

// Result is a successful conversion.
type Result struct {
	RunID      string
	OutputPath string
	// Mesh is the mesh as exported, without the normals computed for
	// export. It is nil on cache hits.
	Mesh     *geometry.Mesh
	Warnings []postprocess.Warning
	Trace    Trace
	CacheHit bool
}

// Backend is everything the pipeline needs from a geometry library.
type Backend interface {
	reconstruct.Backend
	postprocess.Decimator
	export.Writer
}

// Pipeline holds the collaborators conversions run against. It keeps no
// per-run state, so one Pipeline can serve conversions on several goroutines.
type Pipeline struct {
	Backend Backend
	// Scene handles GLB. Nil falls back to Backend with a warning.
	Scene export.SceneExporter
	// HoleFiller is optional; without it hole filling only warns.
	HoleFiller postprocess.HoleFiller
	Params     reconstruct.Params
	Logger     *log.Logger
}

// New wires the native geometry backend, the glTF scene exporter and the
// boundary loop hole filler.
func New() *Pipeline {
	return &Pipeline{
		Backend:    native.New(),
		Scene:      export.GLTFExporter{},
		HoleFiller: repair.NewFiller(),
		Params:     reconstruct.DefaultParams(),
	}
}

type run struct {
	id     string
	logger *log.Logger
	start  time.Time
	trace  Trace
}

func (r *run) stage(name string, m *geometry.Mesh, began time.Time) {
	s := archive.Stage{Name: name, Offset: began.Sub(r.start), Duration: time.Since(began)}
	if m != nil {
		s.Vertices, s.Triangles = m.VertexCount(), m.TriangleCount()
	}
	r.trace = append(r.trace, s)
}

// plan is a validated Config.
type plan struct {
	method   reconstruct.Method
	format   export.Format
	strategy postprocess.Strategy
	params   reconstruct.Params
	output   string
}

func (p *Pipeline) validate(cfg Config) (plan, error) {
	var pl plan
	var err error
	if cfg.InputPath == "" {
		return pl, fail(StageValidate, ErrInput, fmt.Errorf("no input path"))
	}
	if pl.method, err = reconstruct.ParseMethod(cfg.Method); err != nil {
		return pl, fail(StageValidate, ErrConfiguration, err)
	}
	if pl.format, err = export.ParseFormat(cfg.Format); err != nil {
		return pl, fail(StageValidate, ErrConfiguration, err)
	}
	if pl.strategy, err = postprocess.ParseStrategy(cfg.SimplifyStrategy); err != nil {
		return pl, fail(StageValidate, ErrConfiguration, err)
	}
	if cfg.SimplifyTarget < 0 {
		return pl, fail(StageValidate, ErrConfiguration, fmt.Errorf("simplify target must not be negative, got %d", cfg.SimplifyTarget))
	}
	if cfg.FillHolesSize < 0 {
		return pl, fail(StageValidate, ErrConfiguration, fmt.Errorf("hole size must not be negative, got %v", cfg.FillHolesSize))
	}

	pl.params = p.Params
	if cfg.Params != nil {
		pl.params = *cfg.Params
	}
	if err := pl.params.Validate(); err != nil {
		return pl, fail(StageValidate, ErrConfiguration, err)
	}

	if cfg.OutputPath == "" {
		return pl, fail(StageValidate, ErrConfiguration, fmt.Errorf("no output path"))
	}
	pl.output = export.OutputPath(cfg.OutputPath, pl.format)
	return pl, nil
}

// Run performs one conversion. Configuration problems are reported before
// any file is touched. Recoverable problems come back as Result.Warnings;
// everything else aborts with a *StageError.
func (p *Pipeline) Run(cfg Config) (*Result, error) {
	r := &run{id: uuid.NewString(), start: time.Now()}
	r.logger = log.New(p.logger().Writer(), fmt.Sprintf("[%s] ", r.id[:8]), p.logger().Flags())

	pl, err := p.validate(cfg)
	if err != nil {
		r.logger.Printf("rejected: %v", err)
		return nil, err
	}
	key := cache.KeyFor(cfg.InputPath, string(pl.method), string(pl.format))

	if cfg.CacheDir != "" && cfg.ReuseCache {
		began := time.Now()
		if err := cache.New(cfg.CacheDir).Restore(key, pl.output); err == nil {
			r.stage(StageCache, nil, began)
			r.logger.Printf("reused cached %s for %s", pl.output, cfg.InputPath)
			return &Result{RunID: r.id, OutputPath: pl.output, Trace: r.trace, CacheHit: true}, nil
		}
	}

	began := time.Now()
	cloud, err := pointcloud.Load(cfg.InputPath)
	if err != nil {
		return nil, fail(StageLoad, ErrInput, err)
	}
	r.stage(StageLoad, nil, began)
	r.logger.Printf("loaded %d points from %s", cloud.Len(), cfg.InputPath)

	began = time.Now()
	colored, err := pointcloud.NormalizeColors(cloud, cfg.InputPath)
	if err != nil {
		r.logger.Printf("continuing without colors: %v", err)
	}
	cloud = colored
	r.stage(StageColors, nil, began)

	began = time.Now()
	dispatcher := reconstruct.NewDispatcher(p.Backend, pl.params)
	dispatcher.Logger = r.logger
	mesh, err := dispatcher.Reconstruct(cloud, string(pl.method))
	if err != nil {
		return nil, fail(StageReconstruct, ErrReconstruction, err)
	}
	if mesh.TriangleCount() == 0 {
		return nil, fail(StageReconstruct, ErrReconstruction, fmt.Errorf("%s: %w", pl.method, ErrNoTriangles))
	}
	r.stage(StageReconstruct, mesh, began)

	began = time.Now()
	processor := postprocess.NewProcessor(p.Backend, p.HoleFiller)
	processor.Logger = r.logger
	mesh, warnings := processor.Run(mesh, postprocess.Config{
		Cleanup:         cfg.Cleanup,
		SimplifyTarget:  cfg.SimplifyTarget,
		Strategy:        pl.strategy,
		ErrorThreshold:  cfg.ErrorThreshold,
		FillHolesSize:   cfg.FillHolesSize,
		OriginNormalize: cfg.OriginNormalize,
	})
	if mesh.TriangleCount() == 0 {
		return nil, fail(StagePostprocess, ErrReconstruction, ErrNoTriangles)
	}
	r.stage(StagePostprocess, mesh, began)

	began = time.Now()
	exporter := export.New(p.Backend, p.Scene)
	exporter.Logger = r.logger
	warn, err := exporter.Export(mesh, pl.output, pl.format)
	if err != nil {
		return nil, fail(StageExport, ErrExport, err)
	}
	if warn != nil {
		warnings = append(warnings, postprocess.Warning{Stage: StageExport, Err: warn})
	}
	r.stage(StageExport, mesh, began)

	if cfg.CacheDir != "" {
		if err := cache.New(cfg.CacheDir).Store(key, pl.output); err != nil {
			w := postprocess.Warning{Stage: StageCache, Err: err}
			r.logger.Printf("warning: %v", w)
			warnings = append(warnings, w)
		}
	}

	if cfg.ArchivePath != "" {
		began = time.Now()
		messages := make([]string, len(warnings))
		for i, w := range warnings {
			messages[i] = w.Error()
		}
		err := archive.Write(cfg.ArchivePath, archive.Run{
			ID:         r.id,
			InputPath:  cfg.InputPath,
			OutputPath: pl.output,
			Method:     string(pl.method),
			Format:     string(pl.format),
			Points:     cloud.Len(),
			Mesh:       mesh,
			Stages:     r.trace,
			Warnings:   messages,
		})
		if err != nil {
			return nil, fail(StageArchive, ErrExport, err)
		}
		r.stage(StageArchive, nil, began)
	}

	r.logger.Printf("done in %s: %s (%d vertices, %d triangles, %d warnings)",
		time.Since(r.start).Round(time.Millisecond), pl.output, mesh.VertexCount(), mesh.TriangleCount(), len(warnings))
	return &Result{
		RunID:      r.id,
		OutputPath: pl.output,
		Mesh:       mesh,
		Warnings:   warnings,
		Trace:      r.trace,
		CacheHit:   false,
	}, nil
}

func (p *Pipeline) logger() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}
