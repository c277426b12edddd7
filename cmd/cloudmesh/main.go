package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/recolude/cloudmesh/config"
	"github.com/recolude/cloudmesh/export"
	"github.com/recolude/cloudmesh/pipeline"
	"github.com/recolude/cloudmesh/pointcloud"
	"github.com/recolude/cloudmesh/postprocess"
	"github.com/recolude/cloudmesh/reconstruct"
	"github.com/urfave/cli/v2"
)

func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Value: string(export.OBJ),
			Usage: "output format: " + strings.Join(formatNames(), ", "),
		},
		&cli.StringFlag{
			Name:  "method",
			Value: string(reconstruct.MethodImplicit),
			Usage: "meshing method: " + strings.Join(methodNames(), ", "),
		},
		&cli.BoolFlag{
			Name:  "no-cleanup",
			Usage: "skip merging duplicate vertices and dropping degenerate triangles",
		},
		&cli.IntFlag{
			Name:  "simplify",
			Usage: "target triangle count, 0 disables simplification",
		},
		&cli.StringFlag{
			Name:  "simplify-strategy",
			Value: string(postprocess.StrategyUniform),
			Usage: "uniform or adaptive",
		},
		&cli.Float64Flag{
			Name:  "error-threshold",
			Usage: "adaptive simplification stops once a collapse costs more than this",
		},
		&cli.Float64Flag{
			Name:  "fill-holes",
			Usage: "fill holes whose boundary is at most this long, 0 disables",
		},
		&cli.BoolFlag{
			Name:  "no-origin-bottom",
			Usage: "keep the reconstructed coordinates instead of moving the mesh to the origin",
		},
		&cli.StringFlag{
			Name:  "tuning",
			Usage: "path to a JSON file overriding reconstruction parameters",
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "directory to keep finished meshes in",
		},
		&cli.BoolFlag{
			Name:  "reuse-cache",
			Usage: "skip the conversion when the cache already holds its result",
		},
	}
}

func formatNames() []string {
	names := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		names[i] = string(f)
	}
	return names
}

func methodNames() []string {
	names := make([]string, len(reconstruct.Methods))
	for i, m := range reconstruct.Methods {
		names[i] = string(m)
	}
	return names
}

func configFromFlags(c *cli.Context, input, output string) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig(input, output)
	cfg.Format = c.String("format")
	cfg.Method = c.String("method")
	cfg.Cleanup = !c.Bool("no-cleanup")
	cfg.SimplifyTarget = c.Int("simplify")
	cfg.SimplifyStrategy = c.String("simplify-strategy")
	cfg.ErrorThreshold = c.Float64("error-threshold")
	cfg.FillHolesSize = c.Float64("fill-holes")
	cfg.OriginNormalize = !c.Bool("no-origin-bottom")
	cfg.CacheDir = c.String("cache-dir")
	cfg.ReuseCache = c.Bool("reuse-cache")

	if path := c.String("tuning"); path != "" {
		tuning, err := config.LoadTuningConfig(path)
		if err != nil {
			return cfg, err
		}
		params := tuning.Params()
		cfg.Params = &params
	}
	return cfg, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func main() {
	app := &cli.App{
		Name:  "cloudmesh",
		Usage: "Turns PLY point clouds into meshes",
		Authors: []*cli.Author{
			{
				Name:  "Eli Davis",
				Email: "eli@recolude.com",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "convert",
				Usage: "mesh a single point cloud",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "path to the PLY point cloud",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "path to the mesh, its extension follows --format (default: <input>_mesh)",
					},
					&cli.StringFlag{
						Name:  "archive",
						Usage: "path to a RAP file recording the run",
					},
				}, conversionFlags()...),
				Action: func(c *cli.Context) error {
					input := c.String("input")
					output := c.String("output")
					if output == "" {
						output = filepath.Join(filepath.Dir(input), stem(input)+"_mesh")
					}

					cfg, err := configFromFlags(c, input, output)
					if err != nil {
						return err
					}
					cfg.ArchivePath = c.String("archive")

					res, err := pipeline.New().Run(cfg)
					if err != nil {
						return err
					}
					for _, w := range res.Warnings {
						log.Printf("warning: %v", w)
					}
					fmt.Println(res.OutputPath)
					return nil
				},
			},
			{
				Name:      "batch",
				Usage:     "mesh several point clouds, continuing past failures",
				ArgsUsage: "<cloud.ply>...",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "output-dir",
						Required: true,
						Usage:    "directory the meshes are written to",
					},
				}, conversionFlags()...),
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return fmt.Errorf("no input files given")
					}
					if err := os.MkdirAll(c.String("output-dir"), 0755); err != nil {
						return err
					}

					cfgs := make([]pipeline.Config, 0, c.NArg())
					for _, input := range c.Args().Slice() {
						cfg, err := configFromFlags(c, input, filepath.Join(c.String("output-dir"), stem(input)))
						if err != nil {
							return err
						}
						cfgs = append(cfgs, cfg)
					}

					items := pipeline.New().RunBatch(cfgs)
					for _, it := range items {
						if it.Err == nil {
							fmt.Println(it.Result.OutputPath)
						}
					}
					if failed := pipeline.Failed(items); len(failed) > 0 {
						return fmt.Errorf("%d of %d conversions failed", len(failed), len(items))
					}
					return nil
				},
			},
			{
				Name:  "sh2rgb",
				Usage: "rewrite a Gaussian splat PLY as an RGB point cloud",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "in",
						Required: true,
						Usage:    "path to the splat PLY",
					},
					&cli.StringFlag{
						Name:     "out",
						Required: true,
						Usage:    "path to the RGB point cloud",
					},
				},
				Action: func(c *cli.Context) error {
					n, err := pointcloud.ConvertSH(c.String("in"), c.String("out"))
					if err != nil {
						return err
					}
					log.Printf("wrote %d points to %s", n, c.String("out"))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
