package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/recolude/cloudmesh/reconstruct"
)

func TestEmptyTuningConfigUsesDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()
	want := reconstruct.DefaultParams()
	got := cfg.Params()

	if got.Depth != 8 {
		t.Errorf("Depth = %d, want 8", got.Depth)
	}
	if got.Scale != 1.1 {
		t.Errorf("Scale = %f, want 1.1", got.Scale)
	}
	if !got.LinearFit {
		t.Errorf("LinearFit = false, want true")
	}
	if got.Normals != want.Normals {
		t.Errorf("Normals = %+v, want %+v", got.Normals, want.Normals)
	}
	if got.ImplicitNormals != want.ImplicitNormals {
		t.Errorf("ImplicitNormals = %+v, want %+v", got.ImplicitNormals, want.ImplicitNormals)
	}
	if len(got.RadiusMultipliers) != 3 || got.RadiusMultipliers[2] != 4 {
		t.Errorf("RadiusMultipliers = %v, want [1 2 4]", got.RadiusMultipliers)
	}
	if got.AlphaMultiplier != 2 {
		t.Errorf("AlphaMultiplier = %f, want 2", got.AlphaMultiplier)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.json")

	testJSON := `{
  "normal_radius": 0.2,
  "implicit_normal_orient_neighbors": 40,
  "depth": 6,
  "linear_fit": false,
  "ball_radius_multipliers": [0.5, 1.5]
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	p := cfg.Params()

	if p.Normals.Radius != 0.2 {
		t.Errorf("Normals.Radius = %f, want 0.2", p.Normals.Radius)
	}
	if p.Normals.MaxNeighbors != 30 {
		t.Errorf("Normals.MaxNeighbors = %d, want default 30", p.Normals.MaxNeighbors)
	}
	if p.ImplicitNormals.OrientNeighbors != 40 {
		t.Errorf("ImplicitNormals.OrientNeighbors = %d, want 40", p.ImplicitNormals.OrientNeighbors)
	}
	if p.Depth != 6 {
		t.Errorf("Depth = %d, want 6", p.Depth)
	}
	if p.LinearFit {
		t.Errorf("LinearFit = true, want false")
	}
	if p.Scale != 1.1 {
		t.Errorf("Scale = %f, want default 1.1", p.Scale)
	}
	if len(p.RadiusMultipliers) != 2 || p.RadiusMultipliers[0] != 0.5 {
		t.Errorf("RadiusMultipliers = %v, want [0.5 1.5]", p.RadiusMultipliers)
	}
}

func TestLoadTuningConfigRejects(t *testing.T) {
	tmpDir := t.TempDir()

	cases := map[string]string{
		"tuning.yaml":    `{}`,
		"broken.json":    `{"depth": }`,
		"negative.json":  `{"depth": -1}`,
		"tinyscale.json": `{"scale": 0.5}`,
		"zeroalpha.json": `{"alpha_multiplier": 0}`,
	}
	for name, body := range cases {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Errorf("LoadTuningConfig(%s) succeeded, want error", name)
		}
	}

	if _, err := LoadTuningConfig(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Errorf("LoadTuningConfig(missing.json) succeeded, want error")
	}
}
