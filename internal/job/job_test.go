package job

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roboco-io/slabrender/internal/compositor"
	"github.com/roboco-io/slabrender/internal/coverage"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestNewManifest(t *testing.T) {
	m := NewManifest()

	if m.Version != ManifestVersion {
		t.Errorf("expected version %s, got %s", ManifestVersion, m.Version)
	}
	if len(m.Jobs) != 0 {
		t.Errorf("expected no jobs, got %d", len(m.Jobs))
	}

	m.AddJob(Job{ID: "island", Request: compositor.Request{Base: "k.jpg"}})
	if len(m.Jobs) != 1 || m.Jobs[0].ID != "island" {
		t.Errorf("unexpected jobs after AddJob: %+v", m.Jobs)
	}
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `version: "1"
defaults:
  strategy: cover
jobs:
  - id: island
    base: kitchen.jpg
    texture: slabs/calacatta.jpg
    mask: masks/island.png
    output: out/island.jpg
    strategy: tile
  - base: /abs/kitchen.jpg
    texture: slabs/nero.jpg
    mask: masks/perimeter.png
    output: out/perimeter.jpg
`)
	dir := filepath.Dir(path)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("failed to load manifest: %v", err)
	}

	if len(m.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(m.Jobs))
	}

	first := m.Jobs[0]
	if first.ID != "island" {
		t.Errorf("expected id 'island', got %s", first.ID)
	}
	if first.Base != filepath.Join(dir, "kitchen.jpg") {
		t.Errorf("expected base resolved against manifest dir, got %s", first.Base)
	}
	if first.Output != filepath.Join(dir, "out", "island.jpg") {
		t.Errorf("unexpected output path: %s", first.Output)
	}

	second := m.Jobs[1]
	if second.ID != "job-2" {
		t.Errorf("expected generated id 'job-2', got %s", second.ID)
	}
	if second.Base != "/abs/kitchen.jpg" {
		t.Errorf("expected absolute base to be kept, got %s", second.Base)
	}

	s, err := m.ResolveStrategy(first, coverage.Stretch)
	if err != nil || s != coverage.Tile {
		t.Errorf("expected job override 'tile', got %v (%v)", s, err)
	}
	s, err = m.ResolveStrategy(second, coverage.Stretch)
	if err != nil || s != coverage.ScaleToCover {
		t.Errorf("expected manifest default 'cover', got %v (%v)", s, err)
	}

	m.Defaults.Strategy = ""
	s, _ = m.ResolveStrategy(second, coverage.Stretch)
	if s != coverage.Stretch {
		t.Errorf("expected fallback 'stretch', got %v", s)
	}
}

func TestLoadManifest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no jobs",
			content: "version: \"1\"\njobs: []\n",
			wantErr: "no jobs",
		},
		{
			name:    "missing mask",
			content: "jobs:\n  - base: a.jpg\n    texture: b.jpg\n    output: c.jpg\n",
			wantErr: "mask is required",
		},
		{
			name: "duplicate id",
			content: `jobs:
  - {id: a, base: a.jpg, texture: b.jpg, mask: m.png, output: 1.jpg}
  - {id: a, base: a.jpg, texture: b.jpg, mask: m.png, output: 2.jpg}
`,
			wantErr: "duplicate job id",
		},
		{
			name: "duplicate output",
			content: `jobs:
  - {base: a.jpg, texture: b.jpg, mask: m.png, output: same.jpg}
  - {base: a.jpg, texture: c.jpg, mask: m.png, output: same.jpg}
`,
			wantErr: "same output",
		},
		{
			name: "duplicate absolute output spelled differently",
			content: `jobs:
  - {base: a.jpg, texture: b.jpg, mask: m.png, output: /renders/out/./island.jpg}
  - {base: a.jpg, texture: c.jpg, mask: m.png, output: /renders/out/island.jpg}
`,
			wantErr: "same output",
		},
		{
			name:    "bad strategy",
			content: "jobs:\n  - {base: a.jpg, texture: b.jpg, mask: m.png, output: o.jpg, strategy: mosaic}\n",
			wantErr: "unknown strategy",
		},
		{
			name:    "bad default strategy",
			content: "defaults:\n  strategy: mosaic\njobs:\n  - {base: a.jpg, texture: b.jpg, mask: m.png, output: o.jpg}\n",
			wantErr: "defaults",
		},
		{
			name:    "invalid yaml",
			content: "{{{{",
			wantErr: "failed to parse manifest",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, tc.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadManifest_Missing(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestLoadManifest_CleansAbsolutePaths(t *testing.T) {
	if filepath.Separator != '/' {
		t.Skip("unix paths")
	}
	m, err := LoadManifest(writeManifest(t, `jobs:
  - {base: /photos//kitchen.jpg, texture: /slabs/./marble.jpg, mask: /masks/x/../island.png, output: /renders/out/}
`))
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}

	j := m.Jobs[0]
	want := []string{"/photos/kitchen.jpg", "/slabs/marble.jpg", "/masks/island.png", "/renders/out"}
	for i, got := range []string{j.Base, j.Texture, j.Mask, j.Output} {
		if got != want[i] {
			t.Errorf("path %d: expected %s, got %s", i, want[i], got)
		}
	}
}
