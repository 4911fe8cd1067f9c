// Package job defines render jobs and the YAML batch manifest that groups them.
package job

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roboco-io/slabrender/internal/compositor"
	"github.com/roboco-io/slabrender/internal/coverage"
)

// ManifestVersion is the manifest schema version written by NewManifest.
const ManifestVersion = "1"

// Job is one render: three inputs, one output and an optional strategy.
type Job struct {
	ID string `yaml:"id,omitempty"`

	compositor.Request `yaml:",inline"`

	// Strategy overrides the manifest default.
	Strategy string `yaml:"strategy,omitempty"`
}

// Defaults holds values applied to jobs that do not set them.
type Defaults struct {
	Strategy string `yaml:"strategy,omitempty"`
}

// Manifest is a batch of jobs.
type Manifest struct {
	Version  string   `yaml:"version"`
	Defaults Defaults `yaml:"defaults,omitempty"`
	Jobs     []Job    `yaml:"jobs"`
}

// NewManifest creates an empty manifest with the current version.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Jobs:    make([]Job, 0),
	}
}

// AddJob appends a job to the manifest.
func (m *Manifest) AddJob(j Job) {
	m.Jobs = append(m.Jobs, j)
}

// LoadManifest reads a manifest file. Relative paths in jobs are resolved
// against the manifest's directory and jobs without an ID are named job-N.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := m.normalize(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) normalize(dir string) error {
	if len(m.Jobs) == 0 {
		return fmt.Errorf("manifest has no jobs")
	}
	if m.Defaults.Strategy != "" {
		if _, err := coverage.ParseStrategy(m.Defaults.Strategy); err != nil {
			return fmt.Errorf("defaults: %w", err)
		}
	}

	ids := make(map[string]bool, len(m.Jobs))
	outputs := make(map[string]string, len(m.Jobs))
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if j.ID == "" {
			j.ID = fmt.Sprintf("job-%d", i+1)
		}
		if ids[j.ID] {
			return fmt.Errorf("duplicate job id: %s", j.ID)
		}
		ids[j.ID] = true

		for _, f := range []struct {
			name string
			path *string
		}{
			{"base", &j.Base},
			{"texture", &j.Texture},
			{"mask", &j.Mask},
			{"output", &j.Output},
		} {
			if *f.path == "" {
				return fmt.Errorf("job %s: %s is required", j.ID, f.name)
			}
			if !filepath.IsAbs(*f.path) {
				*f.path = filepath.Join(dir, *f.path)
			}
			*f.path = filepath.Clean(*f.path)
		}

		if other, ok := outputs[j.Output]; ok {
			return fmt.Errorf("jobs %s and %s write the same output: %s", other, j.ID, j.Output)
		}
		outputs[j.Output] = j.ID

		if j.Strategy != "" {
			if _, err := coverage.ParseStrategy(j.Strategy); err != nil {
				return fmt.Errorf("job %s: %w", j.ID, err)
			}
		}
	}
	return nil
}

// ResolveStrategy returns the job's strategy, falling back to the manifest
// default and then to fallback.
func (m *Manifest) ResolveStrategy(j Job, fallback coverage.Strategy) (coverage.Strategy, error) {
	switch {
	case j.Strategy != "":
		return coverage.ParseStrategy(j.Strategy)
	case m.Defaults.Strategy != "":
		return coverage.ParseStrategy(m.Defaults.Strategy)
	default:
		return fallback, nil
	}
}
