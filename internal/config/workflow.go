package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/odinkg/odin/internal/executor"
	"github.com/odinkg/odin/internal/models"
)

// Workflow describes one run of the mapping pipeline. Relative paths are
// resolved against the directory of the workflow file.
type Workflow struct {
	Root      string          `yaml:"root"`
	Executor  executor.Config `yaml:"executor"`
	Input     InputStage      `yaml:"input"`
	Mapping   MappingStage    `yaml:"mapping"`
	Hierarchy HierarchyStage  `yaml:"hierarchy"`
	Reduce    Stage           `yaml:"reduce"`
	Prune     Stage           `yaml:"prune"`
	Persist   *PersistStage   `yaml:"persist,omitempty"`
	Export    ExportStage     `yaml:"export"`
}

// Stage names the output directory of a stage, relative to Root.
type Stage struct {
	Directory string `yaml:"directory"`
}

// InputStage seeds the first directory from prepared JSONL files.
type InputStage struct {
	Stage    `yaml:",inline"`
	Metadata string `yaml:"metadata"`
	Terms    string `yaml:"terms"`
}

// MappingStage configures the term mapper.
type MappingStage struct {
	Stage              `yaml:",inline"`
	EntityDump         string   `yaml:"entity_dump"`
	SharedThreshold    float64  `yaml:"shared_threshold"`
	StopWords          []string `yaml:"stop_words"`
	StopWordsFile      string   `yaml:"stop_words_file"`
	StandaloneExcluded []string `yaml:"standalone_excluded"`
	Sources            []string `yaml:"sources"`
}

// HierarchyStage configures the hierarchy resolver.
type HierarchyStage struct {
	Stage      `yaml:",inline"`
	Dump       string `yaml:"dump"`
	IdlePasses int    `yaml:"idle_passes"`
}

// PersistStage enables saving final records to Postgres.
type PersistStage struct {
	Stage       `yaml:",inline"`
	DatabaseURL Secret `yaml:"database_url"`
}

// ExportStage configures the UI export.
type ExportStage struct {
	Stage     `yaml:",inline"`
	FileNames string `yaml:"file_names"`
}

// LoadWorkflow reads and validates the workflow file at path.
func LoadWorkflow(path string) (*Workflow, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("reading workflow: %w", err)
	}

	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", models.ErrInvalidConfig, path, err)
	}

	wf.resolve(filepath.Dir(path))

	if err := wf.Validate(); err != nil {
		return nil, err
	}

	return &wf, nil
}

// UnmarshalYAML lets the database URL come from the environment when the
// file leaves it empty.
func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	var v string
	if err := node.Decode(&v); err != nil {
		return err
	}

	*s = Secret(os.ExpandEnv(v))

	return nil
}

func (w *Workflow) resolve(base string) {
	abs := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	abs(&w.Root)
	abs(&w.Input.Metadata)
	abs(&w.Input.Terms)
	abs(&w.Mapping.EntityDump)
	abs(&w.Mapping.StopWordsFile)
	abs(&w.Hierarchy.Dump)
	abs(&w.Export.FileNames)
}

// Validate reports every missing or inconsistent setting at once.
func (w *Workflow) Validate() error {
	var errs []error

	require := func(v, field string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", field))
		}
	}

	require(w.Root, "root")
	require(w.Input.Directory, "input.directory")
	require(w.Input.Metadata, "input.metadata")
	require(w.Input.Terms, "input.terms")
	require(w.Mapping.Directory, "mapping.directory")
	require(w.Mapping.EntityDump, "mapping.entity_dump")
	require(w.Hierarchy.Directory, "hierarchy.directory")
	require(w.Hierarchy.Dump, "hierarchy.dump")
	require(w.Reduce.Directory, "reduce.directory")
	require(w.Prune.Directory, "prune.directory")
	require(w.Export.Directory, "export.directory")
	require(w.Export.FileNames, "export.file_names")

	if w.Persist != nil {
		require(w.Persist.Directory, "persist.directory")
		require(w.Persist.DatabaseURL.Value(), "persist.database_url")
	}

	if t := w.Mapping.SharedThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("mapping.shared_threshold must be between 0 and 1, got %v", t))
	}

	if w.Executor.Chunks < 0 || w.Executor.Workers < 0 {
		errs = append(errs, errors.New("executor.chunks and executor.workers must not be negative"))
	}

	if w.Hierarchy.IdlePasses < 0 {
		errs = append(errs, errors.New("hierarchy.idle_passes must not be negative"))
	}

	seen := make(map[string]string)

	for _, d := range w.directories() {
		if d.dir == "" {
			continue
		}

		if other, ok := seen[d.dir]; ok {
			errs = append(errs, fmt.Errorf("%s and %s share directory %q", other, d.stage, d.dir))
		}

		seen[d.dir] = d.stage
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", models.ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

type stageDir struct{ stage, dir string }

func (w *Workflow) directories() []stageDir {
	dirs := []stageDir{
		{"input", w.Input.Directory},
		{"mapping", w.Mapping.Directory},
		{"hierarchy", w.Hierarchy.Directory},
		{"reduce", w.Reduce.Directory},
		{"prune", w.Prune.Directory},
	}

	if w.Persist != nil {
		dirs = append(dirs, stageDir{"persist", w.Persist.Directory})
	}

	return append(dirs, stageDir{"export", w.Export.Directory})
}

// LoadStopWords returns the inline stop words followed by those of the stop
// words file, one or more per line.
func (m *MappingStage) LoadStopWords() ([]string, error) {
	words := append([]string(nil), m.StopWords...)

	if m.StopWordsFile == "" {
		return words, nil
	}

	data, err := os.ReadFile(m.StopWordsFile)
	if err != nil {
		return nil, fmt.Errorf("reading stop words: %w", err)
	}

	return append(words, strings.Fields(string(data))...), nil
}
