package pipeline

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/sessionscribe-backend/internal/platform/logger"
)

const (
	pipelineName = "session_report"
	pipelineEnv  = "REPORT_PIPELINE_YAML"
)

//go:embed session_report.yaml
var specFS embed.FS

var stageNames = []string{"preprocess", "analyze", "summarize", "validate", "format"}

// Definition is the tunable part of the report pipeline. The stage graph itself is fixed.
type Definition struct {
	Pipeline           string      `yaml:"pipeline"`
	Version            int         `yaml:"version"`
	BatchSize          int         `yaml:"batch_size"`
	MaxRetries         int         `yaml:"max_retries"`
	ExcludedSceneTypes []string    `yaml:"excluded_scene_types"`
	Stages             []StageSpec `yaml:"stages"`
}

type StageSpec struct {
	Name         string `yaml:"name"`
	Instructions string `yaml:"instructions"`
	// MaxInputLines truncates the transcript shown to the stage. Zero means no limit.
	MaxInputLines int `yaml:"max_input_lines"`
}

// Stage returns the spec for name, or a zero spec when the definition does not mention it.
func (d *Definition) Stage(name string) StageSpec {
	for _, s := range d.Stages {
		if s.Name == name {
			return s
		}
	}
	return StageSpec{Name: name}
}

// Default returns the embedded definition.
func Default() *Definition {
	data, err := specFS.ReadFile("session_report.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded pipeline definition: %v", err))
	}
	def, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("embedded pipeline definition: %v", err))
	}
	return def
}

// Load reads REPORT_PIPELINE_YAML when set and falls back to the embedded definition when
// the file is missing or invalid.
func Load(log *logger.Logger) *Definition {
	path := strings.TrimSpace(os.Getenv(pipelineEnv))
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err == nil {
		var def *Definition
		if def, err = Parse(data); err == nil {
			if log != nil {
				log.Info("report pipeline definition loaded", "path", path, "version", def.Version)
			}
			return def
		}
	}
	if log != nil {
		log.Warn("report pipeline definition load failed; using embedded default", "path", path, "error", err)
	}
	return Default()
}

func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	if err := validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

func validate(def *Definition) error {
	if strings.TrimSpace(def.Pipeline) != pipelineName {
		return fmt.Errorf("unexpected pipeline: %s", def.Pipeline)
	}
	if def.BatchSize <= 0 {
		return errors.New("batch_size must be positive")
	}
	if def.MaxRetries <= 0 {
		return errors.New("max_retries must be positive")
	}
	known := map[string]bool{}
	for _, n := range stageNames {
		known[n] = true
	}
	seen := map[string]bool{}
	for _, s := range def.Stages {
		name := strings.TrimSpace(s.Name)
		if !known[name] {
			return fmt.Errorf("unknown stage: %q", s.Name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate stage: %s", name)
		}
		seen[name] = true
		if s.MaxInputLines < 0 {
			return fmt.Errorf("stage %s: max_input_lines must not be negative", name)
		}
	}
	cleaned := make([]string, 0, len(def.ExcludedSceneTypes))
	for _, t := range def.ExcludedSceneTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	def.ExcludedSceneTypes = cleaned
	return nil
}
