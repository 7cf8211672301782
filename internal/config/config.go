// Package config loads pipeline settings from config/settings.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where settings are read from when no path is given.
const DefaultPath = "config/settings.yaml"

// Settings holds all pipeline configuration.
type Settings struct {
	Paths  PathsConfig  `yaml:"paths"`
	Source SourceConfig `yaml:"source"`
	Region RegionConfig `yaml:"region"`
	Labels LabelsConfig `yaml:"labels"`
}

// PathsConfig locates inputs and outputs.
type PathsConfig struct {
	Parquet    string `yaml:"parquet"`
	RMXLSX     string `yaml:"rm_xlsx"`
	ColumnMap  string `yaml:"column_map"`
	Categories string `yaml:"categories"`
	OutputDir  string `yaml:"output_dir"`
}

// SourceConfig narrows the sector scan.
type SourceConfig struct {
	UFCode string `yaml:"uf_code"`
	Limit  int    `yaml:"limit"` // 0 means no limit
}

type RegionConfig struct {
	IntermediaryFallback bool `yaml:"intermediary_fallback"`
}

// LabelsConfig tunes category label simplification. Patterns replace the
// built-in boilerplate regexes by key.
type LabelsConfig struct {
	WrapWidth int               `yaml:"wrap_width"`
	Patterns  map[string]string `yaml:"patterns"`
}

// Default returns the settings used when no file is present.
func Default() *Settings {
	return &Settings{
		Paths: PathsConfig{
			Parquet:    "data/sp.parquet",
			RMXLSX:     "insumos/Composicao_RM_2024.xlsx",
			ColumnMap:  "docs/columns_map.csv",
			Categories: "config/categorias.yaml",
			OutputDir:  "out",
		},
		Source: SourceConfig{UFCode: "35"},
		Region: RegionConfig{IntermediaryFallback: true},
		Labels: LabelsConfig{WrapWidth: 16},
	}
}

// Load reads settings from path over the defaults. A missing file yields
// the defaults; a malformed one yields the defaults and the parse error.
// Environment overrides are applied in both cases.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultPath
	}
	s := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.applyEnvOverrides()
		return s, nil
	case err != nil:
		s.applyEnvOverrides()
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		s = Default()
		s.applyEnvOverrides()
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	s.applyEnvOverrides()
	return s, nil
}

// Save writes s as YAML.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Settings) applyEnvOverrides() {
	for env, dst := range map[string]*string{
		"SENSOCENSO_PARQUET":    &s.Paths.Parquet,
		"SENSOCENSO_RM_XLSX":    &s.Paths.RMXLSX,
		"SENSOCENSO_COLUMN_MAP": &s.Paths.ColumnMap,
		"SENSOCENSO_CATEGORIES": &s.Paths.Categories,
		"SENSOCENSO_OUTPUT_DIR": &s.Paths.OutputDir,
		"SENSOCENSO_UF":         &s.Source.UFCode,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
}

// LoadRaw reads a YAML file as a generic map. A missing or malformed file
// yields an empty map.
func LoadRaw(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// Lookup walks a dot-separated path through nested maps, returning def when
// any step is missing.
func Lookup(root map[string]any, path string, def any) any {
	var cur any = root
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		cur, ok = m[key]
		if !ok {
			return def
		}
	}
	if cur == nil {
		return def
	}
	return cur
}
