// Package thresholds maps HS chapters to the regional-value-content
// percentage a product in that chapter must meet. The legally correct
// threshold varies by product category and changes with treaty review, so
// the table lives in configuration rather than code.
package thresholds

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

// Table resolves an RVC threshold for an HS code.
type Table struct {
	Default  float64            `yaml:"default"`
	Chapters map[string]float64 `yaml:"chapters"`
}

// DefaultTable returns the built-in table: 62.5 for general goods, with
// the elevated automotive chapter.
func DefaultTable() *Table {
	return &Table{
		Default: 62.5,
		Chapters: map[string]float64{
			"87": 75, // vehicles and parts
		},
	}
}

// Load reads a threshold table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "thresholds: read %s", path)
	}

	var wrapper struct {
		RVC Table `yaml:"rvc_thresholds"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "thresholds: parse table")
	}

	t := &wrapper.RVC
	if t.Default <= 0 {
		t.Default = DefaultTable().Default
	}
	return t, nil
}

// ForHSCode returns the threshold for the code's chapter, falling back to
// the default. Unparseable codes get the default.
func (t *Table) ForHSCode(hsCode string) float64 {
	code, err := model.NormalizeHS(hsCode)
	if err != nil {
		return t.Default
	}
	if pct, ok := t.Chapters[model.HSChapter(code)]; ok {
		return pct
	}
	return t.Default
}
