package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

// LoadFile reads a YAML or JSON overlay and merges it onto Default.
// Thresholds are decoded over the defaults, so a key absent from the file
// keeps its default while an explicit 0 is kept as 0.
func LoadFile(path string) (Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	base := Default()
	overlay := Rules{Thresholds: base.Thresholds}
	overlay.Thresholds.SummaryTiers = append([]int(nil), base.Thresholds.SummaryTiers...)
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(b, &overlay); err != nil {
			return Rules{}, fmt.Errorf("parse rules json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &overlay); err != nil {
			return Rules{}, fmt.Errorf("parse rules yaml: %w", err)
		}
	}
	th := overlay.Thresholds
	overlay.Thresholds = Thresholds{}
	merged := base.Merge(overlay)
	merged.Thresholds = th
	return merged, nil
}

// Load returns the compiled default rules, or Default merged with the file
// at path when path is non-empty.
func Load(path string) (*Classifier, error) {
	r := Default()
	if path != "" {
		var err error
		if r, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	return r.Compile()
}
