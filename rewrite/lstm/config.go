package lstm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RewriteConfig is the rewriter's ambient configuration surface: which
// cell variants a pass should attempt, loaded from a small YAML document
// rather than wired in as Go literals, matching the teacher's convention
// of keeping tunables out of code.
type RewriteConfig struct {
	Variants []string `yaml:"variants"`
}

// LoadRewriteConfig reads and parses a RewriteConfig from path.
func LoadRewriteConfig(path string) (*RewriteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lstm: read config %q: %w", path, err)
	}
	var cfg RewriteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("lstm: parse config %q: %w", path, err)
	}
	return &cfg, nil
}

// ResolveVariants resolves the configured variant names against the
// built-in registry, falling back to DefaultVariants when the config
// names none.
func (c *RewriteConfig) ResolveVariants() ([]CellVariant, error) {
	if c == nil || len(c.Variants) == 0 {
		return DefaultVariants(), nil
	}
	byName := map[string]CellVariant{
		BasicLSTMCell.Name: BasicLSTMCell,
		LSTMBlockCell.Name: LSTMBlockCell,
	}
	out := make([]CellVariant, 0, len(c.Variants))
	for _, name := range c.Variants {
		v, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("lstm: unknown cell variant %q in config", name)
		}
		out = append(out, v)
	}
	return out, nil
}
