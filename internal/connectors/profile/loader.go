package profile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gabriel/source-connectors/internal/connectors"
)

// Parse decodes one profile document. Unknown keys are rejected so a typo in a
// selector name does not silently disable a field.
func Parse(content []byte) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromDir builds a connector for every enabled profile in dirPath. Broken
// profiles are reported together while the good ones are still returned.
func LoadFromDir(dirPath string, opts Options) ([]connectors.Connector, error) {
	trimmed := strings.TrimSpace(dirPath)
	if trimmed == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read profiles dir: %w", err)
	}

	files := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lower := strings.ToLower(entry.Name())
		if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
			files = append(files, filepath.Join(trimmed, entry.Name()))
		}
	}
	sort.Strings(files)

	loaded := make([]connectors.Connector, 0, len(files))
	failures := make([]string, 0)

	for _, filePath := range files {
		content, err := os.ReadFile(filePath)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(filePath), err))
			continue
		}

		cfg, err := Parse(content)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(filePath), err))
			continue
		}
		if !cfg.isEnabled() {
			continue
		}

		connector, err := NewConnector(cfg, opts)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(filePath), err))
			continue
		}
		loaded = append(loaded, connector)
	}

	if len(failures) > 0 {
		return loaded, fmt.Errorf("profiles failed to load: %s", strings.Join(failures, " | "))
	}

	return loaded, nil
}
