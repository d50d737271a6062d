package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CLIFlagPaths maps command-line flag names to configuration paths.
var CLIFlagPaths = map[string]string{
	"driver":     "database.driver",
	"db-dir":     "database.dir",
	"reset":      "database.reset",
	"dsn":        "database.conn_string",
	"precedence": "ingest.precedence",
	"timeout":    "ingest.timeout",
	"host":       "server.host",
	"port":       "server.port",
	"log-level":  "runtime.log_level",
	"log-json":   "runtime.log_json",
	"metrics":    "monitoring.enabled",
	"config":     "cli.config_file",
	"env-file":   "cli.env_file",
	"format":     "cli.format",
	"dry-run":    "cli.dry_run",
}

// envProvider marks that environment variables take part in loading. The
// loader itself reads the mapped variables.
type envProvider struct{}

// NewEnvProvider creates a new environment variable configuration source.
func NewEnvProvider() Source {
	return &envProvider{}
}

func (e *envProvider) Load() (map[string]any, error) {
	return make(map[string]any), nil
}

func (e *envProvider) Type() SourceType {
	return SourceEnv
}

// cliProvider implements Source for explicitly set command-line flags.
type cliProvider struct {
	flags map[string]any
}

// NewCLIProvider creates a CLI flags configuration source. Keys are flag
// names; flags without a mapping in CLIFlagPaths are ignored.
func NewCLIProvider(flags map[string]any) Source {
	return &cliProvider{flags: flags}
}

func (c *cliProvider) Load() (map[string]any, error) {
	config := make(map[string]any)
	for key, value := range c.flags {
		path, ok := CLIFlagPaths[key]
		if !ok {
			continue
		}
		if err := setNested(config, path, value); err != nil {
			return nil, fmt.Errorf("failed to set CLI flag %s: %w", key, err)
		}
	}
	return config, nil
}

func (c *cliProvider) Type() SourceType {
	return SourceCLI
}

// setNested sets a value in a nested map structure using dot notation.
func setNested(m map[string]any, path string, value any) error {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	current := m
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return fmt.Errorf("configuration conflict: key %q is not a map", strings.Join(parts[:i+1], "."))
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	return nil
}

// yamlProvider implements Source for YAML files.
type yamlProvider struct {
	path string
}

// NewYAMLProvider creates a YAML file configuration source. A missing file
// contributes nothing.
func NewYAMLProvider(path string) Source {
	return &yamlProvider{path: path}
}

func (y *yamlProvider) Load() (map[string]any, error) {
	if y.path == "" {
		return make(map[string]any), nil
	}
	data, err := os.ReadFile(y.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("failed to read YAML file: %w", err)
	}
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file: %w", err)
	}
	return filterNilValues(config), nil
}

func (y *yamlProvider) Type() SourceType {
	return SourceYAML
}

// filterNilValues recursively removes nil values so they never override
// existing ones.
func filterNilValues(m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		if v == nil {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			if filtered := filterNilValues(nested); len(filtered) > 0 {
				result[k] = filtered
			}
			continue
		}
		result[k] = v
	}
	return result
}
