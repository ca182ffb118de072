package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
)

// LoadClusterFile loads a ClusterConfig from a path to a YAML file.
func LoadClusterFile(path string, expandEnv bool) (ClusterConfig, error) {
	contents, err := readConfigFile(path, expandEnv)
	if err != nil {
		return ClusterConfig{}, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return ClusterConfig{}, err
	}

	config, err := LoadClusterBytes(contents)
	if err != nil {
		return ClusterConfig{}, fmt.Errorf("Error loading cluster config %s: %w", path, err)
	}

	config.RootDir = filepath.Dir(absPath)
	return config, nil
}

// LoadClusterBytes loads a ClusterConfig from YAML bytes.
func LoadClusterBytes(contents []byte) (ClusterConfig, error) {
	config := ClusterConfig{}
	err := unmarshalYAMLStrict(contents, &config)
	return config, err
}

// LoadOptimizerFile loads an OptimizerConfig from a path to a YAML file. Defaults are not
// applied.
func LoadOptimizerFile(path string, expandEnv bool) (OptimizerConfig, error) {
	contents, err := readConfigFile(path, expandEnv)
	if err != nil {
		return OptimizerConfig{}, err
	}

	config, err := LoadOptimizerBytes(contents)
	if err != nil {
		return OptimizerConfig{}, fmt.Errorf("Error loading optimizer config %s: %w", path, err)
	}
	return config, nil
}

// LoadOptimizerBytes loads an OptimizerConfig from YAML bytes.
func LoadOptimizerBytes(contents []byte) (OptimizerConfig, error) {
	config := OptimizerConfig{}
	err := unmarshalYAMLStrict(contents, &config)
	return config, err
}

// LoadSnapshotFile loads a SnapshotConfig from a path to a YAML file.
func LoadSnapshotFile(path string) (SnapshotConfig, error) {
	contents, err := readConfigFile(path, false)
	if err != nil {
		return SnapshotConfig{}, err
	}

	config, err := LoadSnapshotBytes(contents)
	if err != nil {
		return SnapshotConfig{}, fmt.Errorf("Error loading snapshot %s: %w", path, err)
	}
	return config, nil
}

// LoadSnapshotBytes loads a SnapshotConfig from YAML bytes.
func LoadSnapshotBytes(contents []byte) (SnapshotConfig, error) {
	config := SnapshotConfig{}
	err := unmarshalYAMLStrict(contents, &config)
	return config, err
}

func readConfigFile(path string, expandEnv bool) ([]byte, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isEmpty(string(contents)) {
		return nil, fmt.Errorf("Config file %s is empty", path)
	}

	if expandEnv {
		contents = []byte(os.ExpandEnv(string(contents)))
	}
	return contents, nil
}

func isEmpty(contents string) bool {
	lines := strings.Split(contents, "\n")
	for _, line := range lines {
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) > 0 && !strings.HasPrefix(trimmedLine, "#") {
			return false
		}
	}

	return true
}

func unmarshalYAMLStrict(y []byte, o interface{}) error {
	jsonBytes, err := yaml.YAMLToJSON(y)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(o)
}
