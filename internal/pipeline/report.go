// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fda-label-loader/pkg/types"
)

// WriteReport writes report to path as YAML, creating parent directories.
func WriteReport(path string, report types.RunReport) error {
	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport reads a run report written by WriteReport.
func ReadReport(path string) (*types.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report types.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing run report %s: %w", path, err)
	}
	return &report, nil
}
