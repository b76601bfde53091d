package app

import (
	"fmt"
	"path/filepath"

	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/constants"
)

// ResolveFolders returns the folders that make up one cluster run.
// With split set, every immediate subfolder holding assemblies is a run of
// its own; when there is none, root itself is processed.
func ResolveFolders(collector domain.AssemblyCollector, root string, split bool, opts domain.CollectOptions) ([]string, error) {
	if err := collector.ValidateDirectory(root); err != nil {
		return nil, err
	}
	if !split {
		return []string{root}, nil
	}

	folders, err := collector.FindAssemblyFolders(root, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to scan subfolders of %s: %w", root, err)
	}
	if len(folders) == 0 {
		return []string{root}, nil
	}
	return folders, nil
}

// GroupedOutputPath returns <folder>/<folder name>_grouped.txt
func GroupedOutputPath(folder string) string {
	abs, err := filepath.Abs(folder)
	if err != nil {
		abs = filepath.Clean(folder)
	}
	return filepath.Join(folder, filepath.Base(abs)+constants.GroupedFileSuffix)
}
