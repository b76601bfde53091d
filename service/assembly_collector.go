package service

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ludo-technologies/asmcluster/domain"
)

// AssemblyCollectorImpl implements the AssemblyCollector interface
type AssemblyCollectorImpl struct{}

// NewAssemblyCollector creates a new assembly collector service
func NewAssemblyCollector() *AssemblyCollectorImpl {
	return &AssemblyCollectorImpl{}
}

// CollectAssemblies finds the assembly files under root. The result is
// sorted by path, which fixes the canonical item order of the run.
func (c *AssemblyCollectorImpl) CollectAssemblies(root string, opts domain.CollectOptions) ([]domain.Item, error) {
	if err := c.ValidateDirectory(root); err != nil {
		return nil, err
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = domain.DefaultAssemblyExtensions
	}

	var items []domain.Item
	walkFunc := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, the rest of the tree is still collected
			return nil
		}
		if path == root {
			return nil
		}

		// Skip hidden directories and files
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if !c.isRegularFile(path, d) || !domain.HasAssemblyExtension(path, exts) {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if !shouldIncludeFile(filepath.ToSlash(rel), opts.IncludePatterns, opts.ExcludePatterns) {
			return nil
		}

		items = append(items, domain.Item{Path: path, Name: domain.AssemblyBaseName(path, exts)})
		return nil
	}

	if err := filepath.WalkDir(root, walkFunc); err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", root, err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

// FindAssemblyFolders returns the immediate, non-hidden subdirectories of
// root holding at least one assembly, sorted by path.
func (c *AssemblyCollectorImpl) FindAssemblyFolders(root string, opts domain.CollectOptions) ([]string, error) {
	if err := c.ValidateDirectory(root); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("cannot read directory: %s", root), err)
	}

	var folders []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		sub := filepath.Join(root, e.Name())
		items, err := c.CollectAssemblies(sub, opts)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			folders = append(folders, sub)
		}
	}
	return folders, nil
}

// ValidateDirectory checks that path exists and is a directory
func (c *AssemblyCollectorImpl) ValidateDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewFileNotFoundError(path, err)
		}
		return domain.NewInvalidInputError(fmt.Sprintf("cannot access path: %s", path), err)
	}
	if !info.IsDir() {
		return domain.NewInvalidInputError(fmt.Sprintf("not a directory: %s", path), nil)
	}
	return nil
}

// isRegularFile follows symlinks so that linked assemblies are collected
func (c *AssemblyCollectorImpl) isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// shouldIncludeFile matches doublestar patterns against the base name and
// the slash-separated path relative to the collection root.
func shouldIncludeFile(rel string, includePatterns, excludePatterns []string) bool {
	base := filepath.Base(rel)
	matches := func(pattern string) bool {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
		ok, _ := doublestar.Match(pattern, rel)
		return ok
	}

	for _, pattern := range excludePatterns {
		if matches(pattern) {
			return false
		}
	}
	if len(includePatterns) == 0 {
		return true
	}
	for _, pattern := range includePatterns {
		if matches(pattern) {
			return true
		}
	}
	return false
}
