package domain

import (
	"path/filepath"
	"strings"
)

// DefaultAssemblyExtensions lists the file extensions recognized as genome
// assemblies. Each is also accepted with a trailing ".gz".
var DefaultAssemblyExtensions = []string{".fasta", ".fna", ".fa"}

// CompareAssemblyExtensions are the defaults of cross comparison, which also
// takes .fsa files
var CompareAssemblyExtensions = []string{".fasta", ".fna", ".fa", ".fsa"}

// Item identifies one genome assembly. The canonical item order of a run is
// fixed once the items are collected and is the index basis for the distance
// matrix.
type Item struct {
	// Path is the assembly file path as discovered on disk
	Path string `json:"path" yaml:"path"`
	// Name is the base name with directory and assembly extensions removed
	Name string `json:"name" yaml:"name"`
}

// NewItem creates an item for the given path using the default extensions
func NewItem(path string) Item {
	return Item{Path: path, Name: AssemblyBaseName(path, DefaultAssemblyExtensions)}
}

// String returns the item path
func (i Item) String() string {
	return i.Path
}

// AssemblyBaseName strips the directory and every recognized assembly
// extension (plus an optional ".gz") from path, so that
// "/data/x/strainA.fasta.gz" becomes "strainA".
func AssemblyBaseName(path string, extensions []string) string {
	name := filepath.Base(path)
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".gz") {
		name = name[:len(name)-3]
		lower = lower[:len(lower)-3]
	}
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasAssemblyExtension reports whether path ends in one of the extensions,
// optionally followed by ".gz". Matching is case-insensitive.
func HasAssemblyExtension(path string, extensions []string) bool {
	lower := strings.ToLower(path)
	lower = strings.TrimSuffix(lower, ".gz")
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// CollectOptions controls assembly discovery
type CollectOptions struct {
	Recursive       bool
	Extensions      []string
	IncludePatterns []string
	ExcludePatterns []string
}

// AssemblyCollector discovers assembly files on disk
type AssemblyCollector interface {
	// CollectAssemblies returns the assemblies under root in a stable order
	CollectAssemblies(root string, opts CollectOptions) ([]Item, error)

	// FindAssemblyFolders returns the immediate subdirectories of root that
	// contain at least one assembly, or nil if none do
	FindAssemblyFolders(root string, opts CollectOptions) ([]string, error)

	// ValidateDirectory checks that path exists and is a directory
	ValidateDirectory(path string) error
}
