package domain

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"
)

// Merge is one step of an agglomerative clustering. A and B identify the
// merged clusters: ids below the leaf count are leaves, id Leaves+k is the
// cluster formed by merge k.
type Merge struct {
	A      int     `json:"a" yaml:"a"`
	B      int     `json:"b" yaml:"b"`
	Height float64 `json:"height" yaml:"height"`
	Size   int     `json:"size" yaml:"size"`
}

// Dendrogram is the full merge history over Leaves items
type Dendrogram struct {
	Leaves int     `json:"leaves" yaml:"leaves"`
	Merges []Merge `json:"merges" yaml:"merges"`
}

// ClusterAssignment maps every item to a flat cluster label. Labels start at
// 1 and carry no meaning beyond grouping.
type ClusterAssignment struct {
	Items  []Item `json:"items" yaml:"items"`
	Labels []int  `json:"labels" yaml:"labels"`
}

// ClusterGroup is one flat cluster with its members in canonical order
type ClusterGroup struct {
	Label   int      `json:"label" yaml:"label"`
	Members []string `json:"members" yaml:"members"`
}

// Groups returns the clusters ordered by label
func (a *ClusterAssignment) Groups() []ClusterGroup {
	byLabel := make(map[int]*ClusterGroup)
	for i, item := range a.Items {
		label := a.Labels[i]
		g, ok := byLabel[label]
		if !ok {
			g = &ClusterGroup{Label: label}
			byLabel[label] = g
		}
		g.Members = append(g.Members, item.Name)
	}

	groups := make([]ClusterGroup, 0, len(byLabel))
	for _, g := range byLabel {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Label < groups[j].Label })
	return groups
}

// ClusterCount returns the number of distinct labels
func (a *ClusterAssignment) ClusterCount() int {
	seen := make(map[int]struct{}, len(a.Labels))
	for _, l := range a.Labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

// ClusterService builds the distance matrix and partitions it
type ClusterService interface {
	// BuildMatrix reconstructs the dense matrix for items from the store,
	// filling pairs without a record according to policy
	BuildMatrix(ctx context.Context, items []Item, store ResultStore, policy MissingPolicy) (*DistanceMatrix, error)

	// Cluster runs average-linkage clustering and cuts at threshold
	Cluster(ctx context.Context, items []Item, matrix *DistanceMatrix, threshold float64) (*ClusterAssignment, *Dendrogram, error)
}

// GroupWriter emits the final grouping artifact
type GroupWriter interface {
	WriteGroups(w io.Writer, assignment *ClusterAssignment) error
}

// DispatcherFactory creates a dispatcher for one run of pairs
type DispatcherFactory func(opts DispatchOptions) PairDispatcher

// StoreOptions selects and locates the result store of a run
type StoreOptions struct {
	Backend string // sqlite or memory
	Path    string // explicit store path; empty means a fresh temporary file
	Dir     string // directory for temporary store files
	Keep    bool   // keep the store after a successful run
}

// ClusterRequest represents a request to group the assemblies of one folder
type ClusterRequest struct {
	Path          string         `json:"path"`
	Collect       CollectOptions `json:"-"`
	Threshold     float64        `json:"threshold"`
	Threads       int            `json:"threads"`
	ChunkSize     int            `json:"chunk_size"`
	MissingPolicy MissingPolicy  `json:"missing_policy"`
	Store         StoreOptions   `json:"-"`

	// OutputPath overrides <folder>/<folder>_grouped.txt
	OutputPath string `json:"output_path"`
	// SplitSubfolders processes each assembly-bearing subfolder separately
	SplitSubfolders bool `json:"split_subfolders"`

	ReportFormat OutputFormat `json:"report_format"`
	ReportDir    string       `json:"report_dir"`
	ReportWriter io.Writer    `json:"-"`
}

// Validate checks the request for invalid values
func (r *ClusterRequest) Validate() error {
	if r.Path == "" {
		return NewValidationError("input directory is required")
	}
	if r.Threshold < 0 {
		return NewValidationError(fmt.Sprintf("threshold must be >= 0, got %g", r.Threshold))
	}
	if r.Threads < 1 {
		return NewValidationError(fmt.Sprintf("threads must be >= 1, got %d", r.Threads))
	}
	if r.ChunkSize < 1 {
		return NewValidationError(fmt.Sprintf("chunk size must be >= 1, got %d", r.ChunkSize))
	}
	if _, err := ParseMissingPolicy(string(r.MissingPolicy)); err != nil {
		return err
	}
	return nil
}

// FolderResult is the outcome of grouping one folder
type FolderResult struct {
	Folder     string            `json:"folder" yaml:"folder"`
	OutputPath string            `json:"output_path" yaml:"output_path"`
	Threshold  float64           `json:"threshold" yaml:"threshold"`
	Assignment ClusterAssignment `json:"assignment" yaml:"assignment"`
	Groups     []ClusterGroup    `json:"groups" yaml:"groups"`
	Stats      DispatchStats     `json:"stats" yaml:"stats"`
	Duration   time.Duration     `json:"duration_ns" yaml:"duration_ns"`
}

// ClusterResponse collects the results of a cluster run
type ClusterResponse struct {
	Folders  []FolderResult `json:"folders" yaml:"folders"`
	Duration time.Duration  `json:"duration_ns" yaml:"duration_ns"`
}

// ClusterReportFormatter renders a cluster response in a report format
type ClusterReportFormatter interface {
	Format(resp *ClusterResponse, format OutputFormat, w io.Writer) error
}
