package domain

import (
	"fmt"
	"io"
	"time"
)

// CompareRequest represents a cross-comparison of two assembly collections
type CompareRequest struct {
	PathA     string         `json:"path_a"`
	PathB     string         `json:"path_b"`
	Collect   CollectOptions `json:"-"`
	Threads   int            `json:"threads"`
	ChunkSize int            `json:"chunk_size"`

	// Threshold keeps only rows with distance strictly below it when set
	Threshold *float64 `json:"threshold,omitempty"`
	// LessVerbose emits only reference, query and distance columns
	LessVerbose bool `json:"less_verbose"`

	OutputPath   string    `json:"output_path"`
	OutputWriter io.Writer `json:"-"`
}

// Validate checks the request for invalid values
func (r *CompareRequest) Validate() error {
	if r.PathA == "" || r.PathB == "" {
		return NewValidationError("two input directories are required")
	}
	if r.Threads < 1 {
		return NewValidationError(fmt.Sprintf("threads must be >= 1, got %d", r.Threads))
	}
	if r.ChunkSize < 1 {
		return NewValidationError(fmt.Sprintf("chunk size must be >= 1, got %d", r.ChunkSize))
	}
	if r.Threshold != nil && *r.Threshold < 0 {
		return NewValidationError(fmt.Sprintf("threshold must be >= 0, got %g", *r.Threshold))
	}
	if r.OutputPath == "" && r.OutputWriter == nil {
		return NewValidationError("an output file is required")
	}
	return nil
}

// CompareResponse summarizes a cross-comparison
type CompareResponse struct {
	CountA     int           `json:"count_a" yaml:"count_a"`
	CountB     int           `json:"count_b" yaml:"count_b"`
	Stats      DispatchStats `json:"stats" yaml:"stats"`
	Written    int           `json:"written" yaml:"written"`
	Filtered   int           `json:"filtered" yaml:"filtered"`
	Duration   time.Duration `json:"duration_ns" yaml:"duration_ns"`
	OutputPath string        `json:"output_path" yaml:"output_path"`
}

// ComparisonWriter streams cross-comparison rows
type ComparisonWriter interface {
	BatchSink
	// Written and Filtered return the number of emitted and dropped rows
	Written() int
	Filtered() int
	Flush() error
}

// ComparisonWriterFactory creates a comparison writer over w
type ComparisonWriterFactory func(w io.Writer, threshold *float64, lessVerbose bool) ComparisonWriter
