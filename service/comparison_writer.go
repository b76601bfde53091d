package service

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/ludo-technologies/asmcluster/domain"
)

// TSVComparisonWriter streams cross-comparison rows as they are produced.
// Full rows carry reference, query, distance, p-value and shared hashes;
// less verbose rows stop after the distance. With a threshold set only rows
// with a distance strictly below it are written.
type TSVComparisonWriter struct {
	mu          sync.Mutex
	w           *bufio.Writer
	threshold   *float64
	lessVerbose bool
	written     int
	filtered    int
}

// NewComparisonWriter creates a writer over out
func NewComparisonWriter(out io.Writer, threshold *float64, lessVerbose bool) *TSVComparisonWriter {
	return &TSVComparisonWriter{
		w:           bufio.NewWriter(out),
		threshold:   threshold,
		lessVerbose: lessVerbose,
	}
}

// PersistBatch writes the rows of one batch and flushes them
func (c *TSVComparisonWriter) PersistBatch(ctx context.Context, batch int, results []domain.PairResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range results {
		if c.threshold != nil && !(r.Distance < *c.threshold) {
			c.filtered++
			continue
		}
		if _, err := c.w.WriteString(c.row(r)); err != nil {
			return domain.NewOutputError("failed to write comparison row", err)
		}
		c.written++
	}
	if err := c.w.Flush(); err != nil {
		return domain.NewOutputError("failed to flush comparison rows", err)
	}
	return nil
}

func (c *TSVComparisonWriter) row(r domain.PairResult) string {
	dist := r.DistanceText
	if dist == "" {
		dist = strconv.FormatFloat(r.Distance, 'g', -1, 64)
	}
	fields := []string{r.A.Path, r.B.Path, dist}
	if !c.lessVerbose {
		fields = append(fields, r.PValue, r.SharedHashes)
	}
	return strings.Join(fields, "\t") + "\n"
}

// Written returns the number of rows written
func (c *TSVComparisonWriter) Written() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

// Filtered returns the number of rows dropped by the threshold
func (c *TSVComparisonWriter) Filtered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filtered
}

// Flush writes any buffered rows
func (c *TSVComparisonWriter) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Flush()
}

// ComparisonWriterFactory adapts NewComparisonWriter to domain.ComparisonWriterFactory
func ComparisonWriterFactory(out io.Writer, threshold *float64, lessVerbose bool) domain.ComparisonWriter {
	return NewComparisonWriter(out, threshold, lessVerbose)
}
