package domain

import (
	"context"
	"fmt"
	"iter"
	"math"
)

// Pair is one comparison to perform. In single-collection mode A precedes B
// in the canonical item order; in cross mode A comes from the first
// collection and B from the second.
type Pair struct {
	A     Item
	B     Item
	Index int // position in enumeration order
}

// PairResult is the normalized outcome of one oracle invocation
type PairResult struct {
	A        Item
	B        Item
	Distance float64
	OK       bool

	// DistanceText, PValue and SharedHashes are carried verbatim from the
	// oracle output for the cross-comparison table; they are never persisted
	// in the store. DistanceText may be empty.
	DistanceText string
	PValue       string
	SharedHashes string

	// Message describes the failure when OK is false
	Message string
}

// Record converts the result into its persisted form
func (r PairResult) Record() DistanceRecord {
	return DistanceRecord{ItemA: r.A.Path, ItemB: r.B.Path, Distance: r.Distance}
}

// DistanceRecord is the persisted form of a successful comparison
type DistanceRecord struct {
	ItemA    string  `json:"item_a" yaml:"item_a"`
	ItemB    string  `json:"item_b" yaml:"item_b"`
	Distance float64 `json:"distance" yaml:"distance"`
}

// PairKey returns an order-independent key for the unordered pair (a, b)
func PairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// PairSource is a lazy, finite, restartable sequence of pairs
type PairSource interface {
	// Len returns the total number of pairs
	Len() int

	// All yields every pair in deterministic order; each call starts over
	All() iter.Seq[Pair]

	// Chunks yields consecutive batches of at most size pairs
	Chunks(size int) iter.Seq[[]Pair]
}

// Oracle computes the distance between two assemblies. Implementations never
// return an error: failures are reported through PairResult.OK.
type Oracle interface {
	Compare(ctx context.Context, a, b Item) PairResult
}

// BatchSink receives the successful results of each batch. PersistBatch must
// be durable before it returns.
type BatchSink interface {
	PersistBatch(ctx context.Context, batch int, results []PairResult) error
}

// BatchSinkFunc adapts a function to BatchSink
type BatchSinkFunc func(ctx context.Context, batch int, results []PairResult) error

// PersistBatch calls f
func (f BatchSinkFunc) PersistBatch(ctx context.Context, batch int, results []PairResult) error {
	return f(ctx, batch, results)
}

// DispatchOptions configures the parallel dispatcher
type DispatchOptions struct {
	Threads   int
	ChunkSize int
	// Skip reports pairs that already have a result and need no oracle call
	Skip func(Pair) bool
}

// DispatchStats summarizes one dispatcher run
type DispatchStats struct {
	TotalPairs int `json:"total_pairs" yaml:"total_pairs"`
	Batches    int `json:"batches" yaml:"batches"`
	Succeeded  int `json:"succeeded" yaml:"succeeded"`
	Failed     int `json:"failed" yaml:"failed"`
	Skipped    int `json:"skipped" yaml:"skipped"`
}

// PairDispatcher exhausts a pair source through an oracle
type PairDispatcher interface {
	Dispatch(ctx context.Context, source PairSource, sink BatchSink) (*DispatchStats, error)
}

// ResultStore persists distance records for one run
type ResultStore interface {
	// AppendBatch inserts records in a single transaction
	AppendBatch(ctx context.Context, records []DistanceRecord) error

	// Lookup returns the distance stored for the ordered pair (a, b)
	Lookup(ctx context.Context, a, b string) (float64, bool, error)

	// Scan calls fn for every stored record in insertion order
	Scan(ctx context.Context, fn func(DistanceRecord) error) error

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)

	Close() error
}

// MissingPolicy decides the matrix value of a pair with no stored distance
type MissingPolicy string

const (
	// MissingAsZero treats a missing pair as identical items
	MissingAsZero MissingPolicy = "zero"
	// MissingAsInfinity keeps missing pairs from ever being merged below a finite threshold
	MissingAsInfinity MissingPolicy = "infinity"
)

// Value returns the matrix value for a missing pair
func (p MissingPolicy) Value() float64 {
	if p == MissingAsInfinity {
		return math.Inf(1)
	}
	return 0
}

// ParseMissingPolicy parses a policy name
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(s) {
	case "", MissingAsZero:
		return MissingAsZero, nil
	case MissingAsInfinity, "inf":
		return MissingAsInfinity, nil
	default:
		return "", NewValidationError(fmt.Sprintf("invalid missing policy '%s', must be one of: zero, infinity", s))
	}
}

// DistanceMatrix is a dense symmetric N×N matrix over the canonical item order
type DistanceMatrix struct {
	n    int
	data []float64
}

// NewDistanceMatrix creates an n×n zero matrix
func NewDistanceMatrix(n int) *DistanceMatrix {
	return &DistanceMatrix{n: n, data: make([]float64, n*n)}
}

// Size returns N
func (m *DistanceMatrix) Size() int {
	return m.n
}

// At returns M[i][j]
func (m *DistanceMatrix) At(i, j int) float64 {
	return m.data[i*m.n+j]
}

// SetSymmetric sets both M[i][j] and M[j][i]. The diagonal is never written.
func (m *DistanceMatrix) SetSymmetric(i, j int, v float64) {
	if i == j {
		return
	}
	m.data[i*m.n+j] = v
	m.data[j*m.n+i] = v
}

// Row returns a copy of row i
func (m *DistanceMatrix) Row(i int) []float64 {
	row := make([]float64, m.n)
	copy(row, m.data[i*m.n:(i+1)*m.n])
	return row
}

// Condensed returns the upper triangle without the diagonal in row-major
// order of (i, j) with i < j.
func (m *DistanceMatrix) Condensed() []float64 {
	out := make([]float64, 0, m.n*(m.n-1)/2)
	for i := 0; i < m.n; i++ {
		out = append(out, m.data[i*m.n+i+1:(i+1)*m.n]...)
	}
	return out
}
