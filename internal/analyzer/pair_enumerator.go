package analyzer

import (
	"iter"

	"github.com/ludo-technologies/asmcluster/domain"
)

// CombinationSource enumerates every unordered pair of one collection:
// (0,1), (0,2), ..., (1,2), ... in canonical item order, without self-pairs.
type CombinationSource struct {
	items []domain.Item
}

// NewCombinationSource creates a source over items. source names the
// collection in the error returned when items is empty.
func NewCombinationSource(items []domain.Item, source string) (*CombinationSource, error) {
	if len(items) == 0 {
		return nil, domain.NewEmptyInputError(source)
	}
	cp := make([]domain.Item, len(items))
	copy(cp, items)
	return &CombinationSource{items: cp}, nil
}

// Len returns N*(N-1)/2
func (s *CombinationSource) Len() int {
	n := len(s.items)
	return n * (n - 1) / 2
}

// All yields the pairs lazily; every call restarts from the first pair
func (s *CombinationSource) All() iter.Seq[domain.Pair] {
	return func(yield func(domain.Pair) bool) {
		idx := 0
		for i := 0; i < len(s.items); i++ {
			for j := i + 1; j < len(s.items); j++ {
				if !yield(domain.Pair{A: s.items[i], B: s.items[j], Index: idx}) {
					return
				}
				idx++
			}
		}
	}
}

// Chunks yields consecutive batches of at most size pairs
func (s *CombinationSource) Chunks(size int) iter.Seq[[]domain.Pair] {
	return chunkPairs(s.All(), size, s.Len())
}

// CrossSource enumerates the Cartesian product of two collections, with the
// first collection in the outer loop.
type CrossSource struct {
	left  []domain.Item
	right []domain.Item
}

// NewCrossSource creates a cross-product source. Either side being empty is
// an input error naming that side.
func NewCrossSource(left []domain.Item, leftSource string, right []domain.Item, rightSource string) (*CrossSource, error) {
	if len(left) == 0 {
		return nil, domain.NewEmptyInputError(leftSource)
	}
	if len(right) == 0 {
		return nil, domain.NewEmptyInputError(rightSource)
	}
	l := make([]domain.Item, len(left))
	copy(l, left)
	r := make([]domain.Item, len(right))
	copy(r, right)
	return &CrossSource{left: l, right: r}, nil
}

// Len returns N1*N2
func (s *CrossSource) Len() int {
	return len(s.left) * len(s.right)
}

// All yields (left[i], right[j]) for every i, j
func (s *CrossSource) All() iter.Seq[domain.Pair] {
	return func(yield func(domain.Pair) bool) {
		idx := 0
		for _, a := range s.left {
			for _, b := range s.right {
				if !yield(domain.Pair{A: a, B: b, Index: idx}) {
					return
				}
				idx++
			}
		}
	}
}

// Chunks yields consecutive batches of at most size pairs
func (s *CrossSource) Chunks(size int) iter.Seq[[]domain.Pair] {
	return chunkPairs(s.All(), size, s.Len())
}

// BatchCount returns the number of batches of size needed for total pairs
func BatchCount(total, size int) int {
	if size < 1 {
		size = 1
	}
	return (total + size - 1) / size
}

func chunkPairs(seq iter.Seq[domain.Pair], size, total int) iter.Seq[[]domain.Pair] {
	if size < 1 {
		size = 1
	}
	capacity := min(size, total)
	return func(yield func([]domain.Pair) bool) {
		batch := make([]domain.Pair, 0, capacity)
		for p := range seq {
			batch = append(batch, p)
			if len(batch) == size {
				if !yield(batch) {
					return
				}
				batch = make([]domain.Pair, 0, capacity)
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}
