package analyzer

import (
	"context"
	"fmt"
	"math"

	"github.com/ludo-technologies/asmcluster/domain"
)

// MatrixBuilder reconstructs the dense distance matrix of a run from its
// result store.
type MatrixBuilder struct {
	missing domain.MissingPolicy
}

// NewMatrixBuilder creates a builder that fills pairs absent from the store
// according to policy.
func NewMatrixBuilder(policy domain.MissingPolicy) *MatrixBuilder {
	if policy == "" {
		policy = domain.MissingAsZero
	}
	return &MatrixBuilder{missing: policy}
}

// Build scans the store once and places every record whose items are both in
// items. The first record seen for an unordered pair wins; a later (b,a)
// record for the same pair is ignored.
func (b *MatrixBuilder) Build(ctx context.Context, items []domain.Item, store domain.ResultStore) (*domain.DistanceMatrix, int, error) {
	n := len(items)
	m := b.newMatrix(n)

	index := make(map[string]int, n)
	for i, it := range items {
		index[it.Path] = i
	}

	placed := make(map[[2]int]struct{})
	err := store.Scan(ctx, func(rec domain.DistanceRecord) error {
		i, ok := index[rec.ItemA]
		if !ok {
			return nil
		}
		j, ok := index[rec.ItemB]
		if !ok || i == j || math.IsNaN(rec.Distance) {
			return nil
		}
		key := [2]int{min(i, j), max(i, j)}
		if _, dup := placed[key]; dup {
			return nil
		}
		placed[key] = struct{}{}
		m.SetSymmetric(i, j, rec.Distance)
		return nil
	})
	if err != nil {
		return nil, 0, domain.NewStorageError("failed to scan distance records", err)
	}

	missing := n*(n-1)/2 - len(placed)
	return m, missing, nil
}

// BuildByLookup performs one point lookup per unordered pair, trying (a,b)
// and then (b,a). It produces the same matrix as Build and exists for small
// inputs and for verifying the bulk path.
func (b *MatrixBuilder) BuildByLookup(ctx context.Context, items []domain.Item, store domain.ResultStore) (*domain.DistanceMatrix, int, error) {
	n := len(items)
	m := b.newMatrix(n)
	missing := 0

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, ok, err := b.lookupEither(ctx, store, items[i].Path, items[j].Path)
			if err != nil {
				return nil, 0, domain.NewStorageError(fmt.Sprintf("failed to look up %s and %s", items[i].Path, items[j].Path), err)
			}
			if !ok {
				missing++
				continue
			}
			m.SetSymmetric(i, j, d)
		}
	}
	return m, missing, nil
}

func (b *MatrixBuilder) lookupEither(ctx context.Context, store domain.ResultStore, a, c string) (float64, bool, error) {
	d, ok, err := store.Lookup(ctx, a, c)
	if err != nil || ok {
		return d, ok, err
	}
	return store.Lookup(ctx, c, a)
}

func (b *MatrixBuilder) newMatrix(n int) *domain.DistanceMatrix {
	m := domain.NewDistanceMatrix(n)
	if fill := b.missing.Value(); fill != 0 {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				m.SetSymmetric(i, j, fill)
			}
		}
	}
	return m
}
