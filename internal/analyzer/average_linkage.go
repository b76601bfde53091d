package analyzer

import (
	"fmt"
	"math"

	"github.com/ludo-technologies/asmcluster/domain"
)

// condensedIndex returns the index in the condensed distance array for pair (i, j) where i < j.
func condensedIndex(n, i, j int) int {
	if i > j {
		i, j = j, i
	}
	return n*i - i*(i+1)/2 + j - i - 1
}

// AverageLinkage performs UPGMA agglomerative clustering over a condensed
// distance matrix of n points and returns the n-1 merges.
//
// Every active cluster occupies the slot of its lowest leaf index. When
// several candidate merges share the minimum distance, the pair with the
// lowest (slot i, slot j) wins, so identical input always yields the same
// dendrogram.
func AverageLinkage(condensed []float64, n int) (*domain.Dendrogram, error) {
	if n < 0 {
		return nil, domain.NewClusterError(fmt.Sprintf("invalid point count %d", n), nil)
	}
	if want := n * (n - 1) / 2; len(condensed) != want {
		return nil, domain.NewClusterError(
			fmt.Sprintf("condensed matrix has %d entries, expected %d for %d items", len(condensed), want, n), nil)
	}
	for k, v := range condensed {
		if math.IsNaN(v) || v < 0 {
			return nil, domain.NewClusterError(fmt.Sprintf("invalid distance %v at condensed index %d", v, k), nil)
		}
	}

	dendrogram := &domain.Dendrogram{Leaves: n, Merges: make([]domain.Merge, 0, max(n-1, 0))}
	if n < 2 {
		return dendrogram, nil
	}

	d := make([]float64, len(condensed))
	copy(d, condensed)

	active := make([]bool, n)
	size := make([]int, n)
	id := make([]int, n) // dendrogram id of the cluster in each slot
	for i := 0; i < n; i++ {
		active[i] = true
		size[i] = 1
		id[i] = i
	}

	// nn[i] is the nearest active slot j > i (lowest j on ties), -1 if none
	nn := make([]int, n)
	nnDist := make([]float64, n)
	refresh := func(i int) {
		best, bestDist := -1, math.Inf(1)
		for j := i + 1; j < n; j++ {
			if !active[j] {
				continue
			}
			if v := d[condensedIndex(n, i, j)]; best == -1 || v < bestDist {
				best, bestDist = j, v
			}
		}
		nn[i], nnDist[i] = best, bestDist
	}
	for i := 0; i < n; i++ {
		refresh(i)
	}

	for step := 0; step < n-1; step++ {
		bi := -1
		for i := 0; i < n; i++ {
			if !active[i] || nn[i] < 0 {
				continue
			}
			if bi == -1 || nnDist[i] < nnDist[bi] {
				bi = i
			}
		}
		bj := nn[bi]
		height := nnDist[bi]

		a, b := id[bi], id[bj]
		if a > b {
			a, b = b, a
		}
		ni, nj := float64(size[bi]), float64(size[bj])
		dendrogram.Merges = append(dendrogram.Merges, domain.Merge{
			A:      a,
			B:      b,
			Height: height,
			Size:   size[bi] + size[bj],
		})

		// Average linkage update: d(new, k) = (n_i*d(i,k) + n_j*d(j,k)) / (n_i + n_j)
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			dik := d[condensedIndex(n, bi, k)]
			djk := d[condensedIndex(n, bj, k)]
			d[condensedIndex(n, bi, k)] = (ni*dik + nj*djk) / (ni + nj)
		}

		active[bj] = false
		size[bi] += size[bj]
		id[bi] = n + step

		refresh(bi)
		for r := 0; r < n; r++ {
			if !active[r] || r == bi {
				continue
			}
			switch {
			case nn[r] == bi || nn[r] == bj:
				refresh(r)
			case r < bi:
				if v := d[condensedIndex(n, r, bi)]; v < nnDist[r] || (v == nnDist[r] && bi < nn[r]) {
					nn[r], nnDist[r] = bi, v
				}
			}
		}
	}

	return dendrogram, nil
}

// CutDendrogram assigns flat cluster labels so that two leaves share a label
// exactly when the highest merge joining them is at or below threshold.
// Labels start at 1 and are numbered in order of first appearance in the
// leaf order.
func CutDendrogram(dendrogram *domain.Dendrogram, threshold float64) []int {
	n := dendrogram.Leaves
	if n == 0 {
		return []int{}
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	// rep maps a dendrogram id to one of its leaves; maxHeight guards
	// against rounding inversions by using the largest height in the subtree.
	total := n + len(dendrogram.Merges)
	rep := make([]int, total)
	maxHeight := make([]float64, total)
	for i := 0; i < n; i++ {
		rep[i] = i
	}
	for k, m := range dendrogram.Merges {
		node := n + k
		rep[node] = rep[m.A]
		maxHeight[node] = math.Max(m.Height, math.Max(maxHeight[m.A], maxHeight[m.B]))
		if maxHeight[node] <= threshold {
			ra, rb := find(rep[m.A]), find(rep[m.B])
			if ra != rb {
				parent[rb] = ra
			}
		}
	}

	labels := make([]int, n)
	labelOf := make(map[int]int)
	for i := 0; i < n; i++ {
		root := find(i)
		label, ok := labelOf[root]
		if !ok {
			label = len(labelOf) + 1
			labelOf[root] = label
		}
		labels[i] = label
	}
	return labels
}

// FlatClusters runs AverageLinkage on the matrix and cuts it at threshold
func FlatClusters(matrix *domain.DistanceMatrix, threshold float64) ([]int, *domain.Dendrogram, error) {
	dendrogram, err := AverageLinkage(matrix.Condensed(), matrix.Size())
	if err != nil {
		return nil, nil, err
	}
	return CutDendrogram(dendrogram, threshold), dendrogram, nil
}
