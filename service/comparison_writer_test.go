package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/asmcluster/domain"
)

func crossResult(a, b string, d float64) domain.PairResult {
	return domain.PairResult{
		A: domain.NewItem(a), B: domain.NewItem(b),
		Distance: d, OK: true, PValue: "0", SharedHashes: "990/1000",
	}
}

func TestComparisonWriter_FullRows(t *testing.T) {
	var buf bytes.Buffer
	w := NewComparisonWriter(&buf, nil, false)

	require.NoError(t, w.PersistBatch(context.Background(), 0, []domain.PairResult{
		crossResult("/A/a1.fasta", "/B/b1.fasta", 0.0123),
	}))
	require.NoError(t, w.PersistBatch(context.Background(), 1, []domain.PairResult{
		crossResult("/A/a2.fasta", "/B/b1.fasta", 0.5),
	}))

	assert.Equal(t,
		"/A/a1.fasta\t/B/b1.fasta\t0.0123\t0\t990/1000\n"+
			"/A/a2.fasta\t/B/b1.fasta\t0.5\t0\t990/1000\n",
		buf.String())
	assert.Equal(t, 2, w.Written())
	assert.Zero(t, w.Filtered())
}

func TestComparisonWriter_LessVerboseAndStrictThreshold(t *testing.T) {
	var buf bytes.Buffer
	threshold := 0.05
	w := NewComparisonWriter(&buf, &threshold, true)

	require.NoError(t, w.PersistBatch(context.Background(), 0, []domain.PairResult{
		crossResult("a.fa", "x.fa", 0.01),
		crossResult("a.fa", "y.fa", 0.05), // equal to the threshold, dropped
		crossResult("a.fa", "z.fa", 0.2),
	}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "a.fa\tx.fa\t0.01\n", buf.String())
	assert.Equal(t, 1, w.Written())
	assert.Equal(t, 2, w.Filtered())
}

func TestComparisonWriter_FlushesEveryBatch(t *testing.T) {
	var buf bytes.Buffer
	w := NewComparisonWriter(&buf, nil, true)

	require.NoError(t, w.PersistBatch(context.Background(), 0, []domain.PairResult{crossResult("a", "b", 0)}))
	assert.Equal(t, "a\tb\t0\n", buf.String())
}

func TestComparisonWriter_KeepsDistanceText(t *testing.T) {
	var buf bytes.Buffer
	threshold := 0.001
	w := NewComparisonWriter(&buf, &threshold, false)

	r := crossResult("a", "b", 1e-05)
	r.DistanceText = "1.0e-05"
	require.NoError(t, w.PersistBatch(context.Background(), 0, []domain.PairResult{r}))

	assert.Equal(t, "a\tb\t1.0e-05\t0\t990/1000\n", buf.String())
}
