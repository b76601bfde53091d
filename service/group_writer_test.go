package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/asmcluster/domain"
)

func TestGroupWriter_WritesNameAndLabel(t *testing.T) {
	assignment := &domain.ClusterAssignment{
		Items: []domain.Item{
			domain.NewItem("/data/x/strainA.fasta.gz"),
			domain.NewItem("/data/x/strainB.fna"),
			domain.NewItem("/data/x/strain.C.fa"),
		},
		Labels: []int{2, 1, 2},
	}

	var buf bytes.Buffer
	require.NoError(t, NewGroupWriter().WriteGroups(&buf, assignment))
	assert.Equal(t, "strainA\t2\nstrainB\t1\nstrain.C\t2\n", buf.String())
}

func TestGroupWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewGroupWriter().WriteGroups(&buf, &domain.ClusterAssignment{}))
	assert.Empty(t, buf.String())
}

func TestGroupWriter_LengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := NewGroupWriter().WriteGroups(&buf, &domain.ClusterAssignment{
		Items:  []domain.Item{domain.NewItem("a.fa")},
		Labels: []int{1, 2},
	})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeOutputError))
}
