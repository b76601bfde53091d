package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/analyzer"
	"github.com/ludo-technologies/asmcluster/internal/logging"
)

// ClusterServiceImpl implements the ClusterService interface on top of the
// matrix builder and the average-linkage algorithm.
type ClusterServiceImpl struct {
	logger *slog.Logger
}

// NewClusterService creates a cluster service
func NewClusterService(logger *slog.Logger) *ClusterServiceImpl {
	return &ClusterServiceImpl{logger: logging.OrDefault(logger, "cluster")}
}

// BuildMatrix reconstructs the dense matrix for items from the store
func (s *ClusterServiceImpl) BuildMatrix(ctx context.Context, items []domain.Item, store domain.ResultStore, policy domain.MissingPolicy) (*domain.DistanceMatrix, error) {
	matrix, missing, err := analyzer.NewMatrixBuilder(policy).Build(ctx, items, store)
	if err != nil {
		return nil, err
	}
	if missing > 0 {
		s.logger.Warn("pairs without a stored distance",
			slog.Int("missing", missing),
			slog.Int("items", len(items)),
			slog.String("policy", string(policy)))
	}
	return matrix, nil
}

// Cluster runs average-linkage clustering and cuts the tree at threshold
func (s *ClusterServiceImpl) Cluster(ctx context.Context, items []domain.Item, matrix *domain.DistanceMatrix, threshold float64) (*domain.ClusterAssignment, *domain.Dendrogram, error) {
	if matrix.Size() != len(items) {
		return nil, nil, domain.NewClusterError(
			fmt.Sprintf("matrix size %d does not match %d items", matrix.Size(), len(items)), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	labels, dendrogram, err := analyzer.FlatClusters(matrix, threshold)
	if err != nil {
		return nil, nil, err
	}

	assignment := &domain.ClusterAssignment{Items: items, Labels: labels}
	s.logger.Debug("clustering finished",
		slog.Int("items", len(items)),
		slog.Int("clusters", assignment.ClusterCount()),
		slog.Float64("threshold", threshold))
	return assignment, dendrogram, nil
}
