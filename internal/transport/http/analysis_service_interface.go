package http

import (
	"context"
	"io"

	"bankdash/internal/dataset"
	api "bankdash/pkg/contracts/api/v1"
	"bankdash/pkg/contracts/domain"
)

// AnalysisServiceInterface defines the dataset operations behind the API
type AnalysisServiceInterface interface {
	Upload(ctx context.Context, name string, r io.Reader) (domain.DatasetOverview, error)
	List(ctx context.Context) domain.DatasetList
	Overview(ctx context.Context, id string) (domain.DatasetOverview, error)
	CapOutliers(ctx context.Context, id string, columns []string) (domain.OutlierResponse, error)
	DeriveFeatures(ctx context.Context, id string, req api.DeriveFeaturesRequest) (domain.FeaturesResponse, error)
	Geography(ctx context.Context, id string) (domain.GeographyResponse, error)
	Distributions(ctx context.Context, id string) (domain.DistributionResponse, error)
	Correlations(ctx context.Context, id string, top int) (domain.CorrelationResponse, error)
	Export(ctx context.Context, id string, format dataset.Format, w io.Writer) (string, error)
	Delete(ctx context.Context, id string) error
}
