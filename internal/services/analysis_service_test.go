package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"bankdash/internal/config"
	"bankdash/internal/dataset"
	"bankdash/internal/infrastructure"
	"bankdash/internal/shared/testutil"
	"bankdash/internal/validation"
	api "bankdash/pkg/contracts/api/v1"
	"bankdash/pkg/contracts/domain"
)

var fixedNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...ServiceOption) *AnalysisService {
	t.Helper()
	cfg := config.Default().Analysis
	logger := quietLogger(t)
	opts = append([]ServiceOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewAnalysisService(cfg, NewDatasetStore(cfg.MaxDatasets, nil, logger), logger, opts...)
}

func uploadCustomers(t *testing.T, svc *AnalysisService) domain.DatasetOverview {
	t.Helper()
	res, err := svc.Upload(context.Background(), "customers.csv", testutil.CustomersReader())
	require.NoError(t, err)
	return res
}

func TestAnalysisService_Upload(t *testing.T) {
	svc := newTestService(t)

	res := uploadCustomers(t, svc)

	assert.NotEmpty(t, res.Dataset.ID)
	assert.Equal(t, "csv", res.Dataset.Format)
	assert.Equal(t, testutil.CustomersRows, res.Dataset.Rows)
	assert.Equal(t, 1, res.Dataset.Revision)
	assert.Equal(t, fixedNow, res.Dataset.UploadedAt)
	assert.NotEmpty(t, res.Dataset.SizeHuman)
	for _, id := range domain.IdentifierColumns {
		assert.NotContains(t, res.Dataset.Columns, id)
	}
	assert.Len(t, res.Columns, len(res.Dataset.Columns))
	assert.Equal(t, len(res.Dataset.Columns), res.NumericColumns+res.TextColumns)
	assert.Len(t, res.Preview.Rows, testutil.CustomersRows)
	assert.Equal(t, testutil.CustomersRows, res.Preview.Total)

	list := svc.List(context.Background())
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, res.Dataset.ID, list.Datasets[0].ID)
}

func TestAnalysisService_UploadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		maxSize int64
		wantErr error
	}{
		{name: "unsupported extension", file: "customers.json", body: "{}", wantErr: dataset.ErrUnsupportedFormat},
		{name: "empty", file: "customers.csv", body: "", wantErr: validation.ErrEmptyFile},
		{name: "too large", file: "customers.csv", body: testutil.CustomersCSV, maxSize: 64, wantErr: validation.ErrFileTooLarge},
		{name: "not a workbook", file: "customers.xlsx", body: "plain text", wantErr: ErrUnreadableDataset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Analysis
			if tt.maxSize > 0 {
				cfg.MaxUploadBytes = tt.maxSize
			}
			logger := quietLogger(t)
			svc := NewAnalysisService(cfg, NewDatasetStore(2, nil, logger), logger)

			_, err := svc.Upload(context.Background(), tt.file, strings.NewReader(tt.body))

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, svc.Store().Len())
		})
	}
}

func TestAnalysisService_Overview(t *testing.T) {
	svc := newTestService(t)
	up := uploadCustomers(t, svc)

	res, err := svc.Overview(context.Background(), up.Dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, up.Dataset.ID, res.Dataset.ID)

	var age *domain.ColumnSummary
	for i := range res.Columns {
		if res.Columns[i].Name == domain.ColAge {
			age = &res.Columns[i]
		}
	}
	require.NotNil(t, age)
	assert.Equal(t, "numeric", age.Kind)
	require.NotNil(t, age.Stats)
	assert.Equal(t, 5, age.Stats.Count)
	require.NotNil(t, age.Stats.Min)
	assert.Equal(t, 23.0, *age.Stats.Min)

	_, err = svc.Overview(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestAnalysisService_DeriveFeatures(t *testing.T) {
	svc := newTestService(t)
	up := uploadCustomers(t, svc)
	rows := 2

	res, err := svc.DeriveFeatures(context.Background(), up.Dataset.ID, api.DeriveFeaturesRequest{
		ReferenceDate: "2024-06-30",
		PreviewRows:   &rows,
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-06-30", res.ReferenceDate)
	assert.Equal(t, []string{
		domain.ColCustomerTenure,
		domain.ColTotalRelationshipBalance,
		domain.ColDebtToIncomeRatio,
		domain.ColDepositToLoanRatio,
		domain.ColWealthIndicator,
		domain.ColProductConcentration,
		domain.ColAgeXBalance,
		domain.ColAgeGroup,
		domain.ColIncomeGroup,
	}, res.NewColumns)
	assert.Len(t, res.Insights, 7)
	assert.Empty(t, res.SkippedRules)
	assert.Len(t, res.AppliedRules, 9)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], domain.ColJoinedBank)
	assert.Len(t, res.Preview.Rows, 2)
	assert.Equal(t, 2, res.Dataset.Revision)

	// the augmented table replaced the stored one
	stored, err := svc.Overview(context.Background(), up.Dataset.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Dataset.Columns, domain.ColWealthIndicator)
}

func TestAnalysisService_DeriveFeatures_DefaultsToClock(t *testing.T) {
	svc := newTestService(t)
	up := uploadCustomers(t, svc)

	res, err := svc.DeriveFeatures(context.Background(), up.Dataset.ID, api.DeriveFeaturesRequest{})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-30", res.ReferenceDate)
	// fewer rows than the configured preview size
	assert.Len(t, res.Preview.Rows, testutil.CustomersRows)
}

func TestAnalysisService_DeriveFeatures_Errors(t *testing.T) {
	svc := newTestService(t)
	up := uploadCustomers(t, svc)

	_, err := svc.DeriveFeatures(context.Background(), up.Dataset.ID, api.DeriveFeaturesRequest{ReferenceDate: "30/06/2024"})
	assert.ErrorIs(t, err, ErrInvalidReferenceDate)

	_, err = svc.DeriveFeatures(context.Background(), "missing", api.DeriveFeaturesRequest{})
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.DeriveFeatures(ctx, up.Dataset.ID, api.DeriveFeaturesRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalysisService_CapOutliers(t *testing.T) {
	svc := newTestService(t)
	up := uploadCustomers(t, svc)

	t.Run("default columns", func(t *testing.T) {
		res, err := svc.CapOutliers(context.Background(), up.Dataset.ID, nil)
		require.NoError(t, err)
		assert.Len(t, res.Reports, config.DefaultOutlierColumnCount)
		assert.Equal(t, 2, res.Dataset.Revision)
	})

	t.Run("explicit columns with unknown", func(t *testing.T) {
		res, err := svc.CapOutliers(context.Background(), up.Dataset.ID, []string{domain.ColBankLoans, "Nope", domain.ColNationality})
		require.NoError(t, err)
		require.Len(t, res.Reports, 1)
		assert.Equal(t, domain.ColBankLoans, res.Reports[0].Column)
		assert.ElementsMatch(t, []string{"Nope", domain.ColNationality}, res.Skipped)
		require.NotNil(t, res.Reports[0].Upper)
	})
}

func TestAnalysisService_Geography(t *testing.T) {
	svc := newTestService(t)
	up := uploadCustomers(t, svc)

	res, err := svc.Geography(context.Background(), up.Dataset.ID)
	require.NoError(t, err)

	assert.Len(t, res.Groups, 5)
	require.NotNil(t, res.Highest)
	assert.Equal(t, "American", res.Highest.Nationality)
	assert.Equal(t, "Silver", res.Highest.Loyalty)
	require.NotNil(t, res.Lowest)
	assert.Equal(t, "Jade", res.Lowest.Loyalty)
	assert.Len(t, res.IncomeTiers, 4)
	assert.Len(t, res.Insights, 6)
}

func TestAnalysisService_Geography_MissingColumns(t *testing.T) {
	svc := newTestService(t)
	up, err := svc.Upload(context.Background(), "ages.csv", strings.NewReader("Age,Bank Deposits\n30,100\n40,200\n"))
	require.NoError(t, err)

	_, err = svc.Geography(context.Background(), up.Dataset.ID)

	var mce *MissingColumnsError
	require.ErrorAs(t, err, &mce)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Equal(t, []string{domain.ColNationality, domain.ColLoyaltyClassification}, mce.Columns)
}

func TestAnalysisService_Distributions(t *testing.T) {
	svc := newTestService(t)
	up := uploadCustomers(t, svc)

	res, err := svc.Distributions(context.Background(), up.Dataset.ID)
	require.NoError(t, err)

	assert.Equal(t, up.Dataset.ID, res.DatasetID)
	require.NotNil(t, res.Age)
	require.NotNil(t, res.Age.Kurtosis)
	assert.Equal(t, 5, res.Age.Count)
	require.Len(t, res.Financials, 3)
	assert.Equal(t, domain.ColEstimatedIncome, res.Financials[0].Column)
	require.NotNil(t, res.Nationality)
	assert.Equal(t, "American", res.Nationality.Top)
	require.NotNil(t, res.FeeStructure)
	assert.Equal(t, "High", res.FeeStructure.Top)
	assert.Len(t, res.Insights, 7)
}

func TestAnalysisService_Distributions_MissingColumns(t *testing.T) {
	svc := newTestService(t)
	up, err := svc.Upload(context.Background(), "other.csv", strings.NewReader("Joined Bank,Checking Accounts\n2020-01-01,100\n"))
	require.NoError(t, err)

	_, err = svc.Distributions(context.Background(), up.Dataset.ID)

	var mce *MissingColumnsError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "distributions", mce.Analysis)
	assert.Contains(t, mce.Columns, domain.ColAge)
	assert.Contains(t, mce.Columns, domain.ColFeeStructure)

	_, err = svc.Distributions(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestAnalysisService_Correlations(t *testing.T) {
	svc := newTestService(t)
	up := uploadCustomers(t, svc)

	res, err := svc.Correlations(context.Background(), up.Dataset.ID, 0)
	require.NoError(t, err)

	require.Len(t, res.Matrix, len(res.Columns))
	for i := range res.Columns {
		require.NotNil(t, res.Matrix[i][i])
		assert.InDelta(t, 1.0, *res.Matrix[i][i], 1e-9)
	}
	assert.Len(t, res.TopPairs, config.DefaultCorrelationInsights)
	assert.Len(t, res.Insights, config.DefaultCorrelationInsights)

	res, err = svc.Correlations(context.Background(), up.Dataset.ID, 1)
	require.NoError(t, err)
	assert.Len(t, res.TopPairs, 1)
}

func TestAnalysisService_Export(t *testing.T) {
	svc := newTestService(t)
	up := uploadCustomers(t, svc)

	tests := []struct {
		format   dataset.Format
		wantName string
	}{
		{format: dataset.FormatCSV, wantName: "customers_20240630T120000.csv"},
		{format: dataset.FormatXLSX, wantName: "customers_20240630T120000.xlsx"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			name, err := svc.Export(context.Background(), up.Dataset.ID, tt.format, &buf)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)

			back, err := dataset.Load(name, &buf)
			require.NoError(t, err)
			assert.Equal(t, testutil.CustomersRows, back.Nrow())
			assert.Equal(t, up.Dataset.Columns, back.Names())
		})
	}

	_, err := svc.Export(context.Background(), up.Dataset.ID, dataset.Format("json"), &bytes.Buffer{})
	assert.ErrorIs(t, err, dataset.ErrUnsupportedFormat)
}

func TestAnalysisService_Delete(t *testing.T) {
	svc := newTestService(t)
	up := uploadCustomers(t, svc)

	require.NoError(t, svc.Delete(context.Background(), up.Dataset.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), up.Dataset.ID), ErrDatasetNotFound)
}

func TestAnalysisService_Telemetry(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	bm, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	svc := newTestService(t, WithTracer(tp.Tracer("test")), WithMetrics(bm))
	up := uploadCustomers(t, svc)
	_, err = svc.DeriveFeatures(context.Background(), up.Dataset.ID, api.DeriveFeaturesRequest{})
	require.NoError(t, err)
	_, err = svc.Overview(context.Background(), "missing")
	require.Error(t, err)

	names := map[string]bool{}
	for _, s := range spans.Ended() {
		names[s.Name()] = true
	}
	assert.True(t, names["analysis.upload"])
	assert.True(t, names["analysis.derive_features"])
	assert.True(t, names["analysis.overview"])

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["datasets_uploaded_total"])
	assert.Equal(t, int64(testutil.CustomersRows), sums["dataset_rows_ingested_total"])
	assert.Equal(t, int64(1), sums["feature_derivations_total"])
	assert.Equal(t, int64(9), sums["feature_rules_applied_total"])
	assert.Equal(t, int64(1), sums["analysis_operation_errors_total"])
}
