package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"bankdash/internal/analysis"
	"bankdash/internal/config"
	"bankdash/internal/dataset"
	apierrors "bankdash/internal/errors"
	"bankdash/internal/exporter"
	"bankdash/internal/features"
	"bankdash/internal/infrastructure"
	"bankdash/internal/validation"
	api "bankdash/pkg/contracts/api/v1"
	"bankdash/pkg/contracts/domain"
)

// referenceDateLayout is the accepted reference date format
const referenceDateLayout = "2006-01-02"

// AnalysisService orchestrates uploads, analyses and feature derivation over
// the datasets held in a DatasetStore.
type AnalysisService struct {
	cfg       config.AnalysisConfig
	store     *DatasetStore
	validator *validation.FileValidator
	clock     func() time.Time
	tracer    trace.Tracer
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// ServiceOption configures an AnalysisService.
type ServiceOption func(*AnalysisService)

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *AnalysisService) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMetrics sets the business metrics the service records into.
func WithMetrics(metrics *infrastructure.BusinessMetrics) ServiceOption {
	return func(s *AnalysisService) {
		s.metrics = metrics
	}
}

// WithClock sets the source of upload timestamps and default reference
// dates.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *AnalysisService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewAnalysisService creates an analysis service over store.
func NewAnalysisService(cfg config.AnalysisConfig, store *DatasetStore, logger *slog.Logger, opts ...ServiceOption) *AnalysisService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	s := &AnalysisService{
		cfg:    cfg,
		store:  store,
		clock:  time.Now,
		tracer: noop.NewTracerProvider().Tracer(""),
		logger: infrastructure.WithComponent(logger, "analysis_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = validation.NewFileValidator(cfg.MaxUploadBytes, s.logger)
	return s
}

// Store returns the underlying dataset store.
func (s *AnalysisService) Store() *DatasetStore {
	return s.store
}

// startOperation opens the span of one service operation. The returned
// function ends it and records the operation metrics.
func (s *AnalysisService) startOperation(ctx context.Context, operation, datasetID string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "analysis."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("analysis.operation", operation),
			attribute.String("dataset.id", datasetID),
		),
	)
	start := time.Now()

	return ctx, func(err error) {
		duration := time.Since(start)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			infrastructure.WithError(s.logger, err).WarnContext(ctx, "operation failed",
				slog.String("operation", operation),
				slog.String("dataset_id", datasetID))
		} else {
			s.logger.DebugContext(ctx, "operation completed",
				slog.String("operation", operation),
				slog.String("dataset_id", datasetID),
				slog.Duration("duration", duration))
		}
		infrastructure.RecordOperationMetrics(ctx, s.metrics, operation, duration, err)
		span.End()
	}
}

// Upload parses a CSV or XLSX stream, drops the identifier columns and
// stores the result under a new id. When the store is full the oldest
// dataset is evicted.
func (s *AnalysisService) Upload(ctx context.Context, name string, r io.Reader) (res domain.DatasetOverview, err error) {
	ctx, done := s.startOperation(ctx, "upload", "")
	defer func() { done(err) }()

	format, err := s.validator.ValidateUpload(name, -1)
	if err != nil {
		return domain.DatasetOverview{}, err
	}

	// read one byte past the limit to detect oversize streams
	limit := s.cfg.MaxUploadBytes
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return domain.DatasetOverview{}, fmt.Errorf("read upload: %w", err)
	}
	if _, err := s.validator.ValidateUpload(name, int64(len(raw))); err != nil {
		return domain.DatasetOverview{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.DatasetOverview{}, err
	}

	ds, err := dataset.Load(name, bytes.NewReader(raw))
	if err != nil {
		return domain.DatasetOverview{}, fmt.Errorf("%w: %w", ErrUnreadableDataset, err)
	}
	ds = dataset.Preprocess(ds)

	entry := StoredDataset{
		ID:         uuid.New().String(),
		Name:       name,
		Format:     format,
		SizeBytes:  int64(len(raw)),
		UploadedAt: s.clock(),
		Data:       ds,
	}
	evicted, err := s.store.Put(ctx, entry)
	if err != nil {
		return domain.DatasetOverview{}, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("dataset.id", entry.ID),
		attribute.String("dataset.format", string(format)),
		attribute.Int("dataset.rows", ds.Nrow()),
		attribute.Int("dataset.columns", ds.Ncol()),
		attribute.Int("store.evicted", len(evicted)),
	)
	infrastructure.RecordUploadMetrics(ctx, s.metrics, string(format), ds.Nrow(), entry.SizeBytes)

	s.logger.InfoContext(ctx, "dataset uploaded",
		slog.String("dataset_id", entry.ID),
		slog.String("name", name),
		slog.Int("rows", ds.Nrow()),
		slog.Int("columns", ds.Ncol()))

	entry.Revision = 1
	return s.overview(entry), nil
}

// List returns metadata for every stored dataset.
func (s *AnalysisService) List(ctx context.Context) domain.DatasetList {
	_, done := s.startOperation(ctx, "list", "")
	defer done(nil)

	stored := s.store.List()
	out := domain.DatasetList{
		Datasets: make([]domain.DatasetInfo, len(stored)),
		Count:    len(stored),
		Capacity: s.store.Capacity(),
	}
	for i, d := range stored {
		out.Datasets[i] = datasetInfo(d)
	}
	return out
}

// Overview summarises a stored dataset.
func (s *AnalysisService) Overview(ctx context.Context, id string) (res domain.DatasetOverview, err error) {
	_, done := s.startOperation(ctx, "overview", id)
	defer func() { done(err) }()

	d, err := s.store.Get(id)
	if err != nil {
		return domain.DatasetOverview{}, err
	}
	return s.overview(d), nil
}

func (s *AnalysisService) overview(d StoredDataset) domain.DatasetOverview {
	summary := analysis.Summarize(d.Data)
	return domain.DatasetOverview{
		Dataset:        datasetInfo(d),
		NumericColumns: summary.NumericColumns,
		TextColumns:    summary.TextColumns,
		Columns:        columnSummaries(summary),
		Preview:        preview(d.Data, s.cfg.PreviewRows),
	}
}

// CapOutliers clips the selected numeric columns to their IQR fences and
// replaces the stored dataset with the capped one. No columns selects the
// configured number of leading numeric columns.
func (s *AnalysisService) CapOutliers(ctx context.Context, id string, columns []string) (res domain.OutlierResponse, err error) {
	ctx, done := s.startOperation(ctx, "cap_outliers", id)
	defer func() { done(err) }()

	d, err := s.store.Get(id)
	if err != nil {
		return domain.OutlierResponse{}, err
	}
	if len(columns) == 0 {
		columns = analysis.DefaultOutlierColumns(d.Data, s.cfg.OutlierColumnCount)
	}

	result := analysis.CapOutliers(d.Data, columns)
	updated, err := s.store.Replace(id, d.Revision, result.Dataset)
	if err != nil {
		return domain.OutlierResponse{}, err
	}

	reports, total := outlierReports(result.Reports)
	capped := make(map[string]int, len(result.Reports))
	for _, r := range result.Reports {
		capped[r.Column] = r.Capped
	}
	infrastructure.RecordOutlierMetrics(ctx, s.metrics, capped)

	s.logger.InfoContext(ctx, "outliers capped",
		slog.String("dataset_id", id),
		slog.Int("columns", len(result.Reports)),
		slog.Int("cells", total),
		slog.Any("skipped", result.Skipped))

	return domain.OutlierResponse{
		Dataset:     datasetInfo(updated),
		Reports:     reports,
		Skipped:     result.Skipped,
		TotalCapped: total,
	}, nil
}

// DeriveFeatures runs the feature derivation engine over a stored dataset
// and replaces it with the augmented table. Without a reference date the
// service clock supplies today.
func (s *AnalysisService) DeriveFeatures(ctx context.Context, id string, req api.DeriveFeaturesRequest) (res domain.FeaturesResponse, err error) {
	ctx, done := s.startOperation(ctx, "derive_features", id)
	defer func() { done(err) }()

	clock := s.clock
	if req.ReferenceDate != "" {
		ref, perr := time.Parse(referenceDateLayout, req.ReferenceDate)
		if perr != nil {
			return domain.FeaturesResponse{}, fmt.Errorf("%w: %q", ErrInvalidReferenceDate, req.ReferenceDate)
		}
		clock = func() time.Time { return ref }
	}
	previewRows := s.cfg.PreviewRows
	if req.PreviewRows != nil {
		previewRows = *req.PreviewRows
	}

	d, err := s.store.Get(id)
	if err != nil {
		return domain.FeaturesResponse{}, err
	}

	engine := features.NewEngine(features.WithClock(clock), features.WithLogger(s.logger))
	result := engine.Derive(d.Data)
	if err := ctx.Err(); err != nil {
		return domain.FeaturesResponse{}, err
	}

	updated, err := s.store.Replace(id, d.Revision, result.Dataset)
	if err != nil {
		return domain.FeaturesResponse{}, err
	}
	infrastructure.RecordDerivationMetrics(ctx, s.metrics, result.Applied, result.Skipped)

	s.logger.InfoContext(ctx, "features derived",
		slog.String("dataset_id", id),
		slog.Any("new_columns", result.NewColumns),
		slog.Int("insights", len(result.Insights)),
		slog.Int("warnings", len(result.Warnings)))

	return domain.FeaturesResponse{
		Dataset:       datasetInfo(updated),
		NewColumns:    emptyIfNil(result.NewColumns),
		Insights:      result.Insights,
		AppliedRules:  emptyIfNil(result.Applied),
		SkippedRules:  emptyIfNil(result.Skipped),
		Warnings:      result.Warnings,
		ReferenceDate: result.ReferenceDate.Format(referenceDateLayout),
		Preview:       preview(result.Dataset, previewRows),
	}, nil
}

// Geography aggregates deposits by nationality and loyalty tier, and
// income by loyalty tier. It fails only when neither analysis has its
// columns.
func (s *AnalysisService) Geography(ctx context.Context, id string) (res domain.GeographyResponse, err error) {
	_, done := s.startOperation(ctx, "geography", id)
	defer func() { done(err) }()

	d, err := s.store.Get(id)
	if err != nil {
		return domain.GeographyResponse{}, err
	}

	deposits, depositsOK := analysis.DepositsByGeography(d.Data)
	income, incomeOK := analysis.IncomeByLoyalty(d.Data)
	if !depositsOK && !incomeOK {
		return domain.GeographyResponse{}, &MissingColumnsError{
			Analysis: "geography",
			Columns:  missing(d.Data, domain.ColNationality, domain.ColBankDeposits, domain.ColLoyaltyClassification),
		}
	}

	res = domain.GeographyResponse{DatasetID: id, Groups: []domain.GroupMean{}, Insights: []string{}}
	if depositsOK && len(deposits.Groups) > 0 {
		highest, lowest := groupMean(deposits.Highest), groupMean(deposits.Lowest)
		res.Groups = geographyGroups(deposits)
		res.Highest = &highest
		res.Lowest = &lowest
		res.OverallMean = domain.Float(deposits.OverallMean)
		res.WidestGap = loyaltyGap(deposits.WidestGap)
		res.NarrowestGap = loyaltyGap(deposits.NarrowestGap)
		res.Insights = append(res.Insights, deposits.Insights...)
	}
	if incomeOK && len(income.Tiers) > 0 {
		res.IncomeTiers = tierIncomes(income)
		res.Insights = append(res.Insights, income.Insight)
	}
	return res, nil
}

// Distributions profiles age, nationality, loyalty tier, the financial
// columns and fee structure of a stored dataset.
func (s *AnalysisService) Distributions(ctx context.Context, id string) (res domain.DistributionResponse, err error) {
	_, done := s.startOperation(ctx, "distributions", id)
	defer func() { done(err) }()

	d, err := s.store.Get(id)
	if err != nil {
		return domain.DistributionResponse{}, err
	}

	rep, ok := analysis.Distributions(d.Data)
	if !ok {
		return domain.DistributionResponse{}, &MissingColumnsError{
			Analysis: "distributions",
			Columns:  missing(d.Data, analysis.DistributionColumns...),
		}
	}

	res = domain.DistributionResponse{
		DatasetID:    id,
		Financials:   make([]domain.NumericDistribution, len(rep.Financials)),
		Nationality:  categoryDistribution(rep.Nationality),
		Loyalty:      categoryDistribution(rep.Loyalty),
		FeeStructure: categoryDistribution(rep.FeeStructure),
		Insights:     emptyIfNil(rep.Insights),
	}
	if rep.Age != nil {
		age := numericDistribution(*rep.Age)
		res.Age = &age
	}
	for i, p := range rep.Financials {
		res.Financials[i] = numericDistribution(p)
	}
	return res, nil
}

// Correlations computes the Pearson matrix of the numeric columns and
// describes the top strongest pairs. top <= 0 uses the configured count.
func (s *AnalysisService) Correlations(ctx context.Context, id string, top int) (res domain.CorrelationResponse, err error) {
	_, done := s.startOperation(ctx, "correlations", id)
	defer func() { done(err) }()

	d, err := s.store.Get(id)
	if err != nil {
		return domain.CorrelationResponse{}, err
	}
	if top <= 0 {
		top = s.cfg.CorrelationInsights
	}

	m := analysis.Correlations(d.Data)
	matrix := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		matrix[i] = domain.Floats(row)
	}
	return domain.CorrelationResponse{
		DatasetID: id,
		Columns:   emptyIfNil(m.Columns),
		Matrix:    matrix,
		TopPairs:  correlationPairs(m.TopPairs(top)),
		Insights:  emptyIfNil(m.Insights(top)),
	}, nil
}

// Export writes a stored dataset to w and returns the suggested file name.
func (s *AnalysisService) Export(ctx context.Context, id string, format dataset.Format, w io.Writer) (filename string, err error) {
	ctx, done := s.startOperation(ctx, "export", id)
	defer func() { done(err) }()

	d, err := s.store.Get(id)
	if err != nil {
		return "", err
	}
	writer, err := exporter.ForFormat(format)
	if err != nil {
		return "", err
	}
	if err := writer.Write(w, d.Data); err != nil {
		return "", apierrors.NewStorageError(fmt.Sprintf("export %s failed", format), err)
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("export.format", string(format)))
	return ExportFileName(d.Name, format, s.clock()), nil
}

// Delete removes a stored dataset.
func (s *AnalysisService) Delete(ctx context.Context, id string) (err error) {
	ctx, done := s.startOperation(ctx, "delete", id)
	defer func() { done(err) }()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "dataset deleted", slog.String("dataset_id", id))
	return nil
}

// ExportFileName builds "<stem>_<timestamp>.<ext>" from an upload name.
func ExportFileName(name string, format dataset.Format, at time.Time) string {
	return config.ExportFileName(name, string(format), at)
}

func missing(ds dataset.Dataset, names ...string) []string {
	var out []string
	for _, n := range names {
		if !ds.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
