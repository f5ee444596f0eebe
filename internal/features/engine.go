package features

import (
	"fmt"
	"log/slog"
	"time"

	"bankdash/internal/dataset"
	"bankdash/pkg/contracts/domain"
)

// Engine applies the derivation catalogue to datasets. An Engine is
// immutable after construction and safe for concurrent use.
type Engine struct {
	clock  func() time.Time
	logger *slog.Logger
	rules  []Rule
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the source of the reference date.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithReferenceDate pins the reference date.
func WithReferenceDate(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

// WithLogger attaches a logger for rule level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over the default rule catalogue. Without a
// clock option the reference date is the current date.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:  time.Now,
		logger: slog.Default(),
		rules:  Rules(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "feature_engine")
	return e
}

// Result is the outcome of one derivation run.
type Result struct {
	// Dataset is the augmented copy of the input.
	Dataset dataset.Dataset
	// NewColumns are the output columns absent from the input, in output order.
	NewColumns []string
	// Insights hold one sentence per insight-eligible new column.
	Insights []Insight
	// Applied and Skipped name the rules that ran and the ones whose inputs
	// were absent.
	Applied []string
	Skipped []string
	// Warnings report value level degradation such as unparsed dates.
	Warnings []string
	// ReferenceDate is the date tenure was measured against.
	ReferenceDate time.Time
}

// InsightTexts returns the insight sentences in order.
func (r Result) InsightTexts() []string {
	out := make([]string, len(r.Insights))
	for i, in := range r.Insights {
		out[i] = in.Text
	}
	return out
}

// Derive runs every rule whose required columns are present and returns the
// augmented dataset with its new columns and insights. The input is never
// modified. Derive does not fail: missing inputs skip a rule and bad values
// become missing cells.
func (e *Engine) Derive(ds dataset.Dataset) Result {
	today := dateOnly(e.clock())
	env := Env{Today: today}

	res := Result{ReferenceDate: today}
	work := ds
	for _, rule := range e.rules {
		if !work.HasAll(rule.Requires...) {
			res.Skipped = append(res.Skipped, rule.Name)
			e.logger.Debug("rule skipped",
				slog.String("rule", rule.Name),
				slog.Any("requires", rule.Requires))
			continue
		}
		next := rule.Apply(work, env)
		if err := next.Err(); err != nil {
			res.Skipped = append(res.Skipped, rule.Name)
			e.logger.Warn("rule failed",
				slog.String("rule", rule.Name),
				slog.String("error", err.Error()))
			continue
		}
		work = next
		res.Applied = append(res.Applied, rule.Name)
	}

	res.Dataset = work
	res.NewColumns = newColumns(ds, work)
	res.Insights = generateInsights(work, res.NewColumns)
	if n := unparsedDates(ds, work); n > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d of %d %s values could not be parsed as dates", n, ds.Nrow(), domain.ColJoinedBank))
	}

	e.logger.Debug("derivation complete",
		slog.Int("rows", work.Nrow()),
		slog.Int("applied", len(res.Applied)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Any("new_columns", res.NewColumns))
	return res
}

// Derive runs the default engine with the given reference date.
func Derive(ds dataset.Dataset, today time.Time) Result {
	return NewEngine(WithReferenceDate(today)).Derive(ds)
}

// newColumns returns the columns of out that in does not have.
func newColumns(in, out dataset.Dataset) []string {
	seen := make(map[string]bool, in.Ncol())
	for _, n := range in.Names() {
		seen[n] = true
	}
	cols := []string{}
	for _, n := range out.Names() {
		if !seen[n] {
			cols = append(cols, n)
		}
	}
	return cols
}

// unparsedDates counts join dates present in the input that the tenure rule
// could not parse.
func unparsedDates(in, out dataset.Dataset) int {
	if !in.Has(domain.ColJoinedBank) || !out.Has(domain.ColCustomerTenure) {
		return 0
	}
	raw, err := in.Strings(domain.ColJoinedBank)
	if err != nil {
		return 0
	}
	parsed, err := out.Strings(domain.ColJoinedBank)
	if err != nil {
		return 0
	}
	n := 0
	for i := range raw {
		if !dataset.IsMissingText(raw[i]) && raw[i] != "" && dataset.IsMissingText(parsed[i]) {
			n++
		}
	}
	return n
}
