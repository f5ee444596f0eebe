package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"bankdash/internal/config"
	"bankdash/internal/dataset"
	apierrors "bankdash/internal/errors"
	"bankdash/internal/exporter"
	"bankdash/internal/features"
	"bankdash/internal/infrastructure"
	"bankdash/internal/validation"
)

const isoDate = "2006-01-02"

type featurizeOptions struct {
	input         string
	output        string
	format        string
	referenceDate string
	keepIDs       bool
	jsonReport    bool
	logLevel      string
}

// featurizeReport is the machine-readable summary printed with --json
type featurizeReport struct {
	Input         string             `json:"input"`
	Output        string             `json:"output"`
	Rows          int                `json:"rows"`
	ReferenceDate string             `json:"reference_date"`
	NewColumns    []string           `json:"new_columns"`
	Applied       []string           `json:"applied_rules"`
	Skipped       []string           `json:"skipped_rules"`
	Warnings      []string           `json:"warnings,omitempty"`
	Insights      []features.Insight `json:"insights"`
}

// NewFeaturizeCommand creates the batch derivation command: one file in, the
// augmented file out, insights on stdout.
func NewFeaturizeCommand(load configLoader) *cobra.Command {
	opts := &featurizeOptions{}

	cmd := &cobra.Command{
		Use:   "featurize",
		Short: "Derive engineered features for a dataset file",
		Long: `Read a CSV or XLSX customer dataset, derive the engineered feature
columns and write the augmented table. Insights are printed as a table, or as
JSON with --json.

Without --output the file is written to the exports directory with a
timestamped name.`,
		Example: `  bankdash featurize -i customers.csv
  bankdash featurize -i customers.xlsx -o out/customers.csv --reference-date 2024-06-30`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return apierrors.NewConfigError("failed to load configuration", err)
			}
			return runFeaturize(cmd.Context(), cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "input dataset (.csv or .xlsx)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file; the extension selects the format")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format when --output is not given (csv|xlsx, default: input format)")
	cmd.Flags().StringVar(&opts.referenceDate, "reference-date", "", "date tenure is measured against, YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&opts.keepIDs, "keep-ids", false, "keep identifier columns instead of dropping them")
	cmd.Flags().BoolVar(&opts.jsonReport, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level for stderr (default: logging.level)")
	_ = cmd.MarkFlagRequired("input")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(dataset.FormatCSV), string(dataset.FormatXLSX)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runFeaturize(ctx context.Context, cfg *config.Config, opts *featurizeOptions, stdout, stderr io.Writer) error {
	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := infrastructure.WithComponent(infrastructure.NewLogger(stderr, level), "featurize")
	ctx = infrastructure.EnsureTraceID(ctx)

	var engineOpts []features.Option
	if opts.referenceDate != "" {
		ref, err := time.Parse(isoDate, opts.referenceDate)
		if err != nil {
			return apierrors.NewAppValidationError(fmt.Sprintf("invalid --reference-date %q: expected YYYY-MM-DD", opts.referenceDate))
		}
		engineOpts = append(engineOpts, features.WithReferenceDate(ref))
	}
	engineOpts = append(engineOpts, features.WithLogger(logger))

	validator := validation.NewFileValidator(cfg.Analysis.MaxUploadBytes, logger)
	inFormat, err := validator.ValidateInputFile(opts.input)
	if err != nil {
		return err
	}

	outPath, outFormat, err := resolveOutput(cfg, validator, opts, inFormat)
	if err != nil {
		return err
	}

	start := time.Now()
	ds, err := dataset.LoadFile(opts.input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.input, err)
	}
	if !opts.keepIDs {
		ds = dataset.Preprocess(ds)
	}

	res := features.NewEngine(engineOpts...).Derive(ds)
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := writeDataset(outPath, outFormat, res.Dataset); err != nil {
		return err
	}

	logger.InfoContext(ctx, "features derived",
		slog.String("input", opts.input),
		slog.String("output", outPath),
		slog.Int("rows", res.Dataset.Nrow()),
		slog.Int("new_columns", len(res.NewColumns)),
		slog.Duration("duration", time.Since(start)))

	report := featurizeReport{
		Input:         opts.input,
		Output:        outPath,
		Rows:          res.Dataset.Nrow(),
		ReferenceDate: res.ReferenceDate.Format(isoDate),
		NewColumns:    res.NewColumns,
		Applied:       res.Applied,
		Skipped:       res.Skipped,
		Warnings:      res.Warnings,
		Insights:      res.Insights,
	}
	if opts.jsonReport {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	renderReport(stdout, report)
	return nil
}

// resolveOutput picks the output path and format from the flags
func resolveOutput(cfg *config.Config, validator *validation.FileValidator, opts *featurizeOptions, inFormat dataset.Format) (string, dataset.Format, error) {
	if opts.output != "" {
		format, err := validator.ValidateOutputFile(opts.output)
		if err != nil {
			return "", "", err
		}
		if opts.format != "" {
			if want, err := dataset.ParseFormat(opts.format); err != nil || want != format {
				return "", "", apierrors.NewAppValidationError(
					fmt.Sprintf("--format %s conflicts with output extension %s", opts.format, filepath.Ext(opts.output)))
			}
		}
		return opts.output, format, nil
	}

	format := inFormat
	if opts.format != "" {
		f, err := dataset.ParseFormat(opts.format)
		if err != nil {
			return "", "", err
		}
		format = f
	}

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return "", "", err
	}
	if err := validator.ValidateOutputDirectory(paths.ExportsDir); err != nil {
		return "", "", err
	}
	return paths.GetExportPath(opts.input, string(format), time.Now()), format, nil
}

func writeDataset(path string, format dataset.Format, ds dataset.Dataset) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return apierrors.NewStorageError("failed to create "+path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := exporter.Export(f, ds, format); err != nil {
		return apierrors.NewStorageError("failed to write "+path, err)
	}
	return nil
}
