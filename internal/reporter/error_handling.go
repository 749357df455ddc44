package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/collector"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/reconciler"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with categorized errors and
// all-or-nothing file output
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Use one of: console, json, yaml, csv")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// WriteReport renders a reconciliation report to path, or to fallback when
// path is empty. The file only appears once the whole report rendered.
func (srg *SafeReportGenerator) WriteReport(result *reconciler.ReconciliationResult, path string, fallback io.Writer) error {
	return srg.write(path, fallback, func(w io.Writer) error {
		return srg.GenerateReport(result, w)
	})
}

// WriteBatchSummary renders a batch summary to path, or to fallback when path
// is empty
func (srg *SafeReportGenerator) WriteBatchSummary(batch *collector.BatchResult, path string, fallback io.Writer) error {
	return srg.write(path, fallback, func(w io.Writer) error {
		return srg.GenerateBatchSummary(batch, w)
	})
}

func (srg *SafeReportGenerator) write(path string, fallback io.Writer, render func(io.Writer) error) error {
	log := srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": describeOutput(path, fallback),
	})
	log.Debug("Starting report generation")

	if path == "" {
		if fallback == nil {
			return errors.ValidationError(errors.CodeMissingField, "writer", nil, nil).
				WithSuggestion("Provide a report file or an output writer")
		}
		if err := render(fallback); err != nil {
			return srg.wrapGenerationError(err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		log.WithError(err).Error("Report generation failed")
		return srg.wrapGenerationError(err)
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		log.WithError(err).Error("Report could not be written")
		return err
	}

	log.WithField("bytes", buf.Len()).Info("Report written")
	return nil
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.InternalError(errors.CodeUnexpectedError, "report_generation", err).
		WithContext("format", string(srg.config.Format))
}

func describeOutput(path string, fallback io.Writer) string {
	if path != "" {
		return path
	}
	switch fallback {
	case os.Stdout:
		return "stdout"
	case os.Stderr:
		return "stderr"
	case nil:
		return "none"
	}
	return fmt.Sprintf("%T", fallback)
}
