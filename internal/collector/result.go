package collector

import (
	"fmt"
	"time"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
)

// BatchResult holds every record of a batch in enumeration order
type BatchResult struct {
	RunID       string                     `json:"run_id"`
	InputDir    string                     `json:"input_dir"`
	StartedAt   time.Time                  `json:"started_at"`
	CompletedAt time.Time                  `json:"completed_at"`
	Records     []models.TransactionRecord `json:"records"`
	Skipped     []string                   `json:"skipped,omitempty"`
	Failures    []*errors.AppError         `json:"-"`
	Stats       BatchStats                 `json:"stats"`
}

// BatchStats summarizes a batch
type BatchStats struct {
	Processed    int           `json:"processed" yaml:"processed"`
	Skipped      int           `json:"skipped" yaml:"skipped"`
	Final        int           `json:"final" yaml:"final"`
	Failed       int           `json:"failed" yaml:"failed"`
	Unknown      int           `json:"unknown_direction" yaml:"unknown_direction"`
	WithWarnings int           `json:"with_warnings" yaml:"with_warnings"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

// String returns a one-line summary
func (s BatchStats) String() string {
	return fmt.Sprintf("processed=%d final=%d failed=%d unknown=%d warnings=%d skipped=%d duration=%s",
		s.Processed, s.Final, s.Failed, s.Unknown, s.WithWarnings, s.Skipped, s.Duration)
}

// Debug returns every record, failed ones included
func (r *BatchResult) Debug() []models.TransactionRecord {
	return r.Records
}

// Final returns the records that carry at least one key field, in order
func (r *BatchResult) Final() []models.TransactionRecord {
	final := make([]models.TransactionRecord, 0, len(r.Records))
	for i := range r.Records {
		if r.Records[i].HasKeyFields() {
			final = append(final, r.Records[i])
		}
	}
	return final
}

// ErrorSummary groups the per-file failures
func (r *BatchResult) ErrorSummary() *errors.ErrorSummary {
	return errors.NewErrorSummary(r.Failures)
}

func (r *BatchResult) computeStats() BatchStats {
	stats := BatchStats{
		Processed: len(r.Records),
		Skipped:   len(r.Skipped),
		Duration:  r.CompletedAt.Sub(r.StartedAt),
	}
	for i := range r.Records {
		rec := &r.Records[i]
		switch {
		case rec.Failed():
			stats.Failed++
		case !rec.Direction.IsKnown():
			stats.Unknown++
		}
		if rec.HasKeyFields() {
			stats.Final++
		}
		if len(rec.Warnings) > 0 {
			stats.WithWarnings++
		}
	}
	return stats
}
