// Package usage persists per-call provider accounting rows.
package usage

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/inkdrift/inkdrift/internal/models"
	"github.com/inkdrift/inkdrift/internal/provider"
)

// Recorder writes UsageRecord rows. Failures are logged, never propagated:
// accounting must not break a generation cycle.
type Recorder struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ provider.UsageSink = (*Recorder)(nil)

// NewRecorder builds a recorder over the shared database handle.
func NewRecorder(db *gorm.DB, logger *slog.Logger) *Recorder {
	return &Recorder{db: db, logger: logger.With("component", "usage")}
}

// Record appends one accounting row.
func (r *Recorder) Record(ctx context.Context, entry provider.UsageEntry) {
	record := models.UsageRecord{
		Kind:             entry.Kind,
		Provider:         entry.Provider,
		ModelName:        entry.Model,
		PromptTokens:     entry.PromptTokens,
		CompletionTokens: entry.CompletionTokens,
		CostUSD:          entry.CostUSD,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		r.logger.Error("failed to record usage",
			"kind", entry.Kind, "provider", entry.Provider, "error", err.Error())
	}
}

// Totals aggregates spend since a point in time, for the status endpoint.
type Totals struct {
	Calls            int64   `json:"calls"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// TotalsSince sums usage rows created at or after since.
func (r *Recorder) TotalsSince(ctx context.Context, since time.Time) (Totals, error) {
	var totals Totals
	err := r.db.WithContext(ctx).Model(&models.UsageRecord{}).
		Select("COUNT(*) AS calls, COALESCE(SUM(prompt_tokens),0) AS prompt_tokens, COALESCE(SUM(completion_tokens),0) AS completion_tokens, COALESCE(SUM(cost_usd),0) AS cost_usd").
		Where("created_at >= ?", since).
		Scan(&totals).Error
	return totals, err
}
