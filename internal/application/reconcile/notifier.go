package reconcile

import (
	"context"
	"log/slog"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/matcher"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// Notifier receives events an owner should hear about
type Notifier interface {
	// OccurrenceMissed fires after an occurrence moved to missed
	OccurrenceMissed(ctx context.Context, ownerID string, occ recurrence.Occurrence)

	// MatchNeedsReview fires when candidates exist but none was auto-confirmed
	MatchNeedsReview(ctx context.Context, ownerID string, occ recurrence.Occurrence, result *matcher.Result)
}

// LogNotifier writes notifications to a structured logger
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by logger
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// OccurrenceMissed logs the missed occurrence at warn level
func (n *LogNotifier) OccurrenceMissed(ctx context.Context, ownerID string, occ recurrence.Occurrence) {
	n.logger.WarnContext(ctx, "Expected transaction missed",
		"owner_id", ownerID,
		"occurrence_id", occ.ID,
		"template_id", occ.TemplateID,
		"property_id", occ.PropertyID,
		"expected_date", occ.ExpectedDate.String(),
		"expected_amount", occ.ExpectedAmount.String(),
	)
}

// MatchNeedsReview logs the best candidate awaiting confirmation
func (n *LogNotifier) MatchNeedsReview(ctx context.Context, ownerID string, occ recurrence.Occurrence, result *matcher.Result) {
	best, ok := result.Best()
	if !ok {
		return
	}
	n.logger.InfoContext(ctx, "Match needs review",
		"owner_id", ownerID,
		"occurrence_id", occ.ID,
		"candidates", len(result.Candidates),
		"best_transaction_id", best.Transaction.ID,
		"best_confidence", best.Confidence.String(),
		"amount_deviation_pct", best.AmountDeviationPercent.StringFixed(2),
		"date_deviation_days", best.DateDeviationDays,
	)
}
