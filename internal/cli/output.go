package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ItsMattG/property-tracker-sub002/internal/application/reconcile"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/calendar"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/pattern"
	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
	"github.com/ItsMattG/property-tracker-sub002/internal/infrastructure/storage"
)

const rule = "------------------------------------------------------------"

// PrintTemplates prints one row per template
func PrintTemplates(w io.Writer, templates []recurrence.Template) {
	if len(templates) == 0 {
		fmt.Fprintln(w, "No templates.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROPERTY\tDESCRIPTION\tAMOUNT\tTYPE\tFREQUENCY\tSTART\tEND\tACTIVE")
	for _, t := range templates {
		end := "-"
		if t.EndDate != nil {
			end = t.EndDate.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			t.ID, t.PropertyID, t.Description, t.Amount.StringFixed(2),
			t.TransactionType, t.Frequency, t.StartDate, end, t.Active)
	}
	_ = tw.Flush()
}

// PrintOccurrences prints one row per occurrence
func PrintOccurrences(w io.Writer, occs []recurrence.Occurrence) {
	if len(occs) == 0 {
		fmt.Fprintln(w, "No occurrences.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTEMPLATE\tPROPERTY\tEXPECTED\tAMOUNT\tSTATUS\tTRANSACTION")
	for _, o := range occs {
		txn := o.MatchedTransactionID
		if txn == "" {
			txn = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.TemplateID, o.PropertyID, o.ExpectedDate,
			o.ExpectedAmount.StringFixed(2), o.Status, txn)
	}
	_ = tw.Flush()
}

// PrintSweepSummary prints per-owner counters and any matches left for review
func PrintSweepSummary(w io.Writer, results []*reconcile.SweepResult) {
	fmt.Fprintln(w, rule)
	var total storage.SweepStats
	for _, r := range results {
		if r == nil {
			continue
		}
		stats := r.Stats()
		fmt.Fprintf(w, "%s (as of %s): Generated=%d Matched=%d NeedsReview=%d Missed=%d\n",
			r.OwnerID, r.AsOf, stats.Generated, stats.Matched, stats.NeedsReview, stats.Missed)

		for _, res := range r.Reconcile.NeedsReview {
			best, ok := res.Best()
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  review %s: %s %s on %s (%s confidence, %d candidate(s))\n",
				res.OccurrenceID, best.Transaction.ID, best.Transaction.Amount.StringFixed(2),
				best.Transaction.Date, best.Confidence, len(res.Candidates))
		}
		for _, warning := range r.Reconcile.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}

		total.Generated += stats.Generated
		total.Matched += stats.Matched
		total.NeedsReview += stats.NeedsReview
		total.Missed += stats.Missed
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Summary: Owners=%d Generated=%d Matched=%d NeedsReview=%d Missed=%d\n",
		len(results), total.Generated, total.Matched, total.NeedsReview, total.Missed)
}

// PrintSweepRuns prints the sweep history, newest first
func PrintSweepRuns(w io.Writer, runs []storage.SweepRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No sweep runs.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tAS OF\tSTATUS\tGENERATED\tMATCHED\tREVIEW\tMISSED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.OwnerID, r.AsOf, r.Status, r.Stats.Generated, r.Stats.Matched,
			r.Stats.NeedsReview, r.Stats.Missed, r.ErrorMessage)
	}
	_ = tw.Flush()
}

// PrintSuggestions prints detected patterns, highest confidence first
func PrintSuggestions(w io.Writer, suggestions []pattern.Suggestion) {
	if len(suggestions) == 0 {
		fmt.Fprintln(w, "No recurring patterns found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONFIDENCE\tFREQUENCY\tPROPERTY\tCATEGORY\tDESCRIPTION\tAVG AMOUNT\tSEEN\tNEXT\tTRACKED")
	for _, s := range suggestions {
		next := "-"
		if !calendar.IsZero(s.NextExpected) {
			next = s.NextExpected.String()
		}
		fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%t\n",
			s.Confidence, s.Frequency, s.PropertyID, s.Category, truncate(s.Description, 40),
			s.AverageAmount.StringFixed(2), s.OccurrenceCount, next, s.AlreadyTracked)
	}
	_ = tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-3]) + "..."
}
