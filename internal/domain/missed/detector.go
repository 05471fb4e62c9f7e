// Package missed finds pending occurrences whose alert window has elapsed.
package missed

import (
	"cloud.google.com/go/civil"

	"github.com/ItsMattG/property-tracker-sub002/internal/domain/recurrence"
)

// AlertDelays maps template id to its alert delay in days. Templates not in
// the map use recurrence.DefaultAlertDelayDays.
type AlertDelays map[string]int

// DelaysFor builds AlertDelays from templates.
func DelaysFor(templates []recurrence.Template) AlertDelays {
	delays := make(AlertDelays, len(templates))
	for _, t := range templates {
		delays[t.ID] = t.AlertDelayDays
	}
	return delays
}

func (d AlertDelays) of(templateID string) int {
	if days, ok := d[templateID]; ok {
		return days
	}
	return recurrence.DefaultAlertDelayDays
}

// Due reports whether occ should become missed on today: strictly after
// expectedDate + alertDelayDays. On the boundary day it is still pending.
func Due(occ recurrence.Occurrence, alertDelayDays int, today civil.Date) bool {
	if occ.Status != recurrence.StatusPending {
		return false
	}
	return today.After(occ.ExpectedDate.AddDays(alertDelayDays))
}

// Detect returns the ids of the pending occurrences that qualify as missed,
// in input order. It changes nothing; the caller applies the transition.
func Detect(pending []recurrence.Occurrence, delays AlertDelays, today civil.Date) []string {
	var ids []string
	for _, occ := range pending {
		if Due(occ, delays.of(occ.TemplateID), today) {
			ids = append(ids, occ.ID)
		}
	}
	return ids
}
