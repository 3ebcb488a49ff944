// Package maintenance implements the scheduling engine for the collection:
// due-date calculation, the due-soon aggregation with its memoized cache,
// and the reminder ladder that keeps the dispatcher's pending jobs in sync
// with each item's configuration.
package maintenance

import (
	"time"

	"github.com/retroshelf/retroshelf/internal/dateutil"
)

// NextDue computes the next maintenance date from the last maintenance date
// and the interval in months, using calendar-month arithmetic: "same day,
// N months later", clamped to the last valid day of the target month
// (31/01 + 1 month is 28/02 or 29/02, never 02/03 or 03/03).
//
// Returns "" without error when either input is missing; a malformed present
// date propagates the normalizer's format error.
func NextDue(lastMaintenance string, intervalMonths int) (string, error) {
	if lastMaintenance == "" || intervalMonths <= 0 {
		return "", nil
	}
	last, err := dateutil.Parse(lastMaintenance)
	if err != nil {
		return "", err
	}
	return dateutil.Format(addMonthsClamped(last, intervalMonths)), nil
}

// addMonthsClamped advances t by the given number of calendar months,
// clamping the day when the target month is shorter. time.AddDate would
// normalize the overflow into the following month instead.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 12, 0, 0, 0, t.Location())
	if lastDay := firstOfTarget.AddDate(0, 1, -1).Day(); day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 12, 0, 0, 0, t.Location())
}
