package trips

import (
	"fmt"
	"time"

	"github.com/daytally/backend/internal/dates"
)

// gapFlagThresholdDays is the boundary above which the pause between two
// consecutive trips counts as a gap. Back-to-back trips and a single free
// day in between are not gaps.
const gapFlagThresholdDays = 1

// TripMetric is the derived, read-only view computed for one trip. Metrics
// are recomputed from the full trip set on every read and never stored; they
// go stale the moment the trip set changes.
type TripMetric struct {
	// DaysInclusive counts both boundary days: a one-day trip is 1.
	DaysInclusive int `json:"days_inclusive"`
	// GapToNextTrip is the whole days between this trip's end and the
	// chronologically next trip's start; 0 for the final trip.
	GapToNextTrip int `json:"gap_to_next_trip"`
	// HasGap flags a pause of strictly more than one day before the next trip.
	HasGap bool `json:"has_gap"`
	// TotalForLocationYTD is the running day total for this trip's country
	// within this trip's calendar year, accumulated in chronological order.
	TotalForLocationYTD int `json:"total_for_location_ytd"`
	// SixMonthBackDate is the start of the trailing two-quarter window
	// ending at this trip's start date, exposed for transparency.
	SixMonthBackDate time.Time `json:"six_month_back_date"`
	// TrackedLast2Quarters sums the tracked country's inclusive days over
	// the trailing two-quarter window; nil for trips of other countries.
	TrackedLast2Quarters *int `json:"tracked_last_2_quarters"`
}

// DeriveMetrics computes one TripMetric per trip. The input must be sorted
// ascending by (DateFrom, DateTo); the running and rolling aggregates depend
// on that order. trackedCountry selects the country whose trailing
// two-quarter total is reported.
func DeriveMetrics(trips []Trip, trackedCountry string) []TripMetric {
	metrics := make([]TripMetric, len(trips))
	runningYTD := make(map[string]int)

	for i, trip := range trips {
		daysInclusive := dates.WholeDays(trip.DateFrom, trip.DateTo) + 1

		yearKey := fmt.Sprintf("%s/%d", trip.CountryCode, trip.DateFrom.UTC().Year())
		runningYTD[yearKey] += daysInclusive

		windowStart := trip.DateFrom.AddDate(0, -6, 0)

		metric := TripMetric{
			DaysInclusive:       daysInclusive,
			TotalForLocationYTD: runningYTD[yearKey],
			SixMonthBackDate:    windowStart,
		}

		if i+1 < len(trips) {
			metric.GapToNextTrip = dates.WholeDays(trip.DateTo, trips[i+1].DateFrom)
			metric.HasGap = metric.GapToNextTrip > gapFlagThresholdDays
		}

		if trip.CountryCode == trackedCountry {
			total := trackedWindowTotal(trips[:i+1], trackedCountry, windowStart, trip.DateFrom)
			metric.TrackedLast2Quarters = &total
		}

		metrics[i] = metric
	}

	return metrics
}

// trackedWindowTotal sums inclusive days for the tracked country over trips
// starting within [windowStart, reference]. Only trips at or before the
// reference trip can qualify, so the scan is bounded by the caller's slice.
func trackedWindowTotal(trips []Trip, trackedCountry string, windowStart, reference time.Time) int {
	total := 0
	for _, trip := range trips {
		if trip.CountryCode != trackedCountry {
			continue
		}
		if trip.DateFrom.Before(windowStart) || trip.DateFrom.After(reference) {
			continue
		}
		total += dates.WholeDays(trip.DateFrom, trip.DateTo) + 1
	}
	return total
}
