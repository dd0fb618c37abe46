package trips

import "time"

// Overlaps reports whether two inclusive date ranges share more than a
// single boundary instant. Back-to-back ranges, where one ends on the day
// the other starts, do not overlap.
func Overlaps(aFrom, aTo, bFrom, bTo time.Time) bool {
	return aFrom.Before(bTo) && aTo.After(bFrom)
}

// findConflict checks a candidate range against every other trip and returns
// the first conflicting record, or nil when the candidate is clean.
// excludeID skips the candidate's own prior record during an edit.
func findConflict(from, to time.Time, others []Trip, excludeID string) *Trip {
	for i := range others {
		other := &others[i]
		if excludeID != "" && other.ID == excludeID {
			continue
		}
		if Overlaps(from, to, other.DateFrom, other.DateTo) {
			return other
		}
	}
	return nil
}
