package schedule

// Overlaps reports whether two activities occupy intersecting day+time
// windows:
//
//   - different weekdays never conflict, regardless of all other fields;
//   - two non-recurring activities only conflict on the exact same
//     calendar day;
//   - a recurring activity occurs on every occurrence of its weekday, so
//     the date check is skipped entirely when either side recurs;
//   - time windows are half-open, so back-to-back activities
//     (end == start) do not conflict.
//
// The only error is a malformed clock string on either side.
func Overlaps(a, b Candidate) (bool, error) {
	if a.Day != b.Day {
		return false, nil
	}
	if !a.Recurring && !b.Recurring && !sameDate(a.Date, b.Date) {
		return false, nil
	}

	aStart, aEnd, err := a.interval()
	if err != nil {
		return false, err
	}
	bStart, bEnd, err := b.interval()
	if err != nil {
		return false, err
	}
	return aStart < bEnd && bStart < aEnd, nil
}
