package schedule

// FindConflict returns the first activity in existing, in input order,
// that overlaps the candidate, or nil when the candidate is clear. The
// entry whose ID equals excludeID is skipped, which lets an update be
// validated against everything but itself. Callers typically pre-filter
// existing to the candidate's weekday; the scan is correct either way.
func FindConflict(cand Candidate, existing []Candidate, excludeID string) (*Candidate, error) {
	for _, other := range existing {
		if excludeID != "" && other.ID == excludeID {
			continue
		}
		hit, err := Overlaps(cand, other)
		if err != nil {
			return nil, err
		}
		if hit {
			found := other
			return &found, nil
		}
	}
	return nil, nil
}

func filterByDay(existing []Candidate, day Weekday) []Candidate {
	out := make([]Candidate, 0, len(existing))
	for _, c := range existing {
		if c.Day == day {
			out = append(out, c)
		}
	}
	return out
}
