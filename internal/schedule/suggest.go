package schedule

// suggestHops bounds the adjacent-slot walk. Two probes keep the
// heuristic cheap on dense days; it is best-effort, not a free-slot
// search.
const suggestHops = 2

// SuggestSlot proposes an alternative start time for a blocked candidate
// by jumping to the end of the blocking activity and probing again, at
// most twice. It returns "" when the candidate has no conflict to begin
// with, or when both probes are still blocked. A suggestion past midnight
// wraps per FormatClock.
func SuggestSlot(cand Candidate, existing []Candidate, excludeID string) (string, error) {
	blocking, err := FindConflict(cand, existing, excludeID)
	if err != nil || blocking == nil {
		return "", err
	}

	probe := cand
	for hop := 0; hop < suggestHops; hop++ {
		blockStart, err := ParseClock(blocking.Start)
		if err != nil {
			return "", err
		}
		probe.Start = FormatClock(blockStart + blocking.DurationMin)

		next, err := FindConflict(probe, existing, excludeID)
		if err != nil {
			return "", err
		}
		if next == nil {
			return probe.Start, nil
		}
		blocking = next
	}
	return "", nil
}
