package limits

import "strconv"

// Guest usage limiting is cookie-based and deliberately forgiving: a
// garbled counter resets to zero rather than locking the visitor out.

// Read parses the guest usage counter from its cookie value. Empty or
// malformed values count as zero; negatives clamp to zero.
func Read(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// CheckAndReserve applies one prompt against the limit. It returns the
// new counter value, how many prompts remain after this one, and whether
// the prompt is allowed at all.
func CheckAndReserve(used, limit int) (newUsed, remaining int, allowed bool) {
	if used >= limit {
		return used, 0, false
	}
	newUsed = used + 1
	return newUsed, limit - newUsed, true
}

// Remaining reports the prompts left without reserving one.
func Remaining(used, limit int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
