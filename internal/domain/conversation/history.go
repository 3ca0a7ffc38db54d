package conversation

const (
	DefaultHistoryCap  = 20
	DefaultRecentTurns = 5
)

// AppendTurn returns a new history with t appended, keeping at most cap of
// the most recent turns. The input slice is not modified.
func AppendTurn(history []Turn, t Turn, cap int) []Turn {
	if cap <= 0 {
		cap = DefaultHistoryCap
	}
	start := 0
	if n := len(history) + 1; n > cap {
		start = n - cap
	}
	out := make([]Turn, 0, len(history)-start+1)
	if start < len(history) {
		out = append(out, history[start:]...)
	}
	return append(out, t)
}

// RecentSlice returns the last n turns, oldest first.
func RecentSlice(history []Turn, n int) []Turn {
	if n <= 0 {
		n = DefaultRecentTurns
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
