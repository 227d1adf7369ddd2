package domain

import "slices"

// canTransition looks up to in the allowed targets of from.
func canTransition[S comparable](table map[S][]S, from, to S) bool {
	allowed, ok := table[from]
	if !ok {
		return false
	}
	return slices.Contains(allowed, to)
}

// isTerminal reports whether from has no allowed targets.
func isTerminal[S comparable](table map[S][]S, from S) bool {
	allowed, ok := table[from]
	return ok && len(allowed) == 0
}
