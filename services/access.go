package services

// AccessPolicy decides whether the lesson at position (zero-based, within its
// module) is accessible given whether the prior lesson is completed. Swapping
// the policy changes gating everywhere without touching call sites.
type AccessPolicy func(position int, priorCompleted bool) bool

// AllowAll is the default policy: every lesson is always accessible.
func AllowAll(position int, priorCompleted bool) bool {
	return true
}

// SequentialUnlock restores gated progression: the first lesson of a module is
// open, each later lesson unlocks when its predecessor is completed.
func SequentialUnlock(position int, priorCompleted bool) bool {
	return position == 0 || priorCompleted
}
