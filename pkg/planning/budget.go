package planning

// Architecture context token budget tiers. Complexity maps onto a tier;
// values outside the defined range clamp to the nearest tier instead of
// extrapolating.
const (
	budgetLow    = 0
	budgetMedium = 1000
	budgetHigh   = 2000
	budgetMax    = 3000
)

// ArchTokenBudget maps a task complexity score to the token budget allowed
// for architecture context injection. Monotonic non-decreasing over all
// integers: simple tasks get no architecture context at all, the hardest
// tasks get the full budget.
func ArchTokenBudget(complexity int) int {
	switch {
	case complexity < 4:
		return budgetLow
	case complexity <= 6:
		return budgetMedium
	case complexity <= 8:
		return budgetHigh
	default:
		return budgetMax
	}
}
