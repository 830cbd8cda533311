package scoring

// Tier buckets an overall score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

const (
	highTierMin   = 70
	mediumTierMin = 40
)

// TierFor maps an overall score to its tier: 70 and above is high, 40 to 69
// medium, below 40 low.
func TierFor(score int) Tier {
	switch {
	case score >= highTierMin:
		return TierHigh
	case score >= mediumTierMin:
		return TierMedium
	default:
		return TierLow
	}
}

// ParseTier validates a tier name from a query string.
func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case TierHigh, TierMedium, TierLow:
		return Tier(s), true
	}
	return "", false
}
