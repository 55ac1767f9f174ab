package domain

import "time"

// Trend is the direction of a market signal.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// ParseTrend maps a provider trend string onto a Trend.
func ParseTrend(s string) (Trend, bool) {
	switch Trend(s) {
	case TrendUp, TrendDown, TrendNeutral:
		return Trend(s), true
	}
	return "", false
}

// Signal is a normalized market indicator.
type Signal struct {
	Value  string `json:"value"`
	Trend  Trend  `json:"trend"`
	Change string `json:"change"`
}

// SourceFallback names the hardcoded value used when no source served a signal.
const SourceFallback = "Fallback"

// Sources records which source served each signal.
type Sources struct {
	Lithium    string `json:"lithium"`
	Congestion string `json:"congestion"`
	Policy     string `json:"policy"`
}

// Snapshot is a fully populated set of market signals.
type Snapshot struct {
	LithiumPrice  Signal
	ShippingDelay Signal
	PolicyAlert   Signal
	Sources       Sources
	FetchedAt     time.Time
}
