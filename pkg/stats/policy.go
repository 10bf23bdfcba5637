package stats

import "github.com/Sumatoshi-tech/topicstats/pkg/report"

// Default status thresholds and contributor ranking size.
const (
	DefaultActiveDays      = 60
	DefaultOccasionalDays  = 365
	DefaultTopContributors = 15
)

// Policy holds the tunables applied by Finalize.
type Policy struct {
	// ActiveDays is the exclusive upper bound of inactivity for Active.
	ActiveDays int
	// OccasionalDays is the exclusive upper bound of inactivity for Occasional.
	OccasionalDays int
	// TopContributors caps each topic's contributor ranking.
	TopContributors int
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		ActiveDays:      DefaultActiveDays,
		OccasionalDays:  DefaultOccasionalDays,
		TopContributors: DefaultTopContributors,
	}
}

// Classify maps whole days of inactivity to a status.
func (p Policy) Classify(days int) report.Status {
	switch {
	case days < p.ActiveDays:
		return report.StatusActive
	case days < p.OccasionalDays:
		return report.StatusOccasional
	default:
		return report.StatusDormant
	}
}
