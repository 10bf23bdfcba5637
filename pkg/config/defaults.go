package config

// Input defaults.
const (
	DefaultEventsPath     = "backups/fulltext-data.csv"
	DefaultMetadataDir    = "backups/json"
	DefaultMetadataSuffix = ".json"
	DefaultReadBuffer     = "1MB"
)

// Output defaults.
const (
	DefaultOutputPath   = "dashboard_data.js"
	DefaultOutputFormat = "js"
	DefaultConstName    = "dashboardData"
)

// Report defaults.
const (
	DefaultActiveDays      = 60
	DefaultOccasionalDays  = 365
	DefaultTopContributors = 15
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)
