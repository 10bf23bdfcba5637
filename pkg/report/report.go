// Package report defines the dashboard payload and its serialized forms.
package report

import "errors"

// Slot counts of the hour-of-day and day-of-week distributions.
const (
	HoursPerDay = 24
	DaysPerWeek = 7
)

// Status labels a user by how recently they last posted.
type Status string

// Status values.
const (
	StatusActive     Status = "Active"
	StatusOccasional Status = "Occasional"
	StatusDormant    Status = "Dormant"
)

// ErrNilReport is returned when a nil report is passed to a codec.
var ErrNilReport = errors.New("report is nil")

// Hourly counts messages per hour of day, 0 through 23.
type Hourly [HoursPerDay]int

// Weekly counts messages per day of week, 0 = Monday through 6 = Sunday.
type Weekly [DaysPerWeek]int

// DayPoint is one day of a daily series.
type DayPoint struct {
	Day      string `json:"d" yaml:"d"`
	Tokens   int    `json:"t" yaml:"t"`
	Messages int    `json:"m" yaml:"m"`
}

// User summarizes one author.
type User struct {
	ID       string     `json:"id"     yaml:"id"`
	Name     string     `json:"name"   yaml:"name"`
	Tokens   int        `json:"tokens" yaml:"tokens"`
	Messages int        `json:"msgs"   yaml:"msgs"`
	Status   Status     `json:"status" yaml:"status"`
	First    string     `json:"first"  yaml:"first"`
	Last     string     `json:"last"   yaml:"last"`
	Hourly   Hourly     `json:"hourly" yaml:"hourly,flow"`
	Weekly   Weekly     `json:"dow"    yaml:"dow,flow"`
	Daily    []DayPoint `json:"daily"  yaml:"daily"`
}

// Contributor is one entry of a topic's top-contributor ranking.
type Contributor struct {
	Name   string `json:"n" yaml:"n"`
	Tokens int    `json:"v" yaml:"v"`
}

// Topic summarizes one topic.
type Topic struct {
	ID           string        `json:"id"          yaml:"id"`
	Title        string        `json:"title"       yaml:"title"`
	URL          string        `json:"url"         yaml:"url"`
	Tokens       int           `json:"tokens"      yaml:"tokens"`
	Messages     int           `json:"msgs"        yaml:"msgs"`
	UsersCount   int           `json:"users_count" yaml:"users_count"`
	Hourly       Hourly        `json:"hourly"      yaml:"hourly,flow"`
	Weekly       Weekly        `json:"dow"         yaml:"dow,flow"`
	Daily        []DayPoint    `json:"daily"       yaml:"daily"`
	Contributors []Contributor `json:"user_dist"   yaml:"user_dist"`
}

// Report is the complete dashboard payload.
type Report struct {
	Users        []User     `json:"users"         yaml:"users"`
	Topics       []Topic    `json:"topics"        yaml:"topics"`
	GlobalDaily  []DayPoint `json:"global_daily"  yaml:"global_daily"`
	GlobalHourly Hourly     `json:"global_hourly" yaml:"global_hourly,flow"`
	GlobalWeekly Weekly     `json:"global_dow"    yaml:"global_dow,flow"`
}

// Totals returns the overall token and message counts of the global series.
func (r *Report) Totals() (int, int) {
	tokens, messages := 0, 0

	for _, p := range r.GlobalDaily {
		tokens += p.Tokens
		messages += p.Messages
	}

	return tokens, messages
}
