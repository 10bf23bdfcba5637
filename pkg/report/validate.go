package report

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed report.schema.json
var schemaJSON []byte

// ErrInvalidReport is returned by Validate when the report breaks the schema
// or an internal consistency rule.
var ErrInvalidReport = errors.New("invalid report")

// Issue is one validation finding.
type Issue struct {
	Field       string
	Description string
}

func (i Issue) String() string {
	return i.Field + ": " + i.Description
}

// Schema returns the embedded JSON schema of the payload.
func Schema() []byte {
	return slices.Clone(schemaJSON)
}

// Validate checks serialized report bytes (JSON or script) against the
// embedded schema and, when the shape is valid, against the consistency
// rules of Check. The returned error is non-nil only when validation could
// not run at all.
func Validate(data []byte) ([]Issue, error) {
	payload := Payload(data)

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	if !result.Valid() {
		issues := make([]Issue, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			issues = append(issues, Issue{Field: verr.Field(), Description: verr.Description()})
		}

		return issues, nil
	}

	r, err := Decode(payload)
	if err != nil {
		return nil, err
	}

	return Check(r), nil
}

// Check verifies the consistency rules every produced report satisfies:
// entity totals match their daily, hourly and weekday series; first is not
// after last; daily series ascend; users, topics and contributor rankings
// descend by tokens.
func Check(r *Report) []Issue {
	if r == nil {
		return []Issue{{Field: "(root)", Description: ErrNilReport.Error()}}
	}

	var issues []Issue

	for i, u := range r.Users {
		field := fmt.Sprintf("users.%d", i)
		issues = append(issues, checkSeries(field, u.Tokens, u.Messages, u.Daily, u.Hourly, u.Weekly)...)

		if u.First > u.Last {
			issues = append(issues, Issue{Field: field, Description: "first is after last"})
		}

		if i > 0 && r.Users[i-1].Tokens < u.Tokens {
			issues = append(issues, Issue{Field: field, Description: "users are not sorted by tokens"})
		}
	}

	for i, t := range r.Topics {
		field := fmt.Sprintf("topics.%d", i)
		issues = append(issues, checkSeries(field, t.Tokens, t.Messages, t.Daily, t.Hourly, t.Weekly)...)

		if i > 0 && r.Topics[i-1].Tokens < t.Tokens {
			issues = append(issues, Issue{Field: field, Description: "topics are not sorted by tokens"})
		}

		if len(t.Contributors) > t.UsersCount {
			issues = append(issues, Issue{Field: field, Description: "more contributors than users_count"})
		}

		for j := 1; j < len(t.Contributors); j++ {
			if t.Contributors[j-1].Tokens < t.Contributors[j].Tokens {
				issues = append(issues, Issue{
					Field:       fmt.Sprintf("%s.user_dist.%d", field, j),
					Description: "contributors are not sorted by tokens",
				})
			}
		}
	}

	tokens, messages := r.Totals()
	issues = append(issues, checkSeries("global", tokens, messages, r.GlobalDaily, r.GlobalHourly, r.GlobalWeekly)...)

	return issues
}

func checkSeries(field string, tokens, messages int, daily []DayPoint, hourly Hourly, weekly Weekly) []Issue {
	var issues []Issue

	dailyTokens, dailyMessages := 0, 0

	for i, p := range daily {
		dailyTokens += p.Tokens
		dailyMessages += p.Messages

		if i > 0 && daily[i-1].Day >= p.Day {
			issues = append(issues, Issue{Field: field + ".daily", Description: "days are not strictly ascending"})
		}
	}

	if dailyTokens != tokens {
		issues = append(issues, Issue{
			Field:       field + ".daily",
			Description: fmt.Sprintf("daily tokens sum to %d, want %d", dailyTokens, tokens),
		})
	}

	if dailyMessages != messages {
		issues = append(issues, Issue{
			Field:       field + ".daily",
			Description: fmt.Sprintf("daily messages sum to %d, want %d", dailyMessages, messages),
		})
	}

	if sum(hourly[:]) != messages {
		issues = append(issues, Issue{
			Field:       field + ".hourly",
			Description: fmt.Sprintf("hourly counts sum to %d, want %d", sum(hourly[:]), messages),
		})
	}

	if sum(weekly[:]) != messages {
		issues = append(issues, Issue{
			Field:       field + ".dow",
			Description: fmt.Sprintf("weekday counts sum to %d, want %d", sum(weekly[:]), messages),
		})
	}

	return issues
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}

	return total
}
