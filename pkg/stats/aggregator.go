// Package stats folds event records into per-user, per-topic and global
// activity totals and finalizes them into a dashboard report.
package stats

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/topicstats/pkg/eventlog"
	"github.com/Sumatoshi-tech/topicstats/pkg/metadata"
	"github.com/Sumatoshi-tech/topicstats/pkg/report"
	"github.com/Sumatoshi-tech/topicstats/pkg/textutil"
)

// Layouts of the event log timestamp and the report timestamps.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	ISOLayout       = "2006-01-02T15:04:05"
	DayLayout       = "2006-01-02"
)

// UnknownActor is the placeholder the exporter writes for unattributed messages.
const UnknownActor = "(unknown)"

// cancelCheckInterval is how many rows Consume reads between context checks.
const cancelCheckInterval = 4096

// Skip reasons returned by Ingest.
var (
	// ErrNoActor marks a record without a usable author.
	ErrNoActor = errors.New("record has no actor")
	// ErrBadTimestamp marks a record whose timestamp does not parse.
	ErrBadTimestamp = errors.New("record has malformed timestamp")
	// ErrNoEvents is returned by Finalize when no record was accepted.
	ErrNoEvents = errors.New("no valid events")
)

// RecordSource yields records until io.EOF.
type RecordSource interface {
	Next() (eventlog.Record, error)
}

// IngestStats counts what happened to the rows of one Consume call.
type IngestStats struct {
	Rows             int
	Accepted         int
	SkippedActor     int
	SkippedTimestamp int
	MalformedRows    int
}

// Skipped returns the number of rows that did not reach the accumulators.
func (s IngestStats) Skipped() int {
	return s.SkippedActor + s.SkippedTimestamp + s.MalformedRows
}

// Aggregator accumulates records. It is not safe for concurrent use.
type Aggregator struct {
	global Activity
	users  *registry[User]
	topics *registry[Topic]
	names  map[string]string
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		global: newActivity(),
		users:  newRegistry[User](),
		topics: newRegistry[Topic](),
		names:  make(map[string]string),
	}
}

// message is a record reduced to what the accumulators need.
type message struct {
	at      time.Time
	day     string
	hour    int
	weekday int
	tokens  int
}

func newMessage(at time.Time, text string) message {
	return message{
		at:      at,
		day:     at.Format(DayLayout),
		hour:    at.Hour(),
		weekday: isoWeekday(at.Weekday()),
		tokens:  textutil.CountTokens(text),
	}
}

// isoWeekday maps Sunday-first weekdays to Monday = 0 through Sunday = 6.
func isoWeekday(wd time.Weekday) int {
	return (int(wd) + report.DaysPerWeek - 1) % report.DaysPerWeek
}

// Ingest folds one record into the accumulators. It returns ErrNoActor or
// ErrBadTimestamp when the record is skipped. The display name is recorded
// even when the timestamp is bad.
func (a *Aggregator) Ingest(rec eventlog.Record) error {
	actor := strings.ToLower(rec.Mail)
	if actor == "" || actor == UnknownActor {
		return ErrNoActor
	}

	name := rec.Name
	if !rec.HasName {
		name, _, _ = strings.Cut(actor, "@")
	}

	a.names[actor] = name

	at, err := time.Parse(TimestampLayout, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadTimestamp, rec.Timestamp)
	}

	msg := newMessage(at, rec.Text)

	a.global.add(msg)

	user := a.users.get(actor, func() *User {
		return &User{ID: actor, Activity: newActivity()}
	})
	user.add(msg)
	user.observe(at)

	topic := a.topics.get(rec.Topic, func() *Topic { return newTopic(rec.Topic) })
	topic.add(msg)
	topic.observe(at)
	topic.contribute(actor, msg.tokens)

	return nil
}

// Consume ingests every record of src. Malformed rows and skipped records are
// counted and logged at debug level. Any other read error aborts.
func (a *Aggregator) Consume(ctx context.Context, src RecordSource, logger *slog.Logger) (IngestStats, error) {
	var st IngestStats

	for {
		if st.Rows%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return st, err
			}
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return st, nil
		}

		st.Rows++

		if err != nil {
			if !errors.Is(err, eventlog.ErrMalformedRow) {
				return st, err
			}

			st.MalformedRows++
			logger.DebugContext(ctx, "skipping row", "reason", "row", "error", err)

			continue
		}

		switch ingestErr := a.Ingest(rec); {
		case ingestErr == nil:
			st.Accepted++
		case errors.Is(ingestErr, ErrNoActor):
			st.SkippedActor++
			logger.DebugContext(ctx, "skipping row", "reason", "actor", "line", rec.Line)
		default:
			st.SkippedTimestamp++
			logger.DebugContext(ctx, "skipping row", "reason", "timestamp", "line", rec.Line, "error", ingestErr)
		}
	}
}

// Users returns the number of distinct authors accepted so far.
func (a *Aggregator) Users() int {
	return a.users.len()
}

// Topics returns the number of distinct topics accepted so far.
func (a *Aggregator) Topics() int {
	return a.topics.len()
}

// DisplayName resolves an author id through the identity directory.
func (a *Aggregator) DisplayName(actor string) string {
	if name, ok := a.names[actor]; ok {
		return name
	}

	return actor
}

// User returns the accumulator of one author.
func (a *Aggregator) User(actor string) (*User, bool) {
	return a.users.lookup(actor)
}

// Topic returns the accumulator of one topic.
func (a *Aggregator) Topic(id string) (*Topic, bool) {
	return a.topics.lookup(id)
}

// Finalize builds the report. Statuses are measured against the most recent
// message of any author. It returns ErrNoEvents when nothing was accepted.
func (a *Aggregator) Finalize(meta metadata.Index, policy Policy) (*report.Report, error) {
	if a.users.len() == 0 {
		return nil, ErrNoEvents
	}

	var latest time.Time
	for _, u := range a.users.order {
		if u.Last.After(latest) {
			latest = u.Last
		}
	}

	users := make([]report.User, 0, a.users.len())
	for _, u := range a.users.order {
		users = append(users, report.User{
			ID:       u.ID,
			Name:     a.DisplayName(u.ID),
			Tokens:   u.Tokens,
			Messages: u.Messages,
			Status:   policy.Classify(DaysBetween(u.Last, latest)),
			First:    u.First.Format(ISOLayout),
			Last:     u.Last.Format(ISOLayout),
			Hourly:   u.Hourly,
			Weekly:   u.Weekly,
			Daily:    u.Series(),
		})
	}

	topics := make([]report.Topic, 0, a.topics.len())
	for _, t := range a.topics.order {
		info := meta.Resolve(t.ID)

		top := t.TopContributors(policy.TopContributors)
		dist := make([]report.Contributor, 0, len(top))

		for _, c := range top {
			dist = append(dist, report.Contributor{Name: a.DisplayName(c.Actor), Tokens: c.Tokens})
		}

		topics = append(topics, report.Topic{
			ID:           t.ID,
			Title:        info.Title,
			URL:          info.URL,
			Tokens:       t.Tokens,
			Messages:     t.Messages,
			UsersCount:   t.Contributors(),
			Hourly:       t.Hourly,
			Weekly:       t.Weekly,
			Daily:        t.Series(),
			Contributors: dist,
		})
	}

	slices.SortStableFunc(users, func(x, y report.User) int { return cmp.Compare(y.Tokens, x.Tokens) })
	slices.SortStableFunc(topics, func(x, y report.Topic) int { return cmp.Compare(y.Tokens, x.Tokens) })

	return &report.Report{
		Users:        users,
		Topics:       topics,
		GlobalDaily:  a.global.Series(),
		GlobalHourly: a.global.Hourly,
		GlobalWeekly: a.global.Weekly,
	}, nil
}

// DaysBetween returns the number of whole days from earlier to later.
func DaysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier) / (report.HoursPerDay * time.Hour))
}
