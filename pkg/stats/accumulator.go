package stats

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/Sumatoshi-tech/topicstats/pkg/report"
)

// Bucket totals one day of activity.
type Bucket struct {
	Tokens   int
	Messages int
}

// Activity is the time-bucketed running total shared by the global, user
// and topic accumulators.
type Activity struct {
	Tokens   int
	Messages int
	Daily    map[string]*Bucket
	Hourly   report.Hourly
	Weekly   report.Weekly
}

func newActivity() Activity {
	return Activity{Daily: make(map[string]*Bucket)}
}

func (a *Activity) add(m message) {
	a.Tokens += m.tokens
	a.Messages++

	b := a.Daily[m.day]
	if b == nil {
		b = &Bucket{}
		a.Daily[m.day] = b
	}

	b.Tokens += m.tokens
	b.Messages++

	a.Hourly[m.hour]++
	a.Weekly[m.weekday]++
}

// Series returns the daily buckets in ascending day order.
func (a *Activity) Series() []report.DayPoint {
	points := make([]report.DayPoint, 0, len(a.Daily))

	for _, day := range slices.Sorted(maps.Keys(a.Daily)) {
		b := a.Daily[day]
		points = append(points, report.DayPoint{Day: day, Tokens: b.Tokens, Messages: b.Messages})
	}

	return points
}

// Span tracks the earliest and latest message time. Zero values mean unset.
type Span struct {
	First time.Time
	Last  time.Time
}

func (s *Span) observe(at time.Time) {
	if s.First.IsZero() || at.Before(s.First) {
		s.First = at
	}

	if s.Last.IsZero() || at.After(s.Last) {
		s.Last = at
	}
}

// User accumulates the messages of one author.
type User struct {
	ID string
	Activity
	Span
}

// Topic accumulates the messages of one topic and each author's token
// contribution to it.
type Topic struct {
	ID string
	Activity
	Span

	contributions map[string]int
	contributors  []string
}

func newTopic(id string) *Topic {
	return &Topic{
		ID:            id,
		Activity:      newActivity(),
		contributions: make(map[string]int),
	}
}

func (t *Topic) contribute(actor string, tokens int) {
	if _, seen := t.contributions[actor]; !seen {
		t.contributors = append(t.contributors, actor)
	}

	t.contributions[actor] += tokens
}

// Contributors returns the number of distinct authors seen in the topic.
func (t *Topic) Contributors() int {
	return len(t.contributors)
}

// Contribution is one author's token total within a topic.
type Contribution struct {
	Actor  string
	Tokens int
}

// TopContributors returns up to limit authors ordered by descending token
// contribution. Ties keep first-encounter order.
func (t *Topic) TopContributors(limit int) []Contribution {
	ranked := make([]Contribution, 0, len(t.contributors))
	for _, actor := range t.contributors {
		ranked = append(ranked, Contribution{Actor: actor, Tokens: t.contributions[actor]})
	}

	slices.SortStableFunc(ranked, func(a, b Contribution) int {
		return cmp.Compare(b.Tokens, a.Tokens)
	})

	return ranked[:min(limit, len(ranked))]
}

// registry keeps entities in first-encounter order so every output that
// iterates it is deterministic.
type registry[T any] struct {
	byID  map[string]*T
	order []*T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{byID: make(map[string]*T)}
}

func (r *registry[T]) get(id string, create func() *T) *T {
	if v, ok := r.byID[id]; ok {
		return v
	}

	v := create()
	r.byID[id] = v
	r.order = append(r.order, v)

	return v
}

func (r *registry[T]) lookup(id string) (*T, bool) {
	v, ok := r.byID[id]

	return v, ok
}

func (r *registry[T]) len() int {
	return len(r.order)
}
