package analytics

import (
	"fmt"
	"time"
)

// base is a Monday (ISO 2024-W01).
var base = time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func hoursAgo(now time.Time, h float64) *time.Time {
	t := now.Add(-time.Duration(h * float64(time.Hour)))
	return &t
}

type recOpt func(*Record)

func withArea(a string) recOpt          { return func(r *Record) { r.Area = a } }
func withCategory(c string) recOpt      { return func(r *Record) { r.Category = c } }
func withUrgency(u Urgency) recOpt      { return func(r *Record) { r.Urgency = u } }
func withStatus(s Status) recOpt        { return func(r *Record) { r.Status = s } }
func withSentiment(s Sentiment) recOpt  { return func(r *Record) { r.Sentiment = s } }
func withTimestamp(t *time.Time) recOpt { return func(r *Record) { r.Timestamp = t } }
func withUpdatedAt(t *time.Time) recOpt { return func(r *Record) { r.UpdatedAt = t } }
func withTitle(title string) recOpt     { return func(r *Record) { r.Title = title } }

var seq int

func rec(opts ...recOpt) Record {
	seq++
	r := Record{ID: fmt.Sprintf("R%05d", seq)}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func repeat(n int, opts ...recOpt) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = rec(opts...)
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}
