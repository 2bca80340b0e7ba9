package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrUnknownPeriod is returned by ParsePeriod for unsupported granularities.
var ErrUnknownPeriod = errors.New("unknown period")

// Period is a bucketing granularity.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod accepts daily, weekly or monthly (case-insensitive). An empty
// string selects weekly.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodWeekly, nil
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

// PeriodCount is the number of records falling in one period.
type PeriodCount struct {
	Period string    `json:"period"`
	Start  time.Time `json:"start"`
	Count  int       `json:"count"`
}

// periodStart returns the first instant of the period containing t, in loc.
// Weeks start on Monday (ISO 8601).
func periodStart(t time.Time, p Period, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	switch p {
	case PeriodDaily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PeriodMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	}
}

// nextPeriod returns the start of the period after the one starting at start.
// It steps on the calendar date and re-derives the start, so a day whose
// midnight is skipped by a DST change does not shift later starts off 00:00.
func nextPeriod(start time.Time, p Period, loc *time.Location) time.Time {
	y, m, d := start.In(loc).Date()
	switch p {
	case PeriodDaily:
		d++
	case PeriodMonthly:
		m, d = m+1, 1
	default:
		d += 7
	}
	return periodStart(time.Date(y, m, d, 12, 0, 0, 0, loc), p, loc)
}

// periodLabel renders a period start: 2024-03-05, 2024-W10 or 2024-03.
func periodLabel(start time.Time, p Period) string {
	switch p {
	case PeriodDaily:
		return start.Format("2006-01-02")
	case PeriodMonthly:
		return start.Format("2006-01")
	default:
		y, w := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	}
}

// axis is the gap-free ordered list of periods spanning a set of timestamps.
type axis struct {
	period Period
	loc    *time.Location
	starts []time.Time
	index  map[string]int // by period label
}

func newAxis(times []time.Time, p Period, loc *time.Location) axis {
	ax := axis{period: p, loc: loc, index: map[string]int{}}
	if len(times) == 0 {
		return ax
	}
	first := periodStart(times[0], p, loc)
	last := first
	for _, t := range times[1:] {
		s := periodStart(t, p, loc)
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	for s := first; !s.After(last); s = nextPeriod(s, p, loc) {
		ax.index[periodLabel(s, p)] = len(ax.starts)
		ax.starts = append(ax.starts, s)
	}
	return ax
}

func (a axis) len() int { return len(a.starts) }

// slot returns the axis position of t; ok is false when t lies outside the
// axis.
func (a axis) slot(t time.Time) (int, bool) {
	i, ok := a.index[periodLabel(periodStart(t, a.period, a.loc), a.period)]
	return i, ok
}

// counts renders per-slot tallies as PeriodCounts.
func (a axis) counts(tally []int) []PeriodCount {
	out := make([]PeriodCount, len(a.starts))
	for i, s := range a.starts {
		out[i] = PeriodCount{Period: periodLabel(s, a.period), Start: s, Count: tally[i]}
	}
	return out
}

// Bucket counts timestamps per period, chronologically, with zero-filled
// gaps between the first and last observed period.
func Bucket(times []time.Time, p Period, loc *time.Location) []PeriodCount {
	if loc == nil {
		loc = time.UTC
	}
	ax := newAxis(times, p, loc)
	tally := make([]int, ax.len())
	for _, t := range times {
		if i, ok := ax.slot(t); ok {
			tally[i]++
		}
	}
	return ax.counts(tally)
}

// ---- numeric helpers ----

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// pct returns part/whole*100, or 0 when whole is zero.
func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// rankCounts orders keys by count descending, then name ascending.
func rankCounts(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
