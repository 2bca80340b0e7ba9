package analytics

import (
	"fmt"
	"time"
)

// Direction classifies a change as increasing, decreasing or stable.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

const (
	// DeadBand is the half-width, in percent, of the "stable" band.
	DeadBand = 5.0

	// maxGrowth bounds the reported growth rate in both directions.
	maxGrowth = 1000.0

	forecastPeriods = 4
	forecastWindow  = 3
	topCategories   = 5
)

// Classify maps a percentage change onto a Direction using DeadBand.
func Classify(changePct float64) Direction {
	switch {
	case changePct > DeadBand:
		return DirectionIncreasing
	case changePct < -DeadBand:
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}

// ForecastPoint is one projected period.
type ForecastPoint struct {
	Period string    `json:"period"`
	Start  time.Time `json:"start"`
	Value  float64   `json:"value"`
}

// TrendResult is the output of CalculateTrends.
type TrendResult struct {
	Period           Period                      `json:"period"`
	Counts           []PeriodCount               `json:"counts"`
	SentimentTrends  map[Sentiment][]PeriodCount `json:"sentiment_trends"`
	CategoryTrends   map[string][]PeriodCount    `json:"category_trends"`
	Forecast         []ForecastPoint             `json:"forecast"`
	GrowthRate       float64                     `json:"growth_rate"`
	Direction        Direction                   `json:"direction"`
	AveragePerPeriod float64                     `json:"average_per_period"`
	Summary          string                      `json:"summary"`
	Insufficient     bool                        `json:"insufficient"`
	Message          string                      `json:"message,omitempty"`
}

func insufficientTrend(p Period) TrendResult {
	return TrendResult{
		Period:          p,
		Counts:          []PeriodCount{},
		SentimentTrends: map[Sentiment][]PeriodCount{},
		CategoryTrends:  map[string][]PeriodCount{},
		Forecast:        []ForecastPoint{},
		Direction:       DirectionStable,
		Summary:         "No data available for trend analysis",
		Insufficient:    true,
		Message:         "insufficient data for trend analysis",
	}
}

// GrowthRate returns (last-first)/max(first,1)*100 clamped to ±1000.
func GrowthRate(first, last int) float64 {
	base := float64(first)
	if base < 1 {
		base = 1
	}
	return clamp(float64(last-first)/base*100, -maxGrowth, maxGrowth)
}

// MovingAverageForecast projects n values with a trailing simple moving
// average of width min(3, len(history)). Each projected value joins the
// window for the next one. This is a naive baseline, not a model.
func MovingAverageForecast(history []float64, n int) []float64 {
	if len(history) == 0 || n <= 0 {
		return nil
	}
	window := forecastWindow
	if len(history) < window {
		window = len(history)
	}
	series := append([]float64(nil), history...)
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v := mean(series[len(series)-window:])
		out = append(out, v)
		series = append(series, v)
	}
	return out
}

// CalculateTrends buckets records by period and derives growth, direction,
// a four-period forecast and a summary. Records without a timestamp are
// skipped. Fewer than two periods yields an insufficient result.
func CalculateTrends(records []Record, p Period, cfg Config) TrendResult {
	loc := cfg.Location()

	times := make([]time.Time, 0, len(records))
	for _, r := range records {
		if r.Timestamp != nil {
			times = append(times, *r.Timestamp)
		}
	}
	ax := newAxis(times, p, loc)
	if ax.len() < 2 {
		return insufficientTrend(p)
	}

	total := make([]int, ax.len())
	bySentiment := map[Sentiment][]int{}
	byCategory := map[string][]int{}
	categoryTotals := map[string]int{}

	for _, r := range records {
		if r.Timestamp == nil {
			continue
		}
		i, ok := ax.slot(*r.Timestamp)
		if !ok {
			continue
		}
		total[i]++
		if r.Sentiment != SentimentUnknown {
			if bySentiment[r.Sentiment] == nil {
				bySentiment[r.Sentiment] = make([]int, ax.len())
			}
			bySentiment[r.Sentiment][i]++
		}
		if c := r.category(); c != "" {
			if byCategory[c] == nil {
				byCategory[c] = make([]int, ax.len())
			}
			byCategory[c][i]++
			categoryTotals[c]++
		}
	}

	res := TrendResult{
		Period:          p,
		Counts:          ax.counts(total),
		SentimentTrends: make(map[Sentiment][]PeriodCount, len(bySentiment)),
		CategoryTrends:  map[string][]PeriodCount{},
	}
	for s, tally := range bySentiment {
		res.SentimentTrends[s] = ax.counts(tally)
	}
	for i, c := range rankCounts(categoryTotals) {
		if i == topCategories {
			break
		}
		res.CategoryTrends[c] = ax.counts(byCategory[c])
	}

	history := make([]float64, len(total))
	for i, n := range total {
		history[i] = float64(n)
	}
	res.GrowthRate = GrowthRate(total[0], total[len(total)-1])
	res.Direction = Classify(res.GrowthRate)
	res.AveragePerPeriod = mean(history)

	next := ax.starts[ax.len()-1]
	for _, v := range MovingAverageForecast(history, forecastPeriods) {
		next = nextPeriod(next, p, loc)
		res.Forecast = append(res.Forecast, ForecastPoint{
			Period: periodLabel(next, p),
			Start:  next,
			Value:  round2(v),
		})
	}

	res.Summary = fmt.Sprintf("Feedback volume is %s (%+.1f%%). Average: %.0f submissions per period.",
		res.Direction, res.GrowthRate, res.AveragePerPeriod)
	return res
}
