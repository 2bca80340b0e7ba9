package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTrends_WeeklyGrowth(t *testing.T) {
	cfg := testConfig()
	week2 := base.AddDate(0, 0, 7)
	records := append(
		repeat(4, withTimestamp(at(base)), withSentiment(SentimentNegative), withCategory("Water & Sanitation")),
		repeat(6, withTimestamp(at(week2)), withSentiment(SentimentPositive), withCategory("Public Safety"))...,
	)

	res := CalculateTrends(records, PeriodWeekly, cfg)

	require.False(t, res.Insufficient)
	assert.Equal(t, []int{4, 6}, counts(res.Counts))
	assert.InDelta(t, 50.0, res.GrowthRate, 1e-9)
	assert.Equal(t, DirectionIncreasing, res.Direction)
	assert.InDelta(t, 5.0, res.AveragePerPeriod, 1e-9)
	assert.Equal(t, "Feedback volume is increasing (+50.0%). Average: 5 submissions per period.", res.Summary)

	assert.Equal(t, []int{4, 0}, counts(res.SentimentTrends[SentimentNegative]))
	assert.Equal(t, []int{0, 6}, counts(res.SentimentTrends[SentimentPositive]))
	assert.Equal(t, []int{0, 6}, counts(res.CategoryTrends["Public Safety"]))
}

func TestCalculateTrends_ForecastFeedsBack(t *testing.T) {
	cfg := testConfig()
	records := append(
		repeat(4, withTimestamp(at(base))),
		repeat(6, withTimestamp(at(base.AddDate(0, 0, 7))))...,
	)
	res := CalculateTrends(records, PeriodWeekly, cfg)

	require.Len(t, res.Forecast, 4)
	want := []float64{5, 5.5, 5.25, 5.38}
	for i, fp := range res.Forecast {
		assert.InDelta(t, want[i], fp.Value, 1e-9, "forecast %d", i)
	}
	assert.Equal(t, "2024-W03", res.Forecast[0].Period)
	assert.Equal(t, "2024-W06", res.Forecast[3].Period)
}

func TestMovingAverageForecast(t *testing.T) {
	got := MovingAverageForecast([]float64{3, 6, 9, 12}, 4)
	require.Len(t, got, 4)
	assert.InDelta(t, 9.0, got[0], 1e-9)
	assert.InDelta(t, 10.0, got[1], 1e-9)
	assert.InDelta(t, 31.0/3, got[2], 1e-9)
	assert.InDelta(t, (9+10+31.0/3)/3, got[3], 1e-9)

	assert.Nil(t, MovingAverageForecast(nil, 4))
	assert.Equal(t, []float64{7, 7}, MovingAverageForecast([]float64{7}, 2))
}

func TestGrowthRate(t *testing.T) {
	assert.InDelta(t, 50.0, GrowthRate(4, 6), 1e-9)
	assert.InDelta(t, -10.0, GrowthRate(10, 9), 1e-9)
	assert.InDelta(t, 300.0, GrowthRate(0, 3), 1e-9, "zero base treated as one")
	assert.InDelta(t, 1000.0, GrowthRate(0, 50), 1e-9, "clamped")
	assert.InDelta(t, -100.0, GrowthRate(5, 0), 1e-9)
}

func TestClassify_DeadBand(t *testing.T) {
	assert.Equal(t, DirectionStable, Classify(5))
	assert.Equal(t, DirectionStable, Classify(-5))
	assert.Equal(t, DirectionStable, Classify(0))
	assert.Equal(t, DirectionIncreasing, Classify(5.01))
	assert.Equal(t, DirectionDecreasing, Classify(-5.01))
}

func TestCalculateTrends_TopFiveCategories(t *testing.T) {
	cfg := testConfig()
	var records []Record
	cats := []string{"A", "B", "C", "D", "E", "F"}
	for i, c := range cats {
		// A gets 6 records, F gets 1.
		records = append(records, repeat(len(cats)-i, withCategory(c), withTimestamp(at(base)))...)
	}
	records = append(records, rec(withTimestamp(at(base.AddDate(0, 0, 1)))))

	res := CalculateTrends(records, PeriodDaily, cfg)
	require.Len(t, res.CategoryTrends, 5)
	assert.NotContains(t, res.CategoryTrends, "F")
	assert.Contains(t, res.CategoryTrends, "A")
}

func TestCalculateTrends_Insufficient(t *testing.T) {
	cfg := testConfig()
	cases := map[string][]Record{
		"empty":         nil,
		"single period": repeat(3, withTimestamp(at(base))),
		"no timestamps": repeat(3, withCategory("Healthcare")),
	}
	for name, records := range cases {
		t.Run(name, func(t *testing.T) {
			res := CalculateTrends(records, PeriodWeekly, cfg)
			assert.True(t, res.Insufficient)
			assert.NotEmpty(t, res.Message)
			assert.Empty(t, res.Counts)
			assert.Empty(t, res.Forecast)
			assert.Zero(t, res.GrowthRate)
		})
	}
}

func TestCalculateTrends_SkipsUntimedRecords(t *testing.T) {
	cfg := testConfig()
	records := []Record{
		rec(withTimestamp(at(base))),
		rec(withTimestamp(at(base.Add(24 * time.Hour)))),
		rec(),
	}
	res := CalculateTrends(records, PeriodDaily, cfg)
	assert.Equal(t, []int{1, 1}, counts(res.Counts))
	assert.Equal(t, DirectionStable, res.Direction)
}

func TestCalculateTrends_DailyAcrossMidnightDSTChange(t *testing.T) {
	_, days := havanaDays(t)
	cfg := DefaultConfig()
	cfg.Timezone = "America/Havana"
	require.NoError(t, cfg.Validate())

	var records []Record
	for _, d := range days {
		records = append(records, rec(withTimestamp(at(d))))
	}
	res := CalculateTrends(records, PeriodDaily, cfg)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, counts(res.Counts))
	assert.Equal(t, "2024-03-13", res.Counts[len(res.Counts)-1].Period)
	require.NotEmpty(t, res.Forecast)
	assert.Equal(t, "2024-03-14", res.Forecast[0].Period)
}
