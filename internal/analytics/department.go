package analytics

import (
	"fmt"
	"sort"
)

const (
	// neutralScore stands in for a factor that has no samples.
	neutralScore = 50.0

	resolutionWeight   = 0.30
	satisfactionWeight = 0.30
	slaWeight          = 0.25
	responseWeight     = 0.15

	needsImprovementScore = 50.0
	lowSatisfactionScore  = 50.0
)

// ResponseFactor maps an average response time to 0..100, decreasing
// linearly from 100 at zero hours to 0 at referenceHours and beyond.
func ResponseFactor(hours, referenceHours float64) float64 {
	if referenceHours <= 0 {
		return 0
	}
	return 100 - clamp(hours/referenceHours*100, 0, 100)
}

// PerformanceScore combines the four 0..100 factors with weights
// 0.30/0.30/0.25/0.15 and clamps the result to 0..100.
func PerformanceScore(resolutionRate, satisfaction, slaCompliance, responseFactor float64) float64 {
	s := resolutionRate*resolutionWeight +
		satisfaction*satisfactionWeight +
		slaCompliance*slaWeight +
		responseFactor*responseWeight
	return clamp(s, 0, 100)
}

// DepartmentMetrics is the per-department scorecard.
type DepartmentMetrics struct {
	Department            string            `json:"department"`
	TotalTickets          int               `json:"total_tickets"`
	ResolvedTickets       int               `json:"resolved_tickets"`
	ResolutionRate        float64           `json:"resolution_rate"`
	SatisfactionScore     float64           `json:"satisfaction_score"`
	AvgResponseTimeHours  *float64          `json:"avg_response_time_hours"`
	ResponseFactor        float64           `json:"response_factor"`
	SLACompliance         float64           `json:"sla_compliance"`
	SLASamples            int               `json:"sla_samples"`
	PerformanceScore      float64           `json:"performance_score"`
	SentimentDistribution map[Sentiment]int `json:"sentiment_distribution"`
	Trend                 Direction         `json:"trend"`
}

// DepartmentResult is the output of AnalyzeDepartmentPerformance.
type DepartmentResult struct {
	Departments     []DepartmentMetrics `json:"departments"`
	OverallAverage  float64             `json:"overall_avg_performance"`
	TopPerformer    *DepartmentMetrics  `json:"top_performer"`
	BottomPerformer *DepartmentMetrics  `json:"bottom_performer"`
	Recommendations []string            `json:"recommendations"`
	Insufficient    bool                `json:"insufficient"`
	Message         string              `json:"message,omitempty"`
}

// scoreGroup computes the unrounded scorecard for a set of records.
func scoreGroup(records []Record, cfg Config) DepartmentMetrics {
	m := DepartmentMetrics{
		TotalTickets:          len(records),
		SentimentDistribution: map[Sentiment]int{SentimentPositive: 0, SentimentNeutral: 0, SentimentNegative: 0},
	}
	var responses []float64
	for _, r := range records {
		if r.Status.Closed() {
			m.ResolvedTickets++
		}
		if r.Sentiment != SentimentUnknown {
			m.SentimentDistribution[r.Sentiment]++
		}
		if r.Timestamp != nil && r.UpdatedAt != nil {
			if d := r.UpdatedAt.Sub(*r.Timestamp); d >= 0 {
				responses = append(responses, d.Hours())
			}
		}
	}
	m.ResolutionRate = pct(m.ResolvedTickets, m.TotalTickets)

	pos := m.SentimentDistribution[SentimentPositive]
	neu := m.SentimentDistribution[SentimentNeutral]
	neg := m.SentimentDistribution[SentimentNegative]
	if known := pos + neu + neg; known > 0 {
		m.SatisfactionScore = float64(pos*100+neu*50) / float64(known)
	} else {
		m.SatisfactionScore = neutralScore
	}

	m.SLACompliance, m.SLASamples = Compliance(records, cfg)
	if m.SLASamples == 0 {
		m.SLACompliance = neutralScore
	}

	if len(responses) > 0 {
		avg := mean(responses)
		m.AvgResponseTimeHours = &avg
		m.ResponseFactor = ResponseFactor(avg, cfg.ResponseReferenceHours)
	} else {
		m.ResponseFactor = neutralScore
	}

	m.PerformanceScore = PerformanceScore(m.ResolutionRate, m.SatisfactionScore, m.SLACompliance, m.ResponseFactor)
	return m
}

// departmentTrend compares the score of the later half of the records (by
// creation time) with the earlier half. Records without a timestamp are
// ignored; fewer than two timed records is stable.
func departmentTrend(records []Record, cfg Config) Direction {
	timed := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Timestamp != nil {
			timed = append(timed, r)
		}
	}
	if len(timed) < 2 {
		return DirectionStable
	}
	sort.SliceStable(timed, func(i, j int) bool {
		a, b := timed[i], timed[j]
		if !a.Timestamp.Equal(*b.Timestamp) {
			return a.Timestamp.Before(*b.Timestamp)
		}
		return a.ID < b.ID
	})
	mid := len(timed) / 2
	earlier := scoreGroup(timed[:mid], cfg).PerformanceScore
	recent := scoreGroup(timed[mid:], cfg).PerformanceScore
	base := earlier
	if base < 1 {
		base = 1
	}
	return Classify((recent - earlier) / base * 100)
}

func roundMetrics(m DepartmentMetrics) DepartmentMetrics {
	m.ResolutionRate = round1(m.ResolutionRate)
	m.SatisfactionScore = round1(m.SatisfactionScore)
	m.SLACompliance = round1(m.SLACompliance)
	m.ResponseFactor = round1(m.ResponseFactor)
	m.PerformanceScore = round1(m.PerformanceScore)
	if m.AvgResponseTimeHours != nil {
		v := round1(*m.AvgResponseTimeHours)
		m.AvgResponseTimeHours = &v
	}
	return m
}

// AnalyzeDepartmentPerformance scores every department that owns at least
// one record, ranks them, and identifies top and bottom performers. The
// overall average is a simple mean across departments, not weighted by
// ticket volume.
func AnalyzeDepartmentPerformance(records []Record, cfg Config) DepartmentResult {
	res := DepartmentResult{
		Departments:     []DepartmentMetrics{},
		Recommendations: []string{},
	}
	if len(records) == 0 {
		res.Insufficient = true
		res.Message = "insufficient data for department analysis"
		res.Recommendations = []string{"No department data available"}
		return res
	}

	groups := map[string][]Record{}
	for _, r := range records {
		d := cfg.DepartmentFor(r.category())
		groups[d] = append(groups[d], r)
	}

	scores := make([]float64, 0, len(groups))
	for dept, recs := range groups {
		m := scoreGroup(recs, cfg)
		m.Department = dept
		m.Trend = departmentTrend(recs, cfg)
		m = roundMetrics(m)
		res.Departments = append(res.Departments, m)
		scores = append(scores, m.PerformanceScore)
	}
	sort.Slice(res.Departments, func(i, j int) bool {
		a, b := res.Departments[i], res.Departments[j]
		if a.PerformanceScore != b.PerformanceScore {
			return a.PerformanceScore > b.PerformanceScore
		}
		return a.Department < b.Department
	})

	res.OverallAverage = round1(mean(scores))
	top := res.Departments[0]
	res.TopPerformer = &top
	if len(res.Departments) > 1 {
		bottom := res.Departments[len(res.Departments)-1]
		res.BottomPerformer = &bottom
	}
	res.Recommendations = departmentRecommendations(res)
	return res
}

func departmentRecommendations(res DepartmentResult) []string {
	out := []string{}
	if res.TopPerformer != nil {
		out = append(out, fmt.Sprintf("Best performer: %s (score %.1f)", res.TopPerformer.Department, res.TopPerformer.PerformanceScore))
	}
	if b := res.BottomPerformer; b != nil && b.PerformanceScore < needsImprovementScore {
		out = append(out, fmt.Sprintf("%s needs improvement (score %.1f)", b.Department, b.PerformanceScore))
	}
	lowSLA, lowSat := 0, 0
	for _, d := range res.Departments {
		if d.SLACompliance < lowComplianceThreshold {
			lowSLA++
		}
		if d.SatisfactionScore < lowSatisfactionScore {
			lowSat++
		}
	}
	if lowSLA > 0 {
		out = append(out, fmt.Sprintf("%d department(s) below 75%% SLA compliance", lowSLA))
	}
	if lowSat > 0 {
		out = append(out, fmt.Sprintf("%d department(s) with low satisfaction scores", lowSat))
	}
	if res.OverallAverage < needsImprovementScore {
		out = append(out, fmt.Sprintf("Overall performance average is %.1f - review staffing and workflows", res.OverallAverage))
	}
	return out
}
