package analytics

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// defaultUrgencyWeight is used for an area none of whose records carry a
	// known urgency (Medium).
	defaultUrgencyWeight = 2.0

	// negativeAlertPct flags hotspots with a large negative share.
	negativeAlertPct = 60.0

	categoryByAreaAreas = 5
	categoryByAreaTop   = 3
	focusedHotspots     = 3
)

// urgencyWeights is the numeric severity used for mean urgency.
var urgencyWeights = map[Urgency]float64{
	UrgencyLow:      1,
	UrgencyMedium:   2,
	UrgencyHigh:     3,
	UrgencyCritical: 4,
}

var sentimentValues = map[Sentiment]float64{
	SentimentPositive: 1,
	SentimentNeutral:  0,
	SentimentNegative: -1,
}

// HotspotScore is count × meanUrgency × (1 + negativeFraction). It is
// monotonically non-decreasing in each factor.
func HotspotScore(count int, meanUrgency, negativeFraction float64) float64 {
	return float64(count) * meanUrgency * (1 + negativeFraction)
}

// AreaStats is the per-area aggregate.
type AreaStats struct {
	Area         string      `json:"area"`
	Count        int         `json:"count"`
	AvgUrgency   float64     `json:"avg_urgency"`
	AvgSentiment float64     `json:"avg_sentiment"`
	NegativePct  float64     `json:"negative_sentiment_pct"`
	HotspotScore float64     `json:"hotspot_score"`
	Coordinate   *Coordinate `json:"coordinate,omitempty"`
}

// CategoryCount is a category tally inside an area.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// GeoResult is the output of the geospatial analyses.
type GeoResult struct {
	Category        string                     `json:"category,omitempty"`
	Areas           []AreaStats                `json:"areas"`
	Hotspots        []AreaStats                `json:"hotspots"`
	CategoryByArea  map[string][]CategoryCount `json:"category_by_area"`
	TotalAreas      int                        `json:"total_areas"`
	Unlocated       int                        `json:"unlocated"`
	Recommendations []string                   `json:"recommendations"`
	Insufficient    bool                       `json:"insufficient"`
	Message         string                     `json:"message,omitempty"`
}

// AnalyzeGeospatialDistribution groups located records by area, scores each
// area, and ranks the top hotspots. Records without an area are counted as
// unlocated. topN <= 0 uses cfg.HotspotTopN.
func AnalyzeGeospatialDistribution(records []Record, cfg Config, topN int) GeoResult {
	return analyzeGeo(records, cfg, topN, "")
}

// AnalyzeGeospatialByCategory runs the same pipeline over the records of a
// single category (case-insensitive match).
func AnalyzeGeospatialByCategory(records []Record, category string, cfg Config, topN int) GeoResult {
	want := strings.TrimSpace(category)
	filtered := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.EqualFold(r.category(), want) {
			filtered = append(filtered, r)
		}
	}
	return analyzeGeo(filtered, cfg, topN, want)
}

type areaAcc struct {
	count      int
	urgencies  []float64
	sentiments []float64
	negatives  int
	categories map[string]int
}

func analyzeGeo(records []Record, cfg Config, topN int, category string) GeoResult {
	if topN <= 0 {
		topN = cfg.HotspotTopN
	}
	res := GeoResult{
		Category:        category,
		Areas:           []AreaStats{},
		Hotspots:        []AreaStats{},
		CategoryByArea:  map[string][]CategoryCount{},
		Recommendations: []string{},
	}

	accs := map[string]*areaAcc{}
	for _, r := range records {
		area := r.area()
		if area == "" {
			res.Unlocated++
			continue
		}
		a := accs[area]
		if a == nil {
			a = &areaAcc{categories: map[string]int{}}
			accs[area] = a
		}
		a.count++
		if w, ok := urgencyWeights[r.Urgency]; ok {
			a.urgencies = append(a.urgencies, w)
		}
		if v, ok := sentimentValues[r.Sentiment]; ok {
			a.sentiments = append(a.sentiments, v)
			if r.Sentiment == SentimentNegative {
				a.negatives++
			}
		}
		if c := r.category(); c != "" {
			a.categories[c]++
		}
	}

	if len(accs) == 0 {
		res.Insufficient = true
		res.Message = "insufficient data for geospatial analysis"
		res.Recommendations = geoRecommendations(nil)
		return res
	}

	for area, a := range accs {
		avgUrgency := defaultUrgencyWeight
		if len(a.urgencies) > 0 {
			avgUrgency = mean(a.urgencies)
		}
		negFraction := 0.0
		if len(a.sentiments) > 0 {
			negFraction = float64(a.negatives) / float64(len(a.sentiments))
		}
		st := AreaStats{
			Area:         area,
			Count:        a.count,
			AvgUrgency:   round2(avgUrgency),
			AvgSentiment: round2(mean(a.sentiments)),
			NegativePct:  round1(negFraction * 100),
			HotspotScore: round2(HotspotScore(a.count, avgUrgency, negFraction)),
		}
		if c, ok := cfg.AreaCoordinates[area]; ok {
			st.Coordinate = &c
		}
		res.Areas = append(res.Areas, st)
	}
	sort.Slice(res.Areas, func(i, j int) bool {
		a, b := res.Areas[i], res.Areas[j]
		if a.HotspotScore != b.HotspotScore {
			return a.HotspotScore > b.HotspotScore
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Area < b.Area
	})
	res.TotalAreas = len(res.Areas)

	n := topN
	if n > len(res.Areas) {
		n = len(res.Areas)
	}
	res.Hotspots = append(res.Hotspots, res.Areas[:n]...)

	counts := make(map[string]int, len(accs))
	for area, a := range accs {
		counts[area] = a.count
	}
	for i, area := range rankCounts(counts) {
		if i == categoryByAreaAreas {
			break
		}
		cats := accs[area].categories
		ranked := rankCounts(cats)
		list := make([]CategoryCount, 0, categoryByAreaTop)
		for j, c := range ranked {
			if j == categoryByAreaTop {
				break
			}
			list = append(list, CategoryCount{Category: c, Count: cats[c]})
		}
		res.CategoryByArea[area] = list
	}

	res.Recommendations = geoRecommendations(res.Hotspots)
	return res
}

func geoRecommendations(hotspots []AreaStats) []string {
	if len(hotspots) == 0 {
		return []string{"No significant hotspots identified"}
	}
	top := hotspots[0]
	out := []string{fmt.Sprintf("Top hotspot: %s with %d complaints", top.Area, top.Count)}
	for _, h := range hotspots {
		if h.NegativePct > negativeAlertPct {
			out = append(out, fmt.Sprintf("High negative sentiment in %s (%.1f%%) - immediate attention needed", h.Area, h.NegativePct))
		}
	}
	if len(hotspots) >= focusedHotspots {
		out = append(out, fmt.Sprintf("%d hotspots require focused intervention", len(hotspots)))
	}
	return out
}
