package analytics

import "time"

// weekdays in Monday-first order.
var weekdays = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// HeatmapResult counts submissions per weekday (rows, Monday first) and hour
// of day (columns) in the configured zone.
type HeatmapResult struct {
	Days         [7]string  `json:"days"`
	Cells        [7][24]int `json:"cells"`
	Total        int        `json:"total"`
	PeakDay      string     `json:"peak_day,omitempty"`
	PeakHour     int        `json:"peak_hour"`
	PeakCount    int        `json:"peak_count"`
	Insufficient bool       `json:"insufficient"`
	Message      string     `json:"message,omitempty"`
}

// TemporalHeatmap tallies records with a timestamp into a 7×24 grid. The
// peak is the first maximal cell scanning days then hours.
func TemporalHeatmap(records []Record, cfg Config) HeatmapResult {
	var res HeatmapResult
	for i, d := range weekdays {
		res.Days[i] = d.String()
	}
	loc := cfg.Location()
	for _, r := range records {
		if r.Timestamp == nil {
			continue
		}
		t := r.Timestamp.In(loc)
		row := (int(t.Weekday()) + 6) % 7
		res.Cells[row][t.Hour()]++
		res.Total++
	}
	if res.Total == 0 {
		res.Insufficient = true
		res.Message = "insufficient data for temporal heatmap"
		return res
	}
	for d := range res.Cells {
		for h, n := range res.Cells[d] {
			if n > res.PeakCount {
				res.PeakCount = n
				res.PeakDay = res.Days[d]
				res.PeakHour = h
			}
		}
	}
	return res
}
