package analytics

import (
	"fmt"
	"sort"
	"time"
)

// RiskClass is the SLA classification of an open ticket.
type RiskClass string

const (
	RiskBreached RiskClass = "breached"
	RiskAtRisk   RiskClass = "at_risk"
	RiskOnTrack  RiskClass = "on_track"
)

const (
	// atRiskFraction is the share of the target that, when remaining, marks
	// a ticket as at risk.
	atRiskFraction = 0.25

	timeWeight    = 0.7
	urgencyWeight = 0.3

	// lowComplianceThreshold triggers a compliance recommendation.
	lowComplianceThreshold = 75.0
)

// breachUrgencyWeights is the static urgency term of BreachProbability.
var breachUrgencyWeights = map[Urgency]float64{
	UrgencyCritical: 0.9,
	UrgencyHigh:     0.75,
	UrgencyMedium:   0.5,
	UrgencyLow:      0.3,
}

// ClassifyRisk applies the breach / at-risk / on-track rule.
func ClassifyRisk(remaining, target float64) RiskClass {
	switch {
	case remaining < 0:
		return RiskBreached
	case remaining <= atRiskFraction*target:
		return RiskAtRisk
	default:
		return RiskOnTrack
	}
}

// BreachProbability is a 0..100 heuristic risk score: 70% time pressure
// (elapsed share of target, capped at 1) plus 30% static urgency weight.
// It is not a calibrated probability.
func BreachProbability(elapsed, target float64, u Urgency) float64 {
	pressure := 1.0
	if target > 0 {
		pressure = clamp(elapsed/target, 0, 1)
	}
	w, ok := breachUrgencyWeights[u]
	if !ok {
		w = breachUrgencyWeights[UrgencyLow]
	}
	return clamp((pressure*timeWeight+w*urgencyWeight)*100, 0, 100)
}

var recommendedActions = map[RiskClass]map[Urgency]string{
	RiskBreached: {
		UrgencyCritical: "Escalate immediately",
		UrgencyHigh:     "Escalate to department lead",
		UrgencyMedium:   "Reassign and expedite resolution",
		UrgencyLow:      "Schedule resolution and notify citizen",
	},
	RiskAtRisk: {
		UrgencyCritical: "Assign resources immediately",
		UrgencyHigh:     "Prioritize in current shift",
		UrgencyMedium:   "Prioritize and monitor closely",
		UrgencyLow:      "Monitor progress",
	},
}

// RecommendedAction picks the action template for a classification and
// urgency. On-track tickets get "No action needed".
func RecommendedAction(c RiskClass, u Urgency) string {
	byUrgency, ok := recommendedActions[c]
	if !ok {
		return "No action needed"
	}
	if a, ok := byUrgency[u]; ok {
		return a
	}
	return byUrgency[UrgencyLow]
}

// TicketRisk summarizes one breached or at-risk ticket.
type TicketRisk struct {
	ID                string    `json:"id"`
	Title             string    `json:"title,omitempty"`
	Urgency           Urgency   `json:"urgency"`
	Category          string    `json:"category,omitempty"`
	Class             RiskClass `json:"class"`
	ElapsedHours      float64   `json:"elapsed_hours"`
	TargetHours       float64   `json:"target_hours"`
	RemainingHours    float64   `json:"remaining_hours"`
	BreachProbability float64   `json:"breach_probability"`
	RecommendedAction string    `json:"recommended_action"`
	EscalationNeeded  bool      `json:"escalation_needed"`
}

// SLAResult is the output of PredictSLABreaches.
type SLAResult struct {
	BreachCount          int          `json:"breach_count"`
	AtRiskCount          int          `json:"at_risk_count"`
	OnTrackCount         int          `json:"on_track_count"`
	ClosedCount          int          `json:"closed_count"`
	Breached             []TicketRisk `json:"breached_tickets"`
	AtRisk               []TicketRisk `json:"at_risk_tickets"`
	CompliancePercentage float64      `json:"compliance_percentage"`
	ComplianceSamples    int          `json:"compliance_samples"`
	Recommendations      []string     `json:"recommendations"`
	Insufficient         bool         `json:"insufficient"`
	Message              string       `json:"message,omitempty"`
}

// AssessTicket classifies one open record at now. ok is false when the record
// is not open or has no creation timestamp.
func AssessTicket(r Record, cfg Config, now time.Time) (TicketRisk, bool) {
	if !r.Status.Open() || r.Timestamp == nil {
		return TicketRisk{}, false
	}
	target, effective := cfg.TargetFor(r.Urgency)
	elapsed := now.Sub(*r.Timestamp).Hours()
	remaining := target - elapsed
	class := ClassifyRisk(remaining, target)

	t := TicketRisk{
		ID:                r.ID,
		Title:             r.Title,
		Urgency:           effective,
		Category:          r.category(),
		Class:             class,
		ElapsedHours:      round2(elapsed),
		TargetHours:       target,
		RemainingHours:    round2(remaining),
		RecommendedAction: RecommendedAction(class, effective),
	}
	if class != RiskOnTrack {
		t.BreachProbability = round1(BreachProbability(elapsed, target, effective))
		t.EscalationNeeded = class == RiskBreached &&
			(effective == UrgencyCritical || effective == UrgencyHigh)
	}
	return t, true
}

// Compliance returns the share of closed records resolved within their SLA
// target and the number of records that share is computed over. Closed
// records without a usable resolution time are excluded from both.
func Compliance(records []Record, cfg Config) (percentage float64, samples int) {
	within := 0
	for _, r := range records {
		if !r.Status.Closed() {
			continue
		}
		h, ok := r.resolutionHours()
		if !ok {
			continue
		}
		samples++
		if target, _ := cfg.TargetFor(r.Urgency); h <= target {
			within++
		}
	}
	return pct(within, samples), samples
}

// PredictSLABreaches classifies every open ticket as breached, at risk or on
// track relative to now, and reports historical compliance over closed
// tickets.
func PredictSLABreaches(records []Record, cfg Config, now time.Time) SLAResult {
	res := SLAResult{
		Breached:        []TicketRisk{},
		AtRisk:          []TicketRisk{},
		Recommendations: []string{},
	}
	if len(records) == 0 {
		res.Insufficient = true
		res.Message = "insufficient data for SLA analysis"
		return res
	}

	for _, r := range records {
		if r.Status.Closed() {
			res.ClosedCount++
			continue
		}
		t, ok := AssessTicket(r, cfg, now)
		if !ok {
			continue
		}
		switch t.Class {
		case RiskBreached:
			res.Breached = append(res.Breached, t)
		case RiskAtRisk:
			res.AtRisk = append(res.AtRisk, t)
		default:
			res.OnTrackCount++
		}
	}
	res.BreachCount = len(res.Breached)
	res.AtRiskCount = len(res.AtRisk)

	sort.Slice(res.Breached, func(i, j int) bool {
		a, b := res.Breached[i], res.Breached[j]
		if a.RemainingHours != b.RemainingHours {
			return a.RemainingHours < b.RemainingHours
		}
		return a.ID < b.ID
	})
	sort.Slice(res.AtRisk, func(i, j int) bool {
		a, b := res.AtRisk[i], res.AtRisk[j]
		if a.RemainingHours != b.RemainingHours {
			return a.RemainingHours < b.RemainingHours
		}
		return a.ID < b.ID
	})

	p, n := Compliance(records, cfg)
	res.CompliancePercentage = round1(p)
	res.ComplianceSamples = n
	res.Recommendations = slaRecommendations(res)
	return res
}

func slaRecommendations(res SLAResult) []string {
	out := []string{}
	if res.BreachCount > 0 {
		out = append(out, fmt.Sprintf("%d ticket(s) have breached SLA - immediate action required", res.BreachCount))
	}
	switch {
	case res.AtRiskCount > 5:
		out = append(out, fmt.Sprintf("%d tickets at risk - consider resource reallocation", res.AtRiskCount))
	case res.AtRiskCount > 0:
		out = append(out, fmt.Sprintf("Monitor %d at-risk ticket(s)", res.AtRiskCount))
	}
	if res.BreachCount == 0 && res.AtRiskCount == 0 {
		out = append(out, "All open tickets are on track")
	}
	if res.ComplianceSamples > 0 && res.CompliancePercentage < lowComplianceThreshold {
		out = append(out, fmt.Sprintf("Historical SLA compliance is %.1f%% - review resolution workflow", res.CompliancePercentage))
	}
	return out
}
