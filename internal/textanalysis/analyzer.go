// Package textanalysis provides rule-based enrichment for citizen feedback
// text: lexicon sentiment, keyword extraction, a one-line summary, category
// detection and urgency indicators.
//
// Everything here is deterministic and allocation-light. There is no model
// and no I/O; the lexicons are fixed tables compiled into the binary.
package textanalysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// FallbackKeyword is returned when no keyword survives filtering.
	FallbackKeyword = "general feedback"

	// GeneralCategory is returned by DetectCategory when nothing matches.
	GeneralCategory = "General"

	sentimentThreshold = 0.2
	minKeywordRunes    = 3
	maxSummaryRunes    = 150
)

// Sentiment labels produced by Analyze.
const (
	Positive = "Positive"
	Neutral  = "Neutral"
	Negative = "Negative"
)

var summaryPrefix = map[string]string{
	Positive: "Positive feedback: ",
	Negative: "Concern raised: ",
	Neutral:  "General feedback: ",
}

// Result is the enrichment attached to a submission.
type Result struct {
	Sentiment string   `json:"sentiment"`
	Score     float64  `json:"sentiment_score"`
	Keywords  []string `json:"keywords"`
	Summary   string   `json:"summary"`
}

// Indicators flags urgency cues found in free text.
type Indicators struct {
	UrgencyWords   bool `json:"has_urgency_words"`
	TimePressure   bool `json:"has_time_pressure"`
	SafetyConcerns bool `json:"has_safety_concerns"`
}

// Any reports whether any indicator fired.
func (i Indicators) Any() bool { return i.UrgencyWords || i.TimePressure || i.SafetyConcerns }

// Analyzer holds the tunables; the zero value is usable.
type Analyzer struct {
	// MaxKeywords caps Result.Keywords (default 5).
	MaxKeywords int
	// Locale drives category title-casing (default English).
	Locale language.Tag
}

// Analyze scores sentiment, extracts keywords and builds a summary.
func (a Analyzer) Analyze(text string) Result {
	words := tokenize(text)
	label, score := sentiment(words)
	return Result{
		Sentiment: label,
		Score:     score,
		Keywords:  a.keywords(words),
		Summary:   summarize(text, label),
	}
}

// DetectCategory returns the title-cased name of the category whose keyword
// list has the most substring hits in text. Earlier categories win ties.
func (a Analyzer) DetectCategory(text string) string {
	lower := strings.ToLower(text)
	best, bestHits := "", 0
	for _, c := range categoryKeywords {
		hits := 0
		for _, kw := range c.words {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = c.name, hits
		}
	}
	if best == "" {
		return GeneralCategory
	}
	return cases.Title(a.locale()).String(best)
}

// UrgencyIndicators reports substring matches against the urgency, time
// pressure and safety lexicons.
func (a Analyzer) UrgencyIndicators(text string) Indicators {
	lower := strings.ToLower(text)
	return Indicators{
		UrgencyWords:   containsAny(lower, urgencyWords),
		TimePressure:   containsAny(lower, timePressureWords),
		SafetyConcerns: containsAny(lower, safetyWords),
	}
}

// SuggestUrgency keeps a caller-supplied urgency and otherwise proposes
// "High" when the text carries urgency or safety cues, "" when it does not.
func (a Analyzer) SuggestUrgency(current, text string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	ind := a.UrgencyIndicators(text)
	if ind.UrgencyWords || ind.SafetyConcerns {
		return "High"
	}
	return ""
}

func (a Analyzer) locale() language.Tag {
	if a.Locale == language.Und {
		return language.English
	}
	return a.Locale
}

var nonLetterRE = regexp.MustCompile(`[^a-zA-Z\s]+`)

// tokenize lowercases, replaces everything but ASCII letters and whitespace
// with spaces, and splits on whitespace.
func tokenize(text string) []string {
	return strings.Fields(nonLetterRE.ReplaceAllString(strings.ToLower(text), " "))
}

// sentiment returns the label and the score normalized to 0..1. Text with no
// lexicon hits is Neutral at the 0.5 midpoint.
func sentiment(words []string) (string, float64) {
	pos, neg := 0, 0
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return Neutral, 0.5
	}
	raw := float64(pos-neg) / float64(pos+neg)
	label := Neutral
	switch {
	case raw > sentimentThreshold:
		label = Positive
	case raw < -sentimentThreshold:
		label = Negative
	}
	return label, (raw + 1) / 2
}

func (a Analyzer) keywords(words []string) []string {
	limit := a.MaxKeywords
	if limit <= 0 {
		limit = 5
	}
	counts := map[string]int{}
	first := map[string]int{}
	for i, w := range words {
		if utf8.RuneCountInString(w) < minKeywordRunes {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, seen := first[w]; !seen {
			first[w] = i
		}
		counts[w]++
	}
	if len(counts) == 0 {
		return []string{FallbackKeyword}
	}
	out := make([]string, 0, len(counts))
	for w := range counts {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return first[out[i]] < first[out[j]]
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// summarize keeps the first sentence, clipped to maxSummaryRunes, behind a
// sentiment prefix.
func summarize(text, label string) string {
	first := strings.TrimSpace(strings.SplitN(text, ".", 2)[0])
	if utf8.RuneCountInString(first) > maxSummaryRunes {
		first = string([]rune(first)[:maxSummaryRunes-3]) + "..."
	}
	return summaryPrefix[label] + first
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
