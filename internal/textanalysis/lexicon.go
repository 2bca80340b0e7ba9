package textanalysis

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

var positiveWords = set(
	"good", "great", "excellent", "amazing", "wonderful", "fantastic",
	"helpful", "efficient", "friendly", "professional", "satisfied",
	"happy", "pleased", "appreciate", "thank", "thanks", "love",
	"perfect", "best", "improved", "improvement", "better", "nice",
	"clean", "safe", "beautiful", "convenient", "quick", "fast",
	"responsive", "supportive", "outstanding", "impressive", "positive",
)

var negativeWords = set(
	"bad", "terrible", "awful", "horrible", "poor", "worst",
	"disappointing", "disappointed", "frustrated", "frustrating",
	"slow", "delayed", "broken", "damaged", "unsafe", "dangerous",
	"dirty", "unclean", "rude", "unprofessional", "unhelpful",
	"inefficient", "waste", "problem", "issue", "complaint",
	"failed", "failure", "never", "hate", "angry", "annoyed",
	"unacceptable", "ridiculous", "incompetent", "neglected",
)

var stopWords = set(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to",
	"for", "of", "with", "by", "from", "as", "is", "was", "are",
	"were", "been", "be", "have", "has", "had", "do", "does", "did",
	"will", "would", "could", "should", "may", "might", "must",
	"shall", "can", "need", "dare", "ought", "used", "it", "its",
	"this", "that", "these", "those", "i", "me", "my", "myself",
	"we", "our", "ours", "ourselves", "you", "your", "yours",
	"yourself", "yourselves", "he", "him", "his", "himself", "she",
	"her", "hers", "herself", "they", "them", "their", "theirs",
	"themselves", "what", "which", "who", "whom", "when", "where",
	"why", "how", "all", "each", "every", "both", "few", "more",
	"most", "other", "some", "such", "no", "nor", "not", "only",
	"own", "same", "so", "than", "too", "very", "just", "also",
	"now", "here", "there", "then", "once", "if", "about", "into",
	"through", "during", "before", "after", "above", "below",
	"between", "under", "again", "further", "any", "being", "get",
	"got", "getting", "am", "up", "down", "out", "off", "over",
)

// StopWords returns the keyword stop list, shared with the similarity index.
func StopWords() []string {
	out := make([]string, 0, len(stopWords))
	for w := range stopWords {
		out = append(out, w)
	}
	return out
}

// categoryKeywords is ordered; DetectCategory breaks ties by position.
var categoryKeywords = []struct {
	name  string
	words []string
}{
	{"infrastructure", []string{"road", "bridge", "building", "construction", "repair", "maintenance", "pothole", "sidewalk", "street"}},
	{"transportation", []string{"bus", "train", "traffic", "parking", "transit", "commute", "route", "schedule", "delay"}},
	{"healthcare", []string{"hospital", "clinic", "doctor", "nurse", "medical", "health", "emergency", "appointment", "treatment"}},
	{"education", []string{"school", "teacher", "student", "library", "program", "class", "learning", "curriculum", "education"}},
	{"environment", []string{"park", "tree", "pollution", "recycling", "waste", "green", "clean", "nature", "sustainability"}},
	{"safety", []string{"police", "fire", "emergency", "crime", "security", "safe", "patrol", "response", "protection"}},
	{"services", []string{"permit", "license", "office", "staff", "service", "wait", "process", "application", "document"}},
}

var (
	urgencyWords      = []string{"urgent", "emergency", "immediate", "critical", "dangerous", "asap", "now"}
	timePressureWords = []string{"today", "tomorrow", "deadline", "hurry", "quickly"}
	safetyWords       = []string{"unsafe", "hazard", "risk", "danger", "injury", "accident"}
)
