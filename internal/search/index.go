// Package search provides a small, deterministic, concurrency-safe in-memory
// similarity index over feedback documents.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Immutable after construction (safe for concurrent use)
//   - Deterministic scoring and ordering (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultK is used when TopK or Similar receive k <= 0.
const DefaultK = 5

// Doc is one indexed feedback item.
type Doc struct {
	ID   string
	Text string
}

// Result is a ranked document with its similarity score.
type Result struct {
	ID      string  `json:"id"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Index is the read-only query surface.
type Index interface {
	TopK(query string, k int) []Result
	Similar(id string, k int) []Result
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minRunes  int
	stopwords map[string]struct{}
	maxDocs   int
}

func defaultConfig() config {
	return config{
		minRunes:  1,
		stopwords: nil,
		maxDocs:   0,
	}
}

// WithMinRunes skips documents shorter than n runes after whitespace
// normalization.
func WithMinRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minRunes = n
		}
	}
}

func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     string
	text   string
	tokens map[string]struct{}
	runes  int
}

type index struct {
	cfg  config
	docs []doc
	byID map[string]int
}

// NewIndex builds an Index from docs. Empty and too-short documents, and
// documents with no tokens after stop-word removal, are skipped.
func NewIndex(docs []Doc, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	idx := &index{cfg: cfg, docs: make([]doc, 0, len(docs)), byID: make(map[string]int, len(docs))}
	for _, d := range docs {
		t := strings.TrimSpace(normalizeWhitespace(d.Text))
		if t == "" {
			continue
		}
		n := utf8.RuneCountInString(t)
		if cfg.minRunes > 0 && n < cfg.minRunes {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		idx.byID[d.ID] = len(idx.docs)
		idx.docs = append(idx.docs, doc{id: d.ID, text: t, tokens: toks, runes: n})
		if cfg.maxDocs > 0 && len(idx.docs) >= cfg.maxDocs {
			break
		}
	}
	return idx
}

// TopK returns up to k documents ranked by Jaccard similarity to q.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	return i.rank(qTokens, "", k)
}

// Similar ranks every other indexed document against the document with the
// given ID. An unknown ID yields nil.
func (i *index) Similar(id string, k int) []Result {
	pos, ok := i.byID[id]
	if !ok {
		return nil
	}
	return i.rank(i.docs[pos].tokens, id, k)
}

func (i *index) rank(q map[string]struct{}, exclude string, k int) []Result {
	if k <= 0 {
		k = DefaultK
	}
	type scored struct {
		d     *doc
		score float64
	}
	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for n := range i.docs {
		d := &i.docs[n]
		if exclude != "" && d.id == exclude {
			continue
		}
		over := overlap(q, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(q) + len(d.tokens) - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, scored{d: d, score: float64(over) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].d.runes != buf[b].d.runes {
			return buf[a].d.runes < buf[b].d.runes
		}
		return buf[a].d.id < buf[b].d.id
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{ID: buf[n].d.id, Snippet: buf[n].d.text, Score: buf[n].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
