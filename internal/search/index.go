// Package search ranks free-text survey answers against a query. The index
// is built once per request from a survey's responses, is read-only after
// construction and therefore safe for concurrent use.
//
// Scoring uses Jaccard similarity between the query token set and each
// answer's token set: score = |Q ∩ A| / |Q ∪ A|. Tokens are lower-cased and
// stripped of diacritics, so "Café" matches "cafe".
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// Document is one searchable text answer.
type Document struct {
	ResponseID string
	QuestionID string
	Text       string
}

// Result is a ranked answer with its similarity score.
type Result struct {
	ResponseID string  `json:"responseId"`
	QuestionID string  `json:"questionId"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
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

// WithMinRunes drops answers shorter than n runes.
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
			w = fold(strings.TrimSpace(w))
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
	src    Document
	tokens map[string]struct{}
	tLen   int
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over docs.
func NewIndex(docs []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return buildIndex(docs, cfg)
}

// NewIndexFromStrings builds an Index over bare strings, mostly for tests and
// ad-hoc corpora.
func NewIndexFromStrings(texts []string, opts ...Option) Index {
	docs := make([]Document, 0, len(texts))
	for _, t := range texts {
		docs = append(docs, Document{Text: t})
	}
	return NewIndex(docs, opts...)
}

// DocumentsFromResponses collects the non-empty answers to the survey's
// short_text and long_text questions, in response order.
func DocumentsFromResponses(survey *domain.Survey, responses []domain.Response) []Document {
	textQs := make(map[string]struct{})
	for _, q := range survey.Questions {
		if q.Type.IsText() {
			textQs[q.ID] = struct{}{}
		}
	}
	var out []Document
	for _, r := range responses {
		for _, a := range r.Answers {
			if _, ok := textQs[a.QuestionID]; !ok {
				continue
			}
			s, ok := a.Value.Text()
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, Document{ResponseID: r.ID, QuestionID: a.QuestionID, Text: s})
		}
	}
	return out
}

func buildIndex(in []Document, cfg config) *index {
	docs := make([]doc, 0, len(in))
	for _, d := range in {
		t := strings.TrimSpace(normalizeWhitespace(d.Text))
		if t == "" {
			continue
		}
		if cfg.minRunes > 0 && utf8.RuneCountInString(t) < cfg.minRunes {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		d.Text = t
		docs = append(docs, doc{src: d, tokens: toks, tLen: len(toks)})
		if cfg.maxDocs > 0 && len(docs) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching answers by Jaccard similarity.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 {
		return nil
	}
	if strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		src      Document
		score    float64
		lenRunes int
	}

	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + d.tLen - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, scored{
			src:      d.src,
			score:    float64(over) / union,
			lenRunes: utf8.RuneCountInString(d.src.Text),
		})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].lenRunes != buf[b].lenRunes {
			return buf[a].lenRunes < buf[b].lenRunes
		}
		return buf[a].src.Text < buf[b].src.Text
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for j := 0; j < k; j++ {
		out[j] = Result{
			ResponseID: buf[j].src.ResponseID,
			QuestionID: buf[j].src.QuestionID,
			Snippet:    buf[j].src.Text,
			Score:      buf[j].score,
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

// fold lower-cases s and removes combining marks.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(fold(s), -1)
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
