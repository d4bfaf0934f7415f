// Package ranking turns a bucket's text into keyword rankings and
// word-cloud weight lists.
package ranking

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"sentiboard/internal/models"
)

const (
	DefaultTopK          = 5
	DefaultPerOccurrence = 10
	DefaultMaxWeight     = 100
)

// Sink is the external word-cloud layout. It receives the weight list and
// the region to draw into; its placement algorithm is not our concern.
type Sink interface {
	Render(ctx context.Context, words []models.WeightedWord, region models.Region) error
}

// Tokenize splits text on runs of whitespace and drops tokens of one
// character or less. Case is preserved.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// WordCount maps tokens to occurrence counts and remembers the order in
// which tokens were first seen.
type WordCount struct {
	order  []string
	counts map[string]int
}

// Count tokenizes text and counts every token.
func Count(text string) *WordCount {
	wc := &WordCount{counts: map[string]int{}}
	for _, tok := range Tokenize(text) {
		if _, seen := wc.counts[tok]; !seen {
			wc.order = append(wc.order, tok)
		}
		wc.counts[tok]++
	}
	return wc
}

func (wc *WordCount) Get(word string) int { return wc.counts[word] }

func (wc *WordCount) Len() int { return len(wc.order) }

// Map returns a copy of the counts.
func (wc *WordCount) Map() map[string]int {
	m := make(map[string]int, len(wc.counts))
	for k, v := range wc.counts {
		m[k] = v
	}
	return m
}

// Entries lists every token in first-seen order.
func (wc *WordCount) Entries() []models.RankedKeyword {
	out := make([]models.RankedKeyword, len(wc.order))
	for i, w := range wc.order {
		out[i] = models.RankedKeyword{Word: w, Count: wc.counts[w]}
	}
	return out
}

// Top returns the k most frequent tokens. Equal counts keep first-seen order.
func (wc *WordCount) Top(k int) []models.RankedKeyword {
	entries := wc.Entries()
	slices.SortStableFunc(entries, func(a, b models.RankedKeyword) int {
		return b.Count - a.Count
	})
	if k >= 0 && k < len(entries) {
		entries = entries[:k]
	}
	return entries
}

// CloudWeights converts every count to min(count*perOccurrence, max), in
// first-seen order.
func (wc *WordCount) CloudWeights(perOccurrence, max int) []models.WeightedWord {
	out := make([]models.WeightedWord, len(wc.order))
	for i, w := range wc.order {
		out[i] = models.WeightedWord{Text: w, Weight: min(wc.counts[w]*perOccurrence, max)}
	}
	return out
}

// Options tunes an Engine. Zero fields take the defaults.
type Options struct {
	TopK          int
	PerOccurrence int
	MaxWeight     int
}

// Ranking is what the rank panel and the word cloud consume for one bucket.
type Ranking struct {
	Label    models.Sentiment      `json:"label"`
	Keywords []models.RankedKeyword `json:"keywords"`
	Cloud    []models.WeightedWord  `json:"cloud"`
	NoData   bool                  `json:"noData"`
}

type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.PerOccurrence <= 0 {
		opts.PerOccurrence = DefaultPerOccurrence
	}
	if opts.MaxWeight <= 0 {
		opts.MaxWeight = DefaultMaxWeight
	}
	return &Engine{opts: opts}
}

// Rank builds the ranking for one bucket. Text without any countable token
// yields NoData rather than an error.
func (e *Engine) Rank(bucket models.Bucket) Ranking {
	wc := Count(bucket.Text)
	if wc.Len() == 0 {
		return Ranking{
			Label:    bucket.Label,
			Keywords: []models.RankedKeyword{},
			Cloud:    []models.WeightedWord{},
			NoData:   true,
		}
	}
	return Ranking{
		Label:    bucket.Label,
		Keywords: wc.Top(e.opts.TopK),
		Cloud:    wc.CloudWeights(e.opts.PerOccurrence, e.opts.MaxWeight),
	}
}

// RenderCloud hands r's weight list to sink. Rankings without data are not
// rendered.
func RenderCloud(ctx context.Context, sink Sink, r Ranking, region models.Region) error {
	if r.NoData {
		return nil
	}
	return sink.Render(ctx, r.Cloud, region)
}
