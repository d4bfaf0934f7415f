package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"sentiboard/internal/classifier"
	"sentiboard/internal/crawler"
	"sentiboard/internal/ioformats"
	"sentiboard/internal/models"
	"sentiboard/internal/ranking"
	"sentiboard/internal/series"
)

// Source names one independently fetched input.
type Source string

const (
	SourceComments Source = "comments"
	SourceRatio    Source = "ratio"
	SourceCount    Source = "count"
	SourceCrawl    Source = "crawl"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	// StatusEmpty is a successful fetch that produced no rows.
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	}
	return "idle"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SourceState is what the dashboard shows about one source.
type SourceState struct {
	Status     Status           `json:"status"`
	Err        error            `json:"-"`
	Location   string           `json:"location,omitempty"`
	Rows       int              `json:"rows"`
	Skipped    []ioformats.Skip `json:"skipped,omitempty"`
	Generation uint64           `json:"generation"`
}

// View is a consistent snapshot of everything the dashboard renders.
type View struct {
	Filter     models.FilterState     `json:"filter"`
	Visible    models.VisibleSlice    `json:"visible"`
	Rankings   [3]ranking.Ranking     `json:"rankings"`
	CloudLabel models.Sentiment       `json:"cloudLabel"`
	Ratio      models.RatioSlice      `json:"ratio"`
	Series     []models.Series        `json:"series"`
	Counts     [3]int                 `json:"bucketSizes"`
	Unknown    int                    `json:"unknown"`
	Sources    map[Source]SourceState `json:"sources"`
	Mismatches []series.Mismatch      `json:"mismatches,omitempty"`
}

// Toggle flips label in the comment filter. It returns false when the
// change was refused because label is the only selected sentiment.
func (s *Session) Toggle(label models.Sentiment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Toggle(label)
}

// Select replaces the selection with labels, in order, through Toggle, so
// the never-empty rule holds. An empty list keeps the current selection.
func (s *Session) Select(labels ...models.Sentiment) models.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := models.SelectionOf(labels...)
	if want.Len() == 0 {
		return s.filter.State().Selected
	}
	// add first so removing never empties the set
	for _, l := range models.Sentiments {
		if want.Has(l) && !s.filter.State().Selected.Has(l) {
			s.filter.Toggle(l)
		}
	}
	for _, l := range models.Sentiments {
		if !want.Has(l) && s.filter.State().Selected.Has(l) {
			s.filter.Toggle(l)
		}
	}
	return s.filter.State().Selected
}

func (s *Session) SetPage(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.SetPage(n, s.records)
}

func (s *Session) NextPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Next(s.records)
}

func (s *Session) PrevPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Prev(s.records)
}

func (s *Session) Filter() models.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.State()
}

func (s *Session) Visible() models.VisibleSlice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Visible(s.records)
}

// Records returns the comment sequence after the unknown-code policy.
func (s *Session) Records() []models.CommentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CommentRecord(nil), s.records...)
}

func (s *Session) Buckets() models.SentimentBuckets {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buckets
}

// Keywords returns the ranking for label's bucket.
func (s *Session) Keywords(label models.Sentiment) (ranking.Ranking, error) {
	if !label.Valid() {
		return ranking.Ranking{}, fmt.Errorf("no bucket for %s", label)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rankings[label], nil
}

// SelectCloud switches the word cloud to label.
func (s *Session) SelectCloud(label models.Sentiment) error {
	if !label.Valid() {
		return fmt.Errorf("no bucket for %s", label)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cloud = label
	return nil
}

func (s *Session) Cloud() ranking.Ranking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rankings[s.cloud]
}

// RenderCloud hands the selected bucket's weights to sink. Buckets without
// data render nothing.
func (s *Session) RenderCloud(ctx context.Context, sink ranking.Sink, region models.Region) error {
	r := s.Cloud()
	if region.Name == "" {
		region.Name = r.Label.String()
	}
	return ranking.RenderCloud(ctx, sink, r, region)
}

func (s *Session) Ratio() models.RatioSlice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratio
}

func (s *Session) Series() []models.Series {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.series
}

func (s *Session) State(src Source) SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[src]; ok {
		return sl.state
	}
	return SourceState{}
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources := make(map[Source]SourceState, len(s.slots))
	for src, sl := range s.slots {
		sources[src] = sl.state
	}
	return View{
		Filter:     s.filter.State(),
		Visible:    s.filter.Visible(s.records),
		Rankings:   s.rankings,
		CloudLabel: s.cloud,
		Ratio:      s.ratio,
		Series:     s.series,
		Counts:     classifier.Counts(s.buckets),
		Unknown:    s.unknown,
		Sources:    sources,
		Mismatches: append([]series.Mismatch(nil), s.mismatches...),
	}
}

func crawlStatus(err error) string {
	var ve *crawler.ValidationError
	var he *crawler.HTTPError
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &he) && he.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	}
	return "error"
}
