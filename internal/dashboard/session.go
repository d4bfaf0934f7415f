// Package dashboard owns the state of one dashboard: the parsed exports,
// the derived views, and the in-flight fetches feeding them.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sentiboard/internal/classifier"
	"sentiboard/internal/filter"
	"sentiboard/internal/ioformats"
	"sentiboard/internal/metrics"
	"sentiboard/internal/models"
	"sentiboard/internal/ranking"
	"sentiboard/internal/series"
	"sentiboard/pkg/logger"
)

var (
	// ErrSuperseded is returned by a fetch whose result was discarded
	// because a newer fetch of the same source started after it.
	ErrSuperseded = errors.New("superseded by a newer fetch")
	ErrClosed     = errors.New("session closed")
	ErrNoBackend  = errors.New("no crawl backend configured")
)

// Fetcher opens a CSV location. *crawler.HTTPClient implements it.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (io.ReadCloser, string, time.Duration, error)
}

// Crawler triggers a backend crawl. *crawler.Client implements it.
type Crawler interface {
	Crawl(ctx context.Context, req models.CrawlRequest) (*models.CrawlResponse, error)
}

// Resolver maps the locations a crawl returns to fetchable ones.
type Resolver interface {
	ResolveFiles(models.FileSet) (models.FileSet, error)
}

type Options struct {
	Parse        ioformats.Options
	Policy       classifier.UnknownPolicy
	PageSize     int
	Ranking      ranking.Options
	CloudLabel   models.Sentiment
	FetchTimeout time.Duration
	// Resolver is applied to crawl results; nil uses them as returned.
	Resolver Resolver
}

type slot struct {
	gen    uint64
	cancel context.CancelFunc
	state  SourceState
}

type Session struct {
	fetcher Fetcher
	crawler Crawler
	opts    Options
	log     *logrus.Entry
	metrics *metrics.Metrics

	classifier *classifier.Classifier
	ranker     *ranking.Engine

	mu         sync.Mutex
	closed     bool
	slots      map[Source]*slot
	filter     *filter.Engine
	records    []models.CommentRecord
	buckets    models.SentimentBuckets
	rankings   [3]ranking.Ranking
	unknown    int
	ratio      models.RatioSlice
	counts     []models.CountRow
	series     []models.Series
	cloud      models.Sentiment
	mismatches []series.Mismatch
}

// New builds an empty session. crawler may be nil when only local exports
// are loaded; log and m may be nil.
func New(fetcher Fetcher, crawler Crawler, opts Options, log *logger.Logger, m *metrics.Metrics) *Session {
	if log == nil {
		log = logger.Discard()
	}
	if m == nil {
		m = metrics.New()
	}
	if !opts.CloudLabel.Valid() {
		opts.CloudLabel = models.Positive
	}

	s := &Session{
		fetcher:    fetcher,
		crawler:    crawler,
		opts:       opts,
		log:        log.With("dashboard"),
		metrics:    m,
		classifier: classifier.New(opts.Policy),
		ranker:     ranking.New(opts.Ranking),
		slots:      map[Source]*slot{},
		filter:     filter.NewEngine(opts.PageSize),
		ratio:      series.Ratio(nil),
		series:     series.Project(nil),
		cloud:      opts.CloudLabel,
	}
	for _, src := range []Source{SourceComments, SourceRatio, SourceCount, SourceCrawl} {
		s.slots[src] = &slot{}
	}
	s.setBuckets(nil)
	return s
}

// begin starts a new generation for src and cancels the previous one.
func (s *Session) begin(parent context.Context, src Source, location string) (context.Context, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, ErrClosed
	}

	sl := s.slots[src]
	if sl.cancel != nil {
		sl.cancel()
	}
	sl.gen++

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.opts.FetchTimeout > 0 && src != SourceCrawl {
		ctx, cancel = context.WithTimeout(parent, s.opts.FetchTimeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	sl.cancel = cancel
	sl.state = SourceState{Status: StatusLoading, Location: location, Generation: sl.gen}
	return ctx, sl.gen, nil
}

// finish runs apply under the lock if gen is still current for src. A
// stale generation is discarded with ErrSuperseded; a failed fetch marks
// the source failed and runs clear instead.
func (s *Session) finish(src Source, gen uint64, fetchErr error, apply func() (rows int), clear func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.slots[src]
	if sl.gen != gen {
		s.metrics.Superseded.WithLabelValues(string(src)).Inc()
		s.metrics.Fetches.WithLabelValues(string(src), "superseded").Inc()
		s.log.WithFields(logrus.Fields{"source": src, "generation": gen, "current": sl.gen}).Debug("discarding stale response")
		return fmt.Errorf("%s: %w", src, ErrSuperseded)
	}
	sl.cancel()
	sl.cancel = nil

	if fetchErr != nil {
		sl.state.Status = StatusFailed
		sl.state.Err = fetchErr
		if clear != nil {
			clear()
		}
		s.metrics.Fetches.WithLabelValues(string(src), "error").Inc()
		s.log.WithField("source", src).Errorf("fetch failed: %v", fetchErr)
		return fmt.Errorf("%s: %w", src, fetchErr)
	}

	rows := apply()
	sl.state.Rows = rows
	sl.state.Status = StatusReady
	if rows == 0 {
		sl.state.Status = StatusEmpty
	}
	s.metrics.Fetches.WithLabelValues(string(src), "ok").Inc()
	return nil
}

// fetchParse opens location and parses it with parse, within a fresh
// generation of src.
func fetchParse[T any](ctx context.Context, s *Session, src Source, location string,
	parse func(io.Reader, ioformats.Options) (*ioformats.Result[T], error),
) (*ioformats.Result[T], uint64, error) {
	ctx, gen, err := s.begin(ctx, src, location)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	defer func() {
		s.metrics.FetchDuration.WithLabelValues(string(src)).Observe(time.Since(start).Seconds())
	}()

	body, final, _, err := s.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, gen, err
	}
	defer body.Close()

	res, err := parse(body, s.opts.Parse)
	if err != nil {
		return nil, gen, err
	}
	if res.EncodingGuessed {
		s.log.WithFields(logrus.Fields{"source": src, "file": final, "encoding": res.Encoding}).
			Warn("file is not UTF-8 and its encoding was guessed; set csv.encoding if text looks garbled")
	}
	// a cancelled read can still hand back a clean prefix
	if err := ctx.Err(); err != nil {
		return nil, gen, err
	}

	s.metrics.RowsParsed.WithLabelValues(string(src)).Add(float64(len(res.Records)))
	s.metrics.RowsSkipped.WithLabelValues(string(src)).Add(float64(len(res.Skipped)))
	for _, sk := range res.Skipped {
		s.log.WithFields(logrus.Fields{"source": src, "file": final, "line": sk.Line}).Debugf("row skipped: %s", sk.Reason)
	}
	return res, gen, nil
}

// Load fetches every non-empty location of files concurrently and replaces
// the matching views. A failing source does not affect the others; the
// returned error joins every source error.
func (s *Session) Load(ctx context.Context, files models.FileSet) error {
	var (
		g    errgroup.Group
		errs [3]error
	)
	// sources fail independently: Wait would keep only the first error, so
	// each closure records its own and returns nil
	if files.Comments != "" {
		g.Go(func() error { errs[0] = s.LoadComments(ctx, files.Comments); return nil })
	}
	if files.Ratio != "" {
		g.Go(func() error { errs[1] = s.LoadRatio(ctx, files.Ratio); return nil })
	}
	if files.Count != "" {
		g.Go(func() error { errs[2] = s.LoadCounts(ctx, files.Count); return nil })
	}
	_ = g.Wait()

	s.reconcile()
	return errors.Join(errs[:]...)
}

func (s *Session) LoadComments(ctx context.Context, location string) error {
	res, gen, err := fetchParse(ctx, s, SourceComments, location, ioformats.ParseComments)
	if errors.Is(err, ErrClosed) {
		return err
	}
	apply := func() int {
		resolved, unknown := s.classifier.Resolve(res.Records)
		s.records = resolved
		s.unknown = unknown
		s.setBuckets(resolved)
		s.filter.Reset()
		s.slots[SourceComments].state.Skipped = res.Skipped
		s.metrics.Unknown.Add(float64(unknown))
		if unknown > 0 {
			s.log.WithField("policy", s.classifier.Policy()).Infof("%d comments carry an unknown sentiment code", unknown)
		}
		return len(resolved)
	}
	clear := func() {
		s.records = nil
		s.unknown = 0
		s.setBuckets(nil)
		s.filter.Reset()
	}
	return s.finish(SourceComments, gen, err, apply, clear)
}

func (s *Session) LoadRatio(ctx context.Context, location string) error {
	res, gen, err := fetchParse(ctx, s, SourceRatio, location, ioformats.ParseRatio)
	if errors.Is(err, ErrClosed) {
		return err
	}
	apply := func() int {
		s.ratio = series.Ratio(res.Records)
		s.slots[SourceRatio].state.Skipped = res.Skipped
		return len(res.Records)
	}
	clear := func() { s.ratio = series.Ratio(nil) }
	return s.finish(SourceRatio, gen, err, apply, clear)
}

func (s *Session) LoadCounts(ctx context.Context, location string) error {
	res, gen, err := fetchParse(ctx, s, SourceCount, location, ioformats.ParseCounts)
	if errors.Is(err, ErrClosed) {
		return err
	}
	apply := func() int {
		s.counts = res.Records
		s.series = series.Project(res.Records)
		s.slots[SourceCount].state.Skipped = res.Skipped
		return len(res.Records)
	}
	clear := func() {
		s.counts = nil
		s.series = series.Project(nil)
	}
	return s.finish(SourceCount, gen, err, apply, clear)
}

// Search triggers a crawl and loads the files it returns. A failed or
// superseded crawl leaves the current dashboard untouched.
func (s *Session) Search(ctx context.Context, req models.CrawlRequest) (*models.CrawlResponse, error) {
	if s.crawler == nil {
		return nil, ErrNoBackend
	}
	cctx, gen, err := s.begin(ctx, SourceCrawl, req.Account)
	if err != nil {
		return nil, err
	}

	resp, err := s.crawler.Crawl(cctx, req)
	status := "ok"
	if err != nil {
		status = crawlStatus(err)
	}
	if ferr := s.finish(SourceCrawl, gen, err, func() int { return resp.CommentsCount }, nil); ferr != nil {
		if errors.Is(ferr, ErrSuperseded) {
			status = "superseded"
		}
		s.metrics.CrawlRequests.WithLabelValues(status).Inc()
		return nil, ferr
	}
	s.metrics.CrawlRequests.WithLabelValues(status).Inc()

	files := resp.Files
	if s.opts.Resolver != nil {
		if files, err = s.opts.Resolver.ResolveFiles(resp.Files); err != nil {
			return resp, fmt.Errorf("resolve crawl files: %w", err)
		}
	}
	s.log.WithFields(logrus.Fields{"account": req.Account, "comments": resp.CommentsCount}).Info("crawl finished, loading exports")
	return resp, s.Load(ctx, files)
}

// Close cancels every in-flight fetch. Later loads fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, sl := range s.slots {
		if sl.cancel != nil {
			sl.cancel()
		}
	}
}

func (s *Session) setBuckets(records []models.CommentRecord) {
	s.buckets = s.classifier.Bucketize(records)
	for i, label := range models.Sentiments {
		s.rankings[i] = s.ranker.Rank(s.buckets.Get(label))
	}
}

// reconcile compares the three exports once all of them are loaded.
func (s *Session) reconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mismatches = nil
	for _, src := range []Source{SourceComments, SourceRatio, SourceCount} {
		if st := s.slots[src].state.Status; st != StatusReady && st != StatusEmpty {
			return
		}
	}
	s.mismatches = series.Reconcile(classifier.Counts(s.buckets), s.counts, s.ratio)
	for _, m := range s.mismatches {
		s.metrics.Mismatches.WithLabelValues(m.Source).Inc()
		s.log.Warnf("exports disagree: %s", m)
	}
}
