package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"sentiboard/internal/models"
	"sentiboard/pkg/logger"
)

const dateLayout = "2006-01-02"

// ClientOptions configures the backend client. Zero values take defaults.
type ClientOptions struct {
	BaseURL     string
	Timeout     time.Duration
	DialTimeout time.Duration
	// RatePerSecond paces outgoing calls; 0 disables pacing.
	RatePerSecond float64
	Burst         int
	// Retries is how many times a 429 response is retried.
	Retries int
	Backoff time.Duration
}

// Client talks to the crawl/analysis backend.
type Client struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	log     *logrus.Entry
	sleep   func(context.Context, time.Duration) error
}

func NewClient(opts ClientOptions, log *logger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("invalid backend url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		// crawling plus model inference routinely takes minutes
		opts.Timeout = 10 * time.Minute
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(1, opts.Burst))
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Client{
		base:    base,
		client:  &http.Client{Transport: newTransport(opts.DialTimeout), Timeout: opts.Timeout},
		limiter: limiter,
		retries: opts.Retries,
		backoff: opts.Backoff,
		log:     log.With("backend"),
		sleep:   sleepCtx,
	}, nil
}

// NormalizeCrawl trims and lower-cases the request and checks it the way the
// search form does: both dates present and ordered, an account of at least
// two characters, and a known platform. Failures are *ValidationError.
func NormalizeCrawl(req models.CrawlRequest) (models.CrawlRequest, error) {
	req.Account = strings.TrimSpace(req.Account)
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)
	req.Platform = models.Platform(strings.ToLower(strings.TrimSpace(string(req.Platform))))

	if req.StartDate == "" || req.EndDate == "" {
		return req, &ValidationError{Field: "period", Reason: "both start and end dates are required"}
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return req, &ValidationError{Field: "start_date", Reason: "want YYYY-MM-DD"}
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return req, &ValidationError{Field: "end_date", Reason: "want YYYY-MM-DD"}
	}
	if end.Before(start) {
		return req, &ValidationError{Field: "period", Reason: "start date is after end date"}
	}
	if utf8.RuneCountInString(req.Account) < 2 {
		return req, &ValidationError{Field: "account", Reason: "at least two characters required"}
	}
	if !req.Platform.Valid() {
		return req, &ValidationError{Field: "platform", Reason: fmt.Sprintf("%q is not one of youtube, instagram, facebook", req.Platform)}
	}
	return req, nil
}

// crawlReply accepts both spellings of the count the backend has used.
type crawlReply struct {
	Message            string         `json:"message"`
	Files              models.FileSet `json:"files"`
	CommentsCount      *int           `json:"comments_count"`
	TotalCommentsCount *int           `json:"total_comments_count"`
}

// Crawl triggers a crawl-and-analyze job and returns the locations of the
// three exports. Nothing is sent when the request fails validation.
func (c *Client) Crawl(ctx context.Context, req models.CrawlRequest) (*models.CrawlResponse, error) {
	req, err := NormalizeCrawl(req)
	if err != nil {
		return nil, err
	}

	var reply crawlReply
	if err := c.post(ctx, "/crawl-and-analyze", req, &reply); err != nil {
		return nil, fmt.Errorf("crawl %s on %s: %w", req.Account, req.Platform, err)
	}
	if reply.Files.Comments == "" && reply.Files.Ratio == "" && reply.Files.Count == "" {
		return nil, fmt.Errorf("crawl %s on %s: response carries no files", req.Account, req.Platform)
	}

	resp := &models.CrawlResponse{Files: reply.Files}
	switch {
	case reply.CommentsCount != nil:
		resp.CommentsCount = *reply.CommentsCount
	case reply.TotalCommentsCount != nil:
		resp.CommentsCount = *reply.TotalCommentsCount
	}
	return resp, nil
}

// FeedbackAck is the backend's answer to a relabel report.
type FeedbackAck struct {
	Status      string `json:"status"`
	CurrentSize int    `json:"current_size,omitempty"`
}

// SubmitFeedback sends one relabel report to the retraining queue.
func (c *Client) SubmitFeedback(ctx context.Context, fb models.Feedback) (*FeedbackAck, error) {
	if strings.TrimSpace(fb.Content) == "" {
		return nil, &ValidationError{Field: "content", Reason: "empty comment"}
	}
	if !fb.Reported.Valid() || !fb.Corrected.Valid() {
		return nil, &ValidationError{Field: "label", Reason: "reported and corrected labels must be positive, neutral or negative"}
	}
	if fb.Reported == fb.Corrected {
		return nil, &ValidationError{Field: "corrected", Reason: "same as reported label"}
	}

	var ack FeedbackAck
	if err := c.post(ctx, "/retrain", fb, &ack); err != nil {
		return nil, fmt.Errorf("submit feedback: %w", err)
	}
	return &ack, nil
}

// post sends body as JSON and decodes the reply into out. A 429 is retried
// with exponential backoff; every attempt waits on the rate limiter first.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := c.base.JoinPath(path).String()
	reqID := uuid.NewString()
	log := c.log.WithFields(logrus.Fields{"request_id": reqID, "endpoint": path})

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		start := time.Now()
		err := c.do(ctx, endpoint, reqID, payload, out)
		if err == nil {
			log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("backend call ok")
			return nil
		}
		lastErr = err

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests || attempt == c.retries {
			break
		}
		delay := c.backoff * time.Duration(1<<attempt)
		log.Warnf("rate limited, retrying in %v (%d/%d)", delay, attempt+1, c.retries)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, endpoint, reqID string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &HTTPError{StatusCode: resp.StatusCode, URL: endpoint, Body: errorDetail(msg)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorDetail pulls "detail" out of a JSON error body, falling back to the
// raw text.
func errorDetail(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	return strings.TrimSpace(string(body))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
