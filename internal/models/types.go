package models

import (
	"fmt"
	"strings"
)

// Sentiment is the label derived from the backend's integer code.
type Sentiment int

const (
	Positive Sentiment = iota
	Neutral
	Negative
	Unknown
)

// Sentiments lists the three known labels in display order.
var Sentiments = [...]Sentiment{Positive, Neutral, Negative}

// SentimentFromCode maps 0, 1, 2 to Positive, Neutral, Negative. Any other
// code yields Unknown and false.
func SentimentFromCode(code int) (Sentiment, bool) {
	switch code {
	case 0:
		return Positive, true
	case 1:
		return Neutral, true
	case 2:
		return Negative, true
	}
	return Unknown, false
}

// Valid reports whether s is one of the three known labels.
func (s Sentiment) Valid() bool { return s >= Positive && s <= Negative }

func (s Sentiment) String() string {
	switch s {
	case Positive:
		return "Positive"
	case Neutral:
		return "Neutral"
	case Negative:
		return "Negative"
	}
	return "Unknown"
}

// ParseSentiment accepts a label name (any case) or its numeric code.
func ParseSentiment(v string) (Sentiment, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "positive", "pos", "0":
		return Positive, nil
	case "neutral", "neu", "1":
		return Neutral, nil
	case "negative", "neg", "2":
		return Negative, nil
	}
	return Unknown, fmt.Errorf("unknown sentiment %q", v)
}

func (s Sentiment) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Sentiment) UnmarshalText(b []byte) error {
	v, err := ParseSentiment(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// CommentRecord is one well-formed row of comments.csv.
type CommentRecord struct {
	Line      int       `json:"line"`
	Date      string    `json:"date"`
	Content   string    `json:"content"`
	Link      string    `json:"link"`
	Code      int       `json:"code"`
	Sentiment Sentiment `json:"sentiment"`
}

// Bucket is the subset of records sharing one label, plus their joined text.
type Bucket struct {
	Label   Sentiment       `json:"label"`
	Records []CommentRecord `json:"records"`
	Text    string          `json:"-"`
}

// SentimentBuckets partitions a record sequence by label.
type SentimentBuckets struct {
	Positive Bucket `json:"positive"`
	Neutral  Bucket `json:"neutral"`
	Negative Bucket `json:"negative"`
}

// Get returns the bucket for label. Unknown yields an empty bucket.
func (b SentimentBuckets) Get(label Sentiment) Bucket {
	switch label {
	case Positive:
		return b.Positive
	case Neutral:
		return b.Neutral
	case Negative:
		return b.Negative
	}
	return Bucket{Label: label}
}

// Total is the number of records across all three buckets.
func (b SentimentBuckets) Total() int {
	return len(b.Positive.Records) + len(b.Neutral.Records) + len(b.Negative.Records)
}

type RankedKeyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WeightedWord is one entry of the list handed to the word-cloud layout.
type WeightedWord struct {
	Text   string `json:"text"`
	Weight int    `json:"size"`
}

// Region is the target area of a word-cloud layout.
type Region struct {
	Name   string `json:"name"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Selection is a set of sentiments stored as a bitmask.
type Selection uint8

// AllSelected contains Positive, Neutral and Negative.
const AllSelected Selection = 1<<Positive | 1<<Neutral | 1<<Negative

func SelectionOf(labels ...Sentiment) Selection {
	var s Selection
	for _, l := range labels {
		s = s.With(l)
	}
	return s
}

func (s Selection) Has(l Sentiment) bool {
	return l.Valid() && s&(1<<l) != 0
}

func (s Selection) With(l Sentiment) Selection {
	if !l.Valid() {
		return s
	}
	return s | 1<<l
}

func (s Selection) Without(l Sentiment) Selection {
	if !l.Valid() {
		return s
	}
	return s &^ (1 << l)
}

func (s Selection) Len() int {
	n := 0
	for _, l := range Sentiments {
		if s.Has(l) {
			n++
		}
	}
	return n
}

// Labels returns the members in display order.
func (s Selection) Labels() []Sentiment {
	out := make([]Sentiment, 0, 3)
	for _, l := range Sentiments {
		if s.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

func (s Selection) String() string {
	parts := make([]string, 0, 3)
	for _, l := range s.Labels() {
		parts = append(parts, l.String())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// FilterState is the comment table's selection and page. Selected is never
// empty and Page is at least 1.
type FilterState struct {
	Selected Selection `json:"selected"`
	Page     int       `json:"page"`
}

// VisibleSlice is the page of filtered comments currently shown.
type VisibleSlice struct {
	Items      []CommentRecord `json:"items"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	TotalItems int             `json:"totalItems"`
}

type RatioEntry struct {
	Label Sentiment `json:"label"`
	Value float64   `json:"value"`
}

// RatioSlice holds the Positive, Neutral and Negative percentages in order.
type RatioSlice [3]RatioEntry

// CountRow is one row of count.csv.
type CountRow struct {
	Line     int    `json:"line"`
	Date     string `json:"date"`
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
}

type Point struct {
	X string `json:"x"`
	Y int    `json:"y"`
}

type Series struct {
	Label  Sentiment `json:"id"`
	Points []Point   `json:"data"`
}

// FileSet locates the three CSV exports of one analysis run.
type FileSet struct {
	Comments string `json:"comments"`
	Ratio    string `json:"ratio"`
	Count    string `json:"count"`
}

// Platform is a crawl source accepted by the backend.
type Platform string

const (
	YouTube   Platform = "youtube"
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
)

func (p Platform) Valid() bool {
	switch p {
	case YouTube, Instagram, Facebook:
		return true
	}
	return false
}

type CrawlRequest struct {
	Account   string   `json:"account"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Platform  Platform `json:"platform"`
}

type CrawlResponse struct {
	Files         FileSet `json:"files"`
	CommentsCount int     `json:"comments_count"`
}

// Feedback reports a comment whose label the user believes is wrong.
type Feedback struct {
	Date      string    `json:"date"`
	Content   string    `json:"comment"`
	Link      string    `json:"link"`
	Reported  Sentiment `json:"reported"`
	Corrected Sentiment `json:"corrected"`
}
