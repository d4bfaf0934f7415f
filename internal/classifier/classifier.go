package classifier

import (
	"fmt"
	"strings"

	"sentiboard/internal/models"
)

// UnknownPolicy decides what happens to records whose code is not 0, 1 or 2.
type UnknownPolicy string

const (
	// DropUnknown excludes such records from every bucket and view.
	DropUnknown UnknownPolicy = "drop"
	// UnknownAsNegative files them under Negative.
	UnknownAsNegative UnknownPolicy = "negative"
)

func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch p := UnknownPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", DropUnknown:
		return DropUnknown, nil
	case UnknownAsNegative:
		return p, nil
	}
	return "", fmt.Errorf("unknown sentiment policy %q (want drop or negative)", s)
}

type Classifier struct {
	policy UnknownPolicy
}

func New(policy UnknownPolicy) *Classifier {
	if policy == "" {
		policy = DropUnknown
	}
	return &Classifier{policy: policy}
}

func (c *Classifier) Policy() UnknownPolicy { return c.policy }

// Resolve applies the unknown-code policy to records and returns the
// sequence every view is derived from. Order is preserved and the input is
// not modified. The second result is the number of records that carried an
// unknown code.
func (c *Classifier) Resolve(records []models.CommentRecord) ([]models.CommentRecord, int) {
	out := make([]models.CommentRecord, 0, len(records))
	unknown := 0
	for _, r := range records {
		if !r.Sentiment.Valid() {
			unknown++
			if c.policy != UnknownAsNegative {
				continue
			}
			r.Sentiment = models.Negative
		}
		out = append(out, r)
	}
	return out, unknown
}

// Bucketize partitions records by label, keeping CSV order inside each
// bucket. Records with an invalid label are left out; call Resolve first to
// apply the policy.
func (c *Classifier) Bucketize(records []models.CommentRecord) models.SentimentBuckets {
	b := models.SentimentBuckets{
		Positive: models.Bucket{Label: models.Positive},
		Neutral:  models.Bucket{Label: models.Neutral},
		Negative: models.Bucket{Label: models.Negative},
	}
	for _, r := range records {
		switch r.Sentiment {
		case models.Positive:
			b.Positive.Records = append(b.Positive.Records, r)
		case models.Neutral:
			b.Neutral.Records = append(b.Neutral.Records, r)
		case models.Negative:
			b.Negative.Records = append(b.Negative.Records, r)
		}
	}
	b.Positive.Text = joinContent(b.Positive.Records)
	b.Neutral.Text = joinContent(b.Neutral.Records)
	b.Negative.Text = joinContent(b.Negative.Records)
	return b
}

// Counts returns the bucket sizes in Positive, Neutral, Negative order.
func Counts(b models.SentimentBuckets) [3]int {
	return [3]int{len(b.Positive.Records), len(b.Neutral.Records), len(b.Negative.Records)}
}

func joinContent(records []models.CommentRecord) string {
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.Content
	}
	return strings.Join(parts, " ")
}
