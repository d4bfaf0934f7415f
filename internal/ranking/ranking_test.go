package ranking

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiboard/internal/models"
)

func TestCountDropsShortTokens(t *testing.T) {
	wc := Count("go go stay")
	assert.Equal(t, map[string]int{"go": 2, "stay": 1}, wc.Map())

	wc = Count("a go b go I stay")
	assert.Equal(t, map[string]int{"go": 2, "stay": 1}, wc.Map())
	assert.Equal(t, 0, wc.Get("a"))
}

func TestCountIsCaseSensitive(t *testing.T) {
	wc := Count("Go go GO go")
	assert.Equal(t, 2, wc.Get("go"))
	assert.Equal(t, 1, wc.Get("Go"))
	assert.Equal(t, 1, wc.Get("GO"))
}

func TestTokenizeWhitespaceRuns(t *testing.T) {
	got := Tokenize("  좋아요\t\t최고\n\nok  x ")
	assert.Equal(t, []string{"좋아요", "최고", "ok"}, got)
}

func TestTopIsStable(t *testing.T) {
	wc := Count("beta alpha gamma alpha beta delta gamma epsilon")
	top := wc.Top(5)
	require.Len(t, top, 5)
	assert.Equal(t, []models.RankedKeyword{
		{Word: "beta", Count: 2},
		{Word: "alpha", Count: 2},
		{Word: "gamma", Count: 2},
		{Word: "delta", Count: 1},
		{Word: "epsilon", Count: 1},
	}, top)

	assert.Len(t, wc.Top(2), 2)
	assert.Len(t, wc.Top(100), 5)
}

func TestWeightsAreCapped(t *testing.T) {
	text := strings.Repeat("loud ", 15) + "quiet quiet"
	w := Count(text).CloudWeights(DefaultPerOccurrence, DefaultMaxWeight)
	assert.Equal(t, []models.WeightedWord{
		{Text: "loud", Weight: 100},
		{Text: "quiet", Weight: 20},
	}, w)
}

func TestRankEmptyBucket(t *testing.T) {
	e := New(Options{})
	r := e.Rank(models.Bucket{Label: models.Neutral})
	assert.True(t, r.NoData)
	assert.Empty(t, r.Keywords)
	assert.Empty(t, r.Cloud)
	assert.Equal(t, models.Neutral, r.Label)

	r = e.Rank(models.Bucket{Label: models.Neutral, Text: "a b c"})
	assert.True(t, r.NoData, "single-letter tokens only")
}

func TestRankTopFive(t *testing.T) {
	e := New(Options{})
	r := e.Rank(models.Bucket{Label: models.Positive, Text: "aa bb cc dd ee ff aa ff"})
	require.False(t, r.NoData)
	require.Len(t, r.Keywords, 5)
	assert.Equal(t, "aa", r.Keywords[0].Word)
	assert.Equal(t, "ff", r.Keywords[1].Word)
	assert.Equal(t, "bb", r.Keywords[2].Word)
	assert.Len(t, r.Cloud, 6)
}

type recordingSink struct {
	words  []models.WeightedWord
	region models.Region
	calls  int
}

func (s *recordingSink) Render(_ context.Context, words []models.WeightedWord, region models.Region) error {
	s.calls++
	s.words = words
	s.region = region
	return nil
}

func TestRenderCloud(t *testing.T) {
	sink := &recordingSink{}
	e := New(Options{})
	region := models.Region{Name: "positive", Width: 600, Height: 400}

	require.NoError(t, RenderCloud(context.Background(), sink, e.Rank(models.Bucket{}), region))
	assert.Equal(t, 0, sink.calls)

	r := e.Rank(models.Bucket{Label: models.Positive, Text: "great great video"})
	require.NoError(t, RenderCloud(context.Background(), sink, r, region))
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, region, sink.region)
	assert.Equal(t, []models.WeightedWord{{Text: "great", Weight: 20}, {Text: "video", Weight: 10}}, sink.words)
}

func FuzzTop(f *testing.F) {
	f.Add("go go stay")
	f.Add("")
	f.Add("a")
	f.Add("\xff\xfe \x00 ok ok")
	f.Add("좋아요 좋아요 최고")

	f.Fuzz(func(t *testing.T, text string) {
		a := Count(text).Top(DefaultTopK)
		b := Count(text).Top(DefaultTopK)
		assert.Equal(t, a, b)
		for i := 1; i < len(a); i++ {
			if a[i].Count > a[i-1].Count {
				t.Fatalf("not descending: %v", a)
			}
		}
	})
}
