package ioformats

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"sentiboard/internal/models"
)

func TestParseComments(t *testing.T) {
	in := "date,comment,link,sentiment\n" +
		"2024-03-01,great video,https://youtu.be/a,0\n" +
		"2024-03-01,too short\n" +
		"2024-03-02,\"so-so, I guess\",https://youtu.be/b,1\n" +
		"2024-03-02,bad,https://youtu.be/c,2\n"

	res, err := ParseComments(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 3, res.Skipped[0].Line)
	assert.Contains(t, res.Skipped[0].Reason, "expected 4 fields, got 2")

	assert.Equal(t, models.CommentRecord{
		Line: 2, Date: "2024-03-01", Content: "great video", Link: "https://youtu.be/a", Code: 0, Sentiment: models.Positive,
	}, res.Records[0])
	assert.Equal(t, "so-so, I guess", res.Records[1].Content)
	assert.Equal(t, models.Negative, res.Records[2].Sentiment)
}

func TestParseCommentsFoldsUnquotedCommas(t *testing.T) {
	in := "date,comment,link,sentiment\n2024-03-01,one, two, three,https://youtu.be/a,2\n"
	res, err := ParseComments(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "one, two, three", res.Records[0].Content)
	assert.Equal(t, "https://youtu.be/a", res.Records[0].Link)
	assert.Equal(t, 2, res.Records[0].Code)
}

func TestParseCommentsUnknownCodes(t *testing.T) {
	in := "date,comment,link,sentiment\nd,a1,l,7\nd,a2,l,\nd,a3,l,x\nd,a4,l,1.0\n"
	res, err := ParseComments(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 4)
	assert.Equal(t, 7, res.Records[0].Code)
	assert.Equal(t, models.Unknown, res.Records[0].Sentiment)
	assert.Equal(t, -1, res.Records[1].Code)
	assert.Equal(t, models.Unknown, res.Records[1].Sentiment)
	assert.Equal(t, -1, res.Records[2].Code)
	assert.Equal(t, models.Neutral, res.Records[3].Sentiment)
}

func TestParseCommentsStripsQuotesAndMarkup(t *testing.T) {
	in := "date,comment,link,sentiment\n" +
		"d,\"\"\"quoted\"\"\",l,0\n" +
		"d,좋아요<br>최고 &amp; 굿,l,0\n"

	res, err := ParseComments(strings.NewReader(in), Options{StripMarkup: true})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "quoted", res.Records[0].Content)
	assert.Equal(t, "좋아요 최고 & 굿", res.Records[1].Content)

	res, err = ParseComments(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, "좋아요<br>최고 &amp; 굿", res.Records[1].Content)
}

// An unbalanced quote must not carry the rows after it into one field.
func TestParseCommentsStrayQuoteStaysOnItsLine(t *testing.T) {
	tail := "2024-01-02,fine,http://b,1\n2024-01-03,ok,http://c,2\n"
	for name, tc := range map[string]struct {
		row     string
		content string
	}{
		"unterminated": {row: `2024-01-01,"great video,http://a,0`, content: "great video"},
		"mid-field":    {row: `2024-01-01,"nice" video,http://a,0`, content: `nice" video`},
	} {
		t.Run(name, func(t *testing.T) {
			in := "date,comment,link,sentiment\n" + tc.row + "\n" + tail
			res, err := ParseComments(strings.NewReader(in), Options{})
			require.NoError(t, err)
			require.Len(t, res.Records, 3)
			assert.Empty(t, res.Skipped)

			assert.Equal(t, tc.content, res.Records[0].Content)
			assert.Equal(t, "http://a", res.Records[0].Link)
			assert.Equal(t, models.Positive, res.Records[0].Sentiment)
			assert.Equal(t, 3, res.Records[1].Line)
			assert.Equal(t, "fine", res.Records[1].Content)
			assert.Equal(t, models.Negative, res.Records[2].Sentiment)
		})
	}
}

// A quote that closes on a later line without forming a valid record falls
// back to reading each line on its own.
func TestParseCommentsUnfitQuotedBlockSplitsPerLine(t *testing.T) {
	in := "date,comment,link,sentiment\n" +
		"2024-01-01,\"open,http://a,0\n" +
		"2024-01-02,close\" here,http://b,1\n"
	res, err := ParseComments(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "open", res.Records[0].Content)
	assert.Equal(t, 2, res.Records[0].Line)
	assert.Equal(t, `close" here`, res.Records[1].Content)
	assert.Equal(t, models.Neutral, res.Records[1].Sentiment)
}

func TestParseCommentsBOM(t *testing.T) {
	in := "\xef\xbb\xbfdate,comment,link,sentiment\n2024-03-01,좋아요,l,0\n"
	res, err := ParseComments(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "좋아요", res.Records[0].Content)
}

func TestParseCommentsEUCKR(t *testing.T) {
	utf := "date,comment,link,sentiment\n2024-03-01,정말 재밌어요,l,0\n"
	encoded, err := korean.EUCKR.NewEncoder().String(utf)
	require.NoError(t, err)

	res, err := ParseComments(strings.NewReader(encoded), Options{Encoding: "euc-kr"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "정말 재밌어요", res.Records[0].Content)

	assert.False(t, res.EncodingGuessed)

	_, err = ParseComments(strings.NewReader(utf), Options{Encoding: "klingon"})
	assert.Error(t, err)
}

func TestParseCommentsFlagsGuessedEncoding(t *testing.T) {
	utf := "date,comment,link,sentiment\n2024-03-01,정말 재밌어요,l,0\n"
	res, err := ParseComments(strings.NewReader(utf), Options{})
	require.NoError(t, err)
	assert.Equal(t, "utf-8", res.Encoding)
	assert.False(t, res.EncodingGuessed)

	encoded, err := korean.EUCKR.NewEncoder().String(utf)
	require.NoError(t, err)
	res, err = ParseComments(strings.NewReader(encoded), Options{})
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", res.Encoding)
	assert.True(t, res.EncodingGuessed)
}

// Writing records back out and parsing them again yields the same records.
func TestCommentsRoundTrip(t *testing.T) {
	want := []models.CommentRecord{
		{Date: "2024-03-01", Content: "multi\nline, with comma", Link: "https://youtu.be/a", Code: 0, Sentiment: models.Positive},
		{Date: "2024-03-02", Content: "plain", Link: "https://youtu.be/b", Code: 2, Sentiment: models.Negative},
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write([]string{"date", "comment", "link", "sentiment"}))
	for _, r := range want {
		require.NoError(t, w.Write([]string{r.Date, r.Content, r.Link, string(rune('0' + r.Code))}))
	}
	w.Flush()

	res, err := ParseComments(&buf, Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	for i := range want {
		got := res.Records[i]
		got.Line = 0
		assert.Equal(t, want[i], got)
	}
	assert.Equal(t, 4, res.Records[1].Line, "quoted newline spans a line")
}

func TestParseRatio(t *testing.T) {
	for name, in := range map[string]string{
		"no header":   "60\n25\n15\n",
		"with header": "Ratio\n60\n25\n15\n",
		"percent":     "ratio\n60%\n25%\n15%",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := ParseRatio(strings.NewReader(in), Options{})
			require.NoError(t, err)
			assert.Equal(t, []float64{60, 25, 15}, res.Records)
		})
	}

	res, err := ParseRatio(strings.NewReader("Ratio\nabc\n12.5\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 12.5}, res.Records, "unparsable values default to 0")
}

func TestParseCounts(t *testing.T) {
	in := "date,positive,neutral,negative\n2024-03-01,3,1,2\n2024-03-02,4\n2024-03-03,x,2.0,1\n"
	res, err := ParseCounts(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, models.CountRow{Line: 2, Date: "2024-03-01", Positive: 3, Neutral: 1, Negative: 2}, res.Records[0])
	assert.Equal(t, models.CountRow{Line: 3, Date: "2024-03-02", Positive: 4}, res.Records[1])
	assert.Equal(t, models.CountRow{Line: 4, Date: "2024-03-03", Neutral: 2, Negative: 1}, res.Records[2])
}

func TestParseEmpty(t *testing.T) {
	res, err := ParseComments(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	res, err = ParseComments(strings.NewReader("date,comment,link,sentiment\n"), Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestCloudWriter(t *testing.T) {
	var buf bytes.Buffer
	words := []models.WeightedWord{{Text: "최고", Weight: 30}, {Text: "영상", Weight: 10}}
	require.NoError(t, CloudWriter{W: &buf}.Render(context.Background(), words, models.Region{Name: "positive"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, map[string]any{"region": "positive", "text": "최고", "size": float64(30)}, first)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, CloudWriter{W: &buf}.Render(ctx, words, models.Region{}))
}

func FuzzParseComments(f *testing.F) {
	f.Add("date,comment,link,sentiment\n2024-03-01,hi,l,0\n")
	f.Add("\xef\xbb\xbfdate,comment\n\"unterminated,x\n")
	f.Add("a,b,c,d,e,f,g\n1,2,3,4,5,6,7\n")
	f.Add("")

	f.Fuzz(func(t *testing.T, in string) {
		a, err := ParseComments(strings.NewReader(in), Options{})
		if err != nil {
			return
		}
		b, err := ParseComments(strings.NewReader(in), Options{})
		require.NoError(t, err)
		require.Equal(t, a, b)
		for _, r := range a.Records {
			if r.Sentiment.Valid() != (r.Code >= 0 && r.Code <= 2) {
				t.Fatalf("code %d labelled %s", r.Code, r.Sentiment)
			}
		}
	})
}
