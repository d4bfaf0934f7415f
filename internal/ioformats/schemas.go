package ioformats

import (
	"io"

	"sentiboard/internal/models"
)

var CommentsSchema = Schema{
	Name: "comments",
	Fields: []Field{
		{Name: "date", Kind: Text},
		{Name: "comment", Kind: FreeText},
		{Name: "link", Kind: Text},
		{Name: "sentiment", Kind: SentimentCode},
	},
	MinFields: 4,
	Header:    HeaderAlways,
}

// RatioSchema has one percentage per row in Positive, Neutral, Negative
// order. The header is optional.
var RatioSchema = Schema{
	Name:      "ratio",
	Fields:    []Field{{Name: "ratio", Kind: Float}},
	MinFields: 1,
	Header:    HeaderDetect,
}

// CountSchema only requires the date; missing counts decode to 0.
var CountSchema = Schema{
	Name: "count",
	Fields: []Field{
		{Name: "date", Kind: Text},
		{Name: "positive", Kind: Int},
		{Name: "neutral", Kind: Int},
		{Name: "negative", Kind: Int},
	},
	MinFields: 1,
	Header:    HeaderAlways,
}

// ParseComments decodes comments.csv. Records keep their raw code; codes
// outside 0..2 carry models.Unknown.
func ParseComments(r io.Reader, opts Options) (*Result[models.CommentRecord], error) {
	return Parse(r, CommentsSchema, opts, func(row Row) (models.CommentRecord, error) {
		code := row.Code(3)
		label, _ := models.SentimentFromCode(code)
		return models.CommentRecord{
			Line:      row.Line,
			Date:      row.String(0),
			Content:   row.String(1),
			Link:      row.String(2),
			Code:      code,
			Sentiment: label,
		}, nil
	})
}

func ParseRatio(r io.Reader, opts Options) (*Result[float64], error) {
	return Parse(r, RatioSchema, opts, func(row Row) (float64, error) {
		return row.Float(0), nil
	})
}

func ParseCounts(r io.Reader, opts Options) (*Result[models.CountRow], error) {
	return Parse(r, CountSchema, opts, func(row Row) (models.CountRow, error) {
		return models.CountRow{
			Line:     row.Line,
			Date:     row.String(0),
			Positive: row.Int(1),
			Neutral:  row.Int(2),
			Negative: row.Int(3),
		}, nil
	})
}
