package ioformats

import (
	"context"
	"encoding/json"
	"io"

	"sentiboard/internal/models"
)

// WriteNDJSON writes any JSON-marshalable items as NDJSON to w.
func WriteNDJSON(w io.Writer, items []any) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

// CloudWriter hands a word-cloud weight list to an external layout renderer
// as NDJSON, one word per line tagged with the target region.
type CloudWriter struct {
	W io.Writer
}

type cloudLine struct {
	Region string `json:"region"`
	models.WeightedWord
}

func (c CloudWriter) Render(ctx context.Context, words []models.WeightedWord, region models.Region) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items := make([]any, 0, len(words))
	for _, w := range words {
		items = append(items, cloudLine{Region: region.Name, WeightedWord: w})
	}
	return WriteNDJSON(c.W, items)
}
