// Package series projects ratio.csv and count.csv rows into chart data.
package series

import (
	"fmt"
	"math"

	"sentiboard/internal/models"
)

// Project turns count rows into the Positive, Neutral and Negative series,
// preserving row order.
func Project(rows []models.CountRow) []models.Series {
	out := []models.Series{
		{Label: models.Positive, Points: make([]models.Point, 0, len(rows))},
		{Label: models.Neutral, Points: make([]models.Point, 0, len(rows))},
		{Label: models.Negative, Points: make([]models.Point, 0, len(rows))},
	}
	for _, r := range rows {
		out[0].Points = append(out[0].Points, models.Point{X: r.Date, Y: r.Positive})
		out[1].Points = append(out[1].Points, models.Point{X: r.Date, Y: r.Neutral})
		out[2].Points = append(out[2].Points, models.Point{X: r.Date, Y: r.Negative})
	}
	return out
}

// Ratio maps the first three values to Positive, Neutral and Negative.
// Missing values are 0; anything past the third is ignored.
func Ratio(values []float64) models.RatioSlice {
	var rs models.RatioSlice
	for i, label := range models.Sentiments {
		rs[i].Label = label
		if i < len(values) {
			rs[i].Value = values[i]
		}
	}
	return rs
}

// RatioFromCounts computes percentages rounded to two decimals, the way the
// analysis backend writes ratio.csv. All zeros yield all zeros.
func RatioFromCounts(pos, neu, neg int) models.RatioSlice {
	total := pos + neu + neg
	vals := make([]float64, 3)
	if total > 0 {
		for i, n := range []int{pos, neu, neg} {
			vals[i] = round2(float64(n) * 100 / float64(total))
		}
	}
	return Ratio(vals)
}

// Totals sums each series over all points.
func Totals(rows []models.CountRow) [3]int {
	var t [3]int
	for _, r := range rows {
		t[0] += r.Positive
		t[1] += r.Neutral
		t[2] += r.Negative
	}
	return t
}

// RatioTolerance is the percentage-point slack allowed when comparing a
// computed ratio with ratio.csv.
const RatioTolerance = 0.5

// Mismatch describes one disagreement between the three exports.
type Mismatch struct {
	Label  models.Sentiment `json:"label"`
	Source string           `json:"source"`
	Want   float64          `json:"want"`
	Got    float64          `json:"got"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s %s: want %.2f, got %.2f", m.Label, m.Source, m.Want, m.Got)
}

// Reconcile checks bucket sizes against the count series totals and the
// ratio. Empty inputs are not compared: a count file with no rows or a
// ratio of all zeros means that export is missing, not that it disagrees.
func Reconcile(buckets [3]int, rows []models.CountRow, ratio models.RatioSlice) []Mismatch {
	var out []Mismatch

	if len(rows) > 0 {
		totals := Totals(rows)
		for i, label := range models.Sentiments {
			if totals[i] != buckets[i] {
				out = append(out, Mismatch{Label: label, Source: "count", Want: float64(buckets[i]), Got: float64(totals[i])})
			}
		}
	}

	if ratio[0].Value != 0 || ratio[1].Value != 0 || ratio[2].Value != 0 {
		want := RatioFromCounts(buckets[0], buckets[1], buckets[2])
		for i := range ratio {
			if math.Abs(want[i].Value-ratio[i].Value) > RatioTolerance {
				out = append(out, Mismatch{Label: ratio[i].Label, Source: "ratio", Want: want[i].Value, Got: ratio[i].Value})
			}
		}
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
