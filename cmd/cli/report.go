package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"sentiboard/internal/dashboard"
	"sentiboard/internal/ioformats"
	"sentiboard/internal/models"
)

// viewFlags select what part of the dashboard is printed. Shared by report
// and crawl.
type viewFlags struct {
	selectLabels string
	page         int
	cloud        string
	cloudOut     string
	asJSON       bool
}

func (v *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&v.selectLabels, "select", "", "comma-separated sentiments shown in the comment table (default all)")
	cmd.Flags().IntVar(&v.page, "page", 1, "comment table page")
	cmd.Flags().StringVar(&v.cloud, "cloud", "", "sentiment whose keywords and word cloud are shown (default from config)")
	cmd.Flags().StringVar(&v.cloudOut, "cloud-out", "", "write the word-cloud weight list as NDJSON to this file (- for stdout)")
	cmd.Flags().BoolVar(&v.asJSON, "json", false, "print the dashboard as JSON")
}

var (
	reportFiles models.FileSet
	reportView  viewFlags
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Load CSV exports and print the dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportFiles == (models.FileSet{}) {
			return errors.New("at least one of --comments, --ratio, --count is required")
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			s, err := a.session(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Load(ctx, reportFiles); err != nil {
				if allFailed(s, reportFiles) {
					return err
				}
				a.log.Warnf("some sources failed: %v", err)
			}
			return present(ctx, cmd.OutOrStdout(), s, reportView, a)
		})
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFiles.Comments, "comments", "", "comments.csv location (path or URL)")
	reportCmd.Flags().StringVar(&reportFiles.Ratio, "ratio", "", "ratio.csv location")
	reportCmd.Flags().StringVar(&reportFiles.Count, "count", "", "count.csv location")
	reportView.register(reportCmd)
}

// allFailed reports whether no requested source produced data.
func allFailed(s *dashboard.Session, files models.FileSet) bool {
	requested := map[dashboard.Source]string{
		dashboard.SourceComments: files.Comments,
		dashboard.SourceRatio:    files.Ratio,
		dashboard.SourceCount:    files.Count,
	}
	for src, loc := range requested {
		if loc == "" {
			continue
		}
		if st := s.State(src).Status; st == dashboard.StatusReady || st == dashboard.StatusEmpty {
			return false
		}
	}
	return true
}

func parseLabels(csv string) ([]models.Sentiment, error) {
	var out []models.Sentiment
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		l, err := models.ParseSentiment(part)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// present applies the view flags to s and prints the result.
func present(ctx context.Context, w io.Writer, s *dashboard.Session, vf viewFlags, a *app) error {
	if vf.selectLabels != "" {
		labels, err := parseLabels(vf.selectLabels)
		if err != nil {
			return fmt.Errorf("--select: %w", err)
		}
		s.Select(labels...)
	}
	s.SetPage(vf.page)
	if vf.cloud != "" {
		label, err := models.ParseSentiment(vf.cloud)
		if err != nil {
			return fmt.Errorf("--cloud: %w", err)
		}
		if err := s.SelectCloud(label); err != nil {
			return err
		}
	}

	if vf.cloudOut != "" {
		if err := writeCloud(ctx, s, vf.cloudOut, a); err != nil {
			return err
		}
	}

	view := s.Snapshot()
	if vf.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	printView(w, view)
	return nil
}

func writeCloud(ctx context.Context, s *dashboard.Session, path string, a *app) error {
	var out io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create cloud output: %w", err)
		}
		defer f.Close()
		out = f
	}
	region := models.Region{Width: a.cfg.Dashboard.CloudWidth, Height: a.cfg.Dashboard.CloudHeight}
	return s.RenderCloud(ctx, ioformats.CloudWriter{W: out}, region)
}

func printView(w io.Writer, v dashboard.View) {
	fmt.Fprintln(w, "== Sentiment ratio")
	t := newTable(w, "sentiment", "ratio", "comments")
	for i, r := range v.Ratio {
		t.Append([]string{r.Label.String(), strconv.FormatFloat(r.Value, 'f', 2, 64) + "%", humanize.Comma(int64(v.Counts[i]))})
	}
	t.Render()

	rk := v.Rankings[v.CloudLabel]
	fmt.Fprintf(w, "\n== Top keywords (%s)\n", v.CloudLabel)
	if rk.NoData {
		fmt.Fprintln(w, "no data")
	} else {
		t = newTable(w, "#", "word", "count", "weight")
		for i, k := range rk.Keywords {
			t.Append([]string{strconv.Itoa(i + 1), k.Word, humanize.Comma(int64(k.Count)), strconv.Itoa(weightOf(rk.Cloud, k.Word))})
		}
		t.Render()
	}

	vis := v.Visible
	fmt.Fprintf(w, "\n== Comments %s (page %d/%d, %s shown of %s)\n",
		v.Filter.Selected, vis.Page, max(1, vis.TotalPages), humanize.Comma(int64(len(vis.Items))), humanize.Comma(int64(vis.TotalItems)))
	t = newTable(w, "line", "date", "sentiment", "comment", "link")
	for _, r := range vis.Items {
		t.Append([]string{strconv.Itoa(r.Line), r.Date, r.Sentiment.String(), truncate(r.Content, 60), r.Link})
	}
	t.Render()

	fmt.Fprintln(w, "\n== Daily counts")
	if len(v.Series) == 3 && len(v.Series[0].Points) > 0 {
		t = newTable(w, "date", "positive", "neutral", "negative")
		for i, p := range v.Series[0].Points {
			t.Append([]string{p.X, strconv.Itoa(p.Y), strconv.Itoa(v.Series[1].Points[i].Y), strconv.Itoa(v.Series[2].Points[i].Y)})
		}
		t.Render()
	} else {
		fmt.Fprintln(w, "no data")
	}

	fmt.Fprintln(w, "\n== Sources")
	t = newTable(w, "source", "status", "rows", "skipped", "error")
	for _, src := range []dashboard.Source{dashboard.SourceCrawl, dashboard.SourceComments, dashboard.SourceRatio, dashboard.SourceCount} {
		st := v.Sources[src]
		if st.Status == dashboard.StatusIdle {
			continue
		}
		errText := ""
		if st.Err != nil {
			errText = st.Err.Error()
		}
		t.Append([]string{string(src), st.Status.String(), humanize.Comma(int64(st.Rows)), strconv.Itoa(len(st.Skipped)), errText})
	}
	t.Render()
	if v.Unknown > 0 {
		fmt.Fprintf(w, "%s comments carried an unknown sentiment code\n", humanize.Comma(int64(v.Unknown)))
	}
	for _, m := range v.Mismatches {
		fmt.Fprintf(w, "warning: %s\n", m)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	return t
}

func weightOf(cloud []models.WeightedWord, word string) int {
	for _, c := range cloud {
		if c.Text == word {
			return c.Weight
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
