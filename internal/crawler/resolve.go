package crawler

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"sentiboard/internal/models"
)

// Resolver turns the file locations a crawl returns into fetchable ones.
// The backend reports paths relative to its own checkout, such as
// "./front/public/data/comments.csv"; TrimPrefix removes the part the data
// host does not serve before the rest is joined onto Base.
type Resolver struct {
	Base       string
	TrimPrefix string
}

// Resolve leaves absolute URLs and absolute paths alone. Relative locations
// are resolved against Base, or returned cleaned when Base is empty.
func (r Resolver) Resolve(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("empty location")
	}
	if u, err := url.Parse(location); err == nil && len(u.Scheme) > 1 {
		return location, nil
	}
	if filepath.IsAbs(location) {
		return location, nil
	}

	rel := location
	if r.TrimPrefix != "" {
		rel = strings.TrimPrefix(rel, r.TrimPrefix)
	}
	if r.Base == "" {
		return filepath.Clean(location), nil
	}

	base, err := url.Parse(r.Base)
	if err != nil {
		return "", fmt.Errorf("invalid data base %q: %w", r.Base, err)
	}
	if base.Scheme == "" {
		return filepath.Join(r.Base, filepath.FromSlash(rel)), nil
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref, err := url.Parse(strings.TrimPrefix(rel, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid location %q: %w", location, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// ResolveFiles resolves all three locations of fs.
func (r Resolver) ResolveFiles(fs models.FileSet) (models.FileSet, error) {
	var out models.FileSet
	var err error
	if out.Comments, err = r.Resolve(fs.Comments); err != nil {
		return out, fmt.Errorf("comments: %w", err)
	}
	if out.Ratio, err = r.Resolve(fs.Ratio); err != nil {
		return out, fmt.Errorf("ratio: %w", err)
	}
	if out.Count, err = r.Resolve(fs.Count); err != nil {
		return out, fmt.Errorf("count: %w", err)
	}
	return out, nil
}
