package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	markupRe     = regexp.MustCompile(`<[a-zA-Z/!][^>]*>|&(#[0-9]+|#x[0-9a-fA-F]+|[a-zA-Z]+);`)
)

// HasMarkup reports whether s looks like it carries HTML tags or entities.
func HasMarkup(s string) bool {
	return markupRe.MatchString(s)
}

// PlainText reduces an HTML comment body (YouTube's textDisplay, for
// example) to its visible text. Line breaks and block boundaries become
// single spaces; script and style content is dropped. Strings without
// markup are returned unchanged.
func PlainText(s string) string {
	if !HasMarkup(s) {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}

	doc.Find("script,noscript,style").Each(func(i int, sel *goquery.Selection) {
		sel.Remove()
	})
	doc.Find("br,p,div,li").Each(func(i int, sel *goquery.Selection) {
		sel.BeforeHtml(" ")
		sel.AfterHtml(" ")
	})

	text := doc.Find("body").Text()
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
