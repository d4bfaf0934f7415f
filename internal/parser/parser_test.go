package parser

import (
	"testing"
)

func TestPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"line break", "great video<br>thanks", "great video thanks"},
		{"entities", "Tom &amp; Jerry &#39;rocks&#39;", "Tom & Jerry 'rocks'"},
		{"link", `see <a href="https://www.youtube.com/watch?v=x&amp;t=10">0:10</a> here`, "see 0:10 here"},
		{"script dropped", "ok<script>alert(1)</script> fine", "ok fine"},
		{"less than is not markup", "3 < 5 and 7 > 2", "3 < 5 and 7 > 2"},
		{"korean", "좋아요<br><br>최고", "좋아요 최고"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PlainText(tc.in)
			if got != tc.want {
				t.Fatalf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestHasMarkup(t *testing.T) {
	if HasMarkup("no tags here") {
		t.Fatal("plain text reported as markup")
	}
	if !HasMarkup("a<br>b") {
		t.Fatal("<br> not detected")
	}
	if !HasMarkup("fish &amp; chips") {
		t.Fatal("entity not detected")
	}
}
