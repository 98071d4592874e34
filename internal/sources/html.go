package sources

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses body into a goquery document.
func ParseHTML(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// FirstText returns the trimmed text of the first selector that yields any.
func FirstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// FirstMatch returns the matches of the first selector that matches anything.
func FirstMatch(s *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := s.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return s.Find(selectors[len(selectors)-1])
}

// CollapseSpace trims text and squashes internal whitespace runs.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
