// Package coupon extracts discount tokens from course links and page text.
package coupon

import (
	"net/url"
	"regexp"
	"strings"
)

// malformedSuffix is left on tokens by sources that double-encode the query.
const malformedSuffix = "&couponCode"

// QueryKeys are the query parameters that carry a token, in priority order.
var QueryKeys = []string{"couponCode", "coupon", "discount"}

var textPattern = regexp.MustCompile(`Coupon:\s*([^\s<>"']+)`)

// Strategy returns a token from a link and its surrounding page text, or "".
type Strategy func(link, pageText string) string

// Extractor tries its strategies in order until one yields a token.
type Extractor struct {
	strategies []Strategy
}

// NewExtractor returns an Extractor over strategies. With none given it uses
// QueryStrategy(QueryKeys...) followed by TextStrategy.
func NewExtractor(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = []Strategy{QueryStrategy(QueryKeys...), TextStrategy}
	}
	return &Extractor{strategies: strategies}
}

// Extract returns the normalized token and whether one was found.
func (e *Extractor) Extract(link, pageText string) (string, bool) {
	for _, s := range e.strategies {
		if token := normalize(s(link, pageText)); token != "" {
			return token, true
		}
	}
	return "", false
}

// QueryStrategy reads the first non-empty value among keys from the link's query string.
func QueryStrategy(keys ...string) Strategy {
	return func(link, _ string) string {
		u, err := url.Parse(link)
		if err != nil {
			return ""
		}
		q := u.Query()
		for _, k := range keys {
			if v := q.Get(k); v != "" {
				return v
			}
		}
		return ""
	}
}

// TextStrategy matches "Coupon: <TOKEN>" in the page text.
func TextStrategy(_, pageText string) string {
	m := textPattern.FindStringSubmatch(pageText)
	if m == nil {
		return ""
	}
	return m[1]
}

func normalize(token string) string {
	token = strings.TrimSpace(token)
	return strings.TrimSuffix(token, malformedSuffix)
}
