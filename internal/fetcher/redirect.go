package fetcher

import (
	"errors"
	"net/http"
)

// ErrTooManyRedirects is returned when the redirect hop limit is exceeded.
var ErrTooManyRedirects = errors.New("too many redirects")

// RedirectPolicy returns a CheckRedirect function that stops after maxHops redirects.
// When maxHops is <= 0 the http.Client default of 10 applies.
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	if maxHops <= 0 {
		maxHops = defaultMaxRedirects
	}
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}
