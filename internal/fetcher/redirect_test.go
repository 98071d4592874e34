package fetcher_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/coupon-crawler/internal/fetcher"
)

func via(n int) []*http.Request {
	return make([]*http.Request, n)
}

func TestRedirectPolicy_HonoursLimitAboveDefault(t *testing.T) {
	t.Parallel()

	check := fetcher.RedirectPolicy(15)

	assert.NoError(t, check(nil, via(10)))
	assert.NoError(t, check(nil, via(14)))
	assert.ErrorIs(t, check(nil, via(15)), fetcher.ErrTooManyRedirects)
}

func TestRedirectPolicy_LimitBelowDefault(t *testing.T) {
	t.Parallel()

	check := fetcher.RedirectPolicy(2)

	assert.NoError(t, check(nil, via(1)))
	assert.ErrorIs(t, check(nil, via(2)), fetcher.ErrTooManyRedirects)
}

func TestRedirectPolicy_ZeroUsesDefault(t *testing.T) {
	t.Parallel()

	check := fetcher.RedirectPolicy(0)

	assert.NoError(t, check(nil, via(9)))
	assert.ErrorIs(t, check(nil, via(10)), fetcher.ErrTooManyRedirects)
}
