package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrFetchFailed is returned by the Transport when a request exhausts its retries.
var ErrFetchFailed = errors.New("fetch failed")

// Transport exposes f as an http.RoundTripper so clients that own their own
// request loop (colly) get the same retry behaviour. Responses are returned
// only on success; the onResult hook sees every outcome.
func (f *Fetcher) Transport(onResult func(*http.Request, Result)) http.RoundTripper {
	return &retryTransport{fetcher: f, onResult: onResult}
}

type retryTransport struct {
	fetcher  *Fetcher
	onResult func(*http.Request, Result)
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res := t.fetcher.Do(req.Context(), req.Method, req.URL.String(), req.Header.Clone())
	if t.onResult != nil {
		t.onResult(req, res)
	}

	if !res.OK {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, req.URL, res.Err)
	}

	return &http.Response{
		Status:        http.StatusText(res.StatusCode),
		StatusCode:    res.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        res.Header,
		Body:          io.NopCloser(bytes.NewReader(res.Body)),
		ContentLength: int64(len(res.Body)),
		Request:       req,
	}, nil
}
