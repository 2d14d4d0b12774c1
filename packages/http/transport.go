package http

import (
	"net/http"

	"golang.org/x/time/rate"
)

// BearerTransport sets the Authorization header on every outgoing request.
type BearerTransport struct {
	next  http.RoundTripper
	token string
}

func NewBearerTransport(next http.RoundTripper, token string) *BearerTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &BearerTransport{next: next, token: token}
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(clone)
}

// RateLimitTransport blocks until the limiter admits the request or the
// request context is done.
type RateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func NewRateLimitTransport(next http.RoundTripper, rps float64) *RateLimitTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RateLimitTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}
