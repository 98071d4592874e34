// Package dedup tracks which links and coupons have already been accepted.
package dedup

import "sync"

// Set is a concurrency-safe set of accepted keys.
type Set struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Claim records key and reports whether it was not already present.
func (s *Set) Claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}

	return true
}

// Contains reports whether key has been claimed.
func (s *Set) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.seen[key]

	return ok
}

// Len is the number of claimed keys.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.seen)
}

// LinkSet enforces link uniqueness within one adapter's run.
type LinkSet struct{ set *Set }

// NewLinkSet returns an empty local scope.
func NewLinkSet() *LinkSet { return &LinkSet{set: NewSet()} }

// Accept claims link, returning false for a duplicate.
func (l *LinkSet) Accept(link string) bool { return l.set.Claim(link) }

// CouponSet enforces coupon uniqueness across all adapters of one run.
type CouponSet struct{ set *Set }

// NewCouponSet returns an empty global scope.
func NewCouponSet() *CouponSet { return &CouponSet{set: NewSet()} }

// Accept claims coupon, returning false when an earlier adapter already used it.
func (c *CouponSet) Accept(coupon string) bool { return c.set.Claim(coupon) }

// Len is the number of accepted coupons.
func (c *CouponSet) Len() int { return c.set.Len() }
