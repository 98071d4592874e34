// Package domain holds the value types shared by the scraping pipeline.
package domain

import (
	"net/url"
	"strings"
	"time"
)

// CourseCandidate is a course found by a source adapter. Accepted candidates
// always carry a non-empty Coupon.
type CourseCandidate struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Coupon    string    `json:"coupon"`
	DateFound time.Time `json:"date_found"`
	Source    string    `json:"source"`
}

// LinkWithCoupon returns the link with the coupon attached as a couponCode
// query parameter. Links that already carry a couponCode are returned as-is.
func (c CourseCandidate) LinkWithCoupon() string {
	if c.Coupon == "" || strings.Contains(c.Link, "couponCode=") {
		return c.Link
	}

	sep := "?"
	if strings.Contains(c.Link, "?") {
		sep = "&"
	}

	return c.Link + sep + "couponCode=" + url.QueryEscape(c.Coupon)
}
