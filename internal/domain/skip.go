package domain

// SkipReason explains why an item did not become an accepted candidate.
type SkipReason string

const (
	SkipNoCoupon        SkipReason = "no_coupon"
	SkipDuplicateLink   SkipReason = "duplicate_link"
	SkipDuplicateCoupon SkipReason = "duplicate_coupon"
	SkipInvalidData     SkipReason = "invalid_data"
	SkipAdvertisement   SkipReason = "advertisement"
	SkipNotVendor       SkipReason = "not_vendor"
	SkipNotFree         SkipReason = "not_free"
	SkipExpired         SkipReason = "expired"
	SkipFetchFailed     SkipReason = "fetch_failed"
)

// SkipRecord is an item rejected during a run.
type SkipRecord struct {
	Title  string     `json:"title"`
	Link   string     `json:"link,omitempty"`
	Source string     `json:"source"`
	Reason SkipReason `json:"reason"`
}
