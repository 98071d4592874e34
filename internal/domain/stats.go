package domain

// AdapterStats counts what happened to the items a source adapter saw.
type AdapterStats struct {
	TotalFound             int `json:"total_found"`
	Added                  int `json:"added"`
	SkippedDuplicateLink   int `json:"skipped_duplicate_link"`
	SkippedDuplicateCoupon int `json:"skipped_duplicate_coupon"`
	SkippedNoCoupon        int `json:"skipped_no_coupon"`
	SkippedInvalidData     int `json:"skipped_invalid_data"`
	SkippedNotFree         int `json:"skipped_not_free"`
	Errors                 int `json:"errors"`
	Timeouts               int `json:"timeouts"`
	Unverified             int `json:"unverified"`
	Unavailable            int `json:"unavailable"`
}

// Add merges other into s field by field.
func (s *AdapterStats) Add(other AdapterStats) {
	s.TotalFound += other.TotalFound
	s.Added += other.Added
	s.SkippedDuplicateLink += other.SkippedDuplicateLink
	s.SkippedDuplicateCoupon += other.SkippedDuplicateCoupon
	s.SkippedNoCoupon += other.SkippedNoCoupon
	s.SkippedInvalidData += other.SkippedInvalidData
	s.SkippedNotFree += other.SkippedNotFree
	s.Errors += other.Errors
	s.Timeouts += other.Timeouts
	s.Unverified += other.Unverified
	s.Unavailable += other.Unavailable
}

// Skipped is the number of found items that did not become candidates.
func (s AdapterStats) Skipped() int {
	return s.SkippedDuplicateLink + s.SkippedDuplicateCoupon + s.SkippedNoCoupon +
		s.SkippedInvalidData + s.SkippedNotFree
}
