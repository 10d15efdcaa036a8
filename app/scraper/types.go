package scraper

// PinnedDate is the sentinel stored in an ad's Date field when the listing
// is boosted and carries no fresh timestamp.
const PinnedDate = "pinned"

// Ad is one listing block parsed from a search-result page.
type Ad struct {
	ID           int64
	Title        string
	URL          string
	Price        *int64 // nil means "price on request"
	City         string
	Date         string
	SellerName   string
	SellerURL    string
	SellerRating string
	ImageURL     string
}

// Pinned reports whether the listing is boosted.
func (a *Ad) Pinned() bool {
	return a.Date == PinnedDate
}
