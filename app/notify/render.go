package notify

import (
	"fmt"
	"strings"

	"github.com/mopihu/pyhabot/app/scraper"
)

func renderNewAd(watchURL string, ad scraper.Ad) string {
	stext, minPrice, maxPrice := scraper.SearchParams(watchURL)

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", stext)
	fmt.Fprintf(&b, "%s - %s Ft\n\n", minPrice, maxPrice)
	fmt.Fprintf(&b, "[%s](%s)\n", ad.Title, ad.URL)
	fmt.Fprintf(&b, "**%s** (%s) (%s) (%s %s)",
		formatPrice(ad.Price), ad.City, dateDisplay(ad), ad.SellerName, ad.SellerRating)
	return b.String()
}

func renderPriceChange(ad scraper.Ad, oldPrice, newPrice int64) string {
	changeType := "decreased"
	if newPrice > oldPrice {
		changeType = "increased"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Árváltozás: [%s](%s)**\n", ad.Title, ad.URL)
	fmt.Fprintf(&b, "Új ár: %d Ft (%s)\n\n", newPrice, changeType)
	fmt.Fprintf(&b, "Előző ár: %d Ft\n", oldPrice)
	fmt.Fprintf(&b, "**%s** | %s | %s (%s)\n", ad.City, dateDisplay(ad), ad.SellerName, ad.SellerRating)
	fmt.Fprintf(&b, "![Image](%s)", ad.ImageURL)
	return b.String()
}

func dateDisplay(ad scraper.Ad) string {
	if ad.Pinned() {
		return "Pinned"
	}
	return ad.Date
}

func formatPrice(price *int64) string {
	if price == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *price)
}
