package scraper

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	millionPriceRe = regexp.MustCompile(`([0-9,]+)M Ft`)
	plainPriceRe   = regexp.MustCompile(`([0-9 ]+) Ft`)
	absoluteDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	todayDateRe    = regexp.MustCompile(`^ma \d{2}:\d{2}`)
	yesterdayRe    = regexp.MustCompile(`^tegnap \d{2}:\d{2}`)
)

// Parser turns a hardverapro.hu search-result page into ad records.
type Parser struct {
	now func() time.Time
}

func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// Run extracts every listing block from the page in document order.
// Candidates missing a required field are dropped and logged; a page without
// a listing container yields no ads and no error.
func (p *Parser) Run(data []byte, pageURL string) ([]Ad, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}
	baseURL := base.Scheme + "://" + base.Host

	if doc.Find("div.uad-list ul li").Length() == 0 {
		return nil, nil
	}

	var ads []Ad
	doc.Find(".media").Each(func(i int, s *goquery.Selection) {
		ad, ok := p.parseAd(s, baseURL)
		if !ok {
			return
		}
		if !isComplete(ad) {
			slog.Warn("Dropping incomplete ad entry", "id", ad.ID, "title", ad.Title)
			return
		}
		ads = append(ads, ad)
	})

	return ads, nil
}

func (p *Parser) parseAd(s *goquery.Selection, baseURL string) (Ad, bool) {
	idAttr, ok := s.Attr("data-uadid")
	if !ok {
		slog.Warn("Dropping ad entry without listing id")
		return Ad{}, false
	}
	id, err := strconv.ParseInt(idAttr, 10, 64)
	if err != nil {
		slog.Warn("Dropping ad entry with malformed listing id", "id", idAttr)
		return Ad{}, false
	}

	title := s.Find("div.uad-col-title h1 a")
	info := s.Find("div.uad-col-info")
	if title.Length() == 0 || info.Length() == 0 {
		slog.Warn("Dropping malformed ad entry", "id", id)
		return Ad{}, false
	}

	ad := Ad{
		ID:    id,
		Title: strings.TrimSpace(title.Text()),
		URL:   title.AttrOr("href", ""),
		City:  strings.TrimSpace(info.Find("div.uad-cities").Text()),
	}

	if priceText := s.Find("div.uad-price span").First(); priceText.Length() > 0 {
		ad.Price = p.convertPrice(priceText.Text())
	}

	if timeText := info.Find("div.uad-time time"); timeText.Length() > 0 {
		ad.Date = p.convertDate(timeText.Text())
	}

	if seller := info.Find("span.uad-user-text"); seller.Length() > 0 {
		if link := seller.Find("a").First(); link.Length() > 0 {
			ad.SellerName = strings.TrimSpace(link.Text())
			ad.SellerURL = resolveURL(baseURL, link.AttrOr("href", ""))
		}
		ad.SellerRating = strings.TrimSpace(seller.Find("span").First().Text())
	}

	if img := s.Find("a img").First(); img.Length() > 0 {
		ad.ImageURL = resolveURL(baseURL, img.AttrOr("src", ""))
	}

	return ad, true
}

// isComplete requires every field of the candidate to be present. A price of
// zero or an unparseable date counts as missing, so free listings and
// listings with unknown dates are dropped rather than stored with a hole.
func isComplete(ad Ad) bool {
	if ad.ID == 0 || ad.Price == nil || *ad.Price == 0 {
		return false
	}
	for _, field := range []string{
		ad.Title, ad.URL, ad.City, ad.Date,
		ad.SellerName, ad.SellerURL, ad.SellerRating, ad.ImageURL,
	} {
		if field == "" {
			return false
		}
	}
	return true
}

// convertPrice normalizes a price label to forints. "Keresem" (wanted ad)
// and unrecognized labels map to nil, "1,5M Ft" to 1500000 and
// "123 456 Ft" to 123456.
func (p *Parser) convertPrice(text string) *int64 {
	text = strings.TrimSpace(text)

	if strings.EqualFold(text, "keresem") {
		return nil
	}

	if strings.Contains(text, "M") {
		if m := millionPriceRe.FindStringSubmatch(text); m != nil {
			value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
			if err == nil {
				price := int64(math.Round(value * 1_000_000))
				return &price
			}
		}
	}

	if m := plainPriceRe.FindStringSubmatch(text); m != nil {
		price, err := strconv.ParseInt(strings.ReplaceAll(m[1], " ", ""), 10, 64)
		if err == nil {
			return &price
		}
	}

	return nil
}

// convertDate normalizes the listing's freshness label. Absolute dates,
// "ma HH:MM" (today) and "tegnap HH:MM" (yesterday) become
// "YYYY-MM-DD HH:MM"; "előresorolva" (boosted) becomes the pinned sentinel;
// anything else becomes empty.
func (p *Parser) convertDate(text string) string {
	text = strings.TrimSpace(text)

	switch {
	case absoluteDateRe.MatchString(text):
		d, err := time.Parse("2006-01-02", text)
		if err != nil {
			return ""
		}
		return d.Format("2006-01-02 15:04")

	case todayDateRe.MatchString(text):
		return p.relativeDate(text, 0)

	case yesterdayRe.MatchString(text):
		return p.relativeDate(text, -1)

	case strings.EqualFold(text, "előresorolva"):
		return PinnedDate

	default:
		return ""
	}
}

func (p *Parser) relativeDate(text string, dayOffset int) string {
	parts := strings.Fields(text)
	clock, err := time.Parse("15:04", parts[1])
	if err != nil {
		return ""
	}

	day := p.now().AddDate(0, 0, dayOffset)
	d := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location())
	return d.Format("2006-01-02 15:04")
}

func resolveURL(baseURL, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	if !strings.HasPrefix(ref, "/") {
		return ref
	}
	return baseURL + ref
}

// SearchParams extracts the human-readable filter parameters from a search
// URL. Absent parameters default to "-", "0" and "∞"; the target site does
// the actual filtering.
func SearchParams(rawURL string) (stext, minPrice, maxPrice string) {
	stext, minPrice, maxPrice = "-", "0", "∞"

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return
	}

	query := parsed.Query()
	if v := query.Get("stext"); v != "" {
		stext = v
	}
	if v := query.Get("minprice"); v != "" {
		minPrice = v
	}
	if v := query.Get("maxprice"); v != "" {
		maxPrice = v
	}
	return
}
