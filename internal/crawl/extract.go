package crawl

import (
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tenderwatch-engine/internal/domain"
)

const (
	minTitleLen   = 5
	maxSummaryLen = 200
)

// selectorLevel is one rung of the extraction cascade: where the candidate
// containers live, where the announcement link sits inside one, and where a
// date-ish text might be found. DateSel may be empty.
type selectorLevel struct {
	Container string
	Link      string
	DateSel   string
}

// selectorCascade is ordered most specific to most generic. The first level
// that yields at least one item wins; running the generic fallbacks on a
// page a specific level already matched would re-extract nested containers.
var selectorCascade = []selectorLevel{
	{".news-list li", "a", ".date, .time, span:last-child"},
	{".bid-list li", "a", ".date, .time"},
	{".tender-list li", "a", ".date, .time"},
	{".list-box li", "a", ".date, .time"},
	{"table tr", "a", "td:last-child, td:nth-child(2)"},
	{".article-list li", "a", ".date"},
	{"ul li", "a", ""},
}

// categoryKeywords maps container text to an announcement category; checked
// in order, first hit wins.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"工程", "engineering"},
	{"货物", "goods"},
	{"服务", "services"},
	{"采购", "procurement"},
	{"招标", "bidding"},
	{"中标", "result"},
	{"变更", "modification"},
}

// ExtractItems pulls candidate tender items out of a fetched search page.
// Containers that fail to parse are skipped; the rest of the page is still
// scanned. Returns nil when no cascade level matches anything.
func ExtractItems(body io.Reader, baseURL string) ([]domain.CandidateItem, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}
	return extractFromDoc(doc, baseURL, time.Now()), nil
}

func extractFromDoc(doc *goquery.Document, baseURL string, now time.Time) []domain.CandidateItem {
	for _, level := range selectorCascade {
		items := extractLevel(doc, level, baseURL, now)
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

func extractLevel(doc *goquery.Document, level selectorLevel, baseURL string, now time.Time) []domain.CandidateItem {
	var items []domain.CandidateItem

	doc.Find(level.Container).Each(func(_ int, container *goquery.Selection) {
		link := container.Find(level.Link).First()
		if link.Length() == 0 {
			return
		}

		title := CleanText(link.Text())
		if len([]rune(title)) < minTitleLen {
			// nav/boilerplate links
			return
		}

		href, _ := link.Attr("href")
		href = resolveURL(baseURL, strings.TrimSpace(href))

		var dateText string
		if level.DateSel != "" {
			if d := container.Find(level.DateSel).First(); d.Length() > 0 {
				dateText = CleanText(d.Text())
			}
		}

		summary := CleanText(container.Text())
		if len([]rune(summary)) > maxSummaryLen {
			summary = string([]rune(summary)[:maxSummaryLen]) + "..."
		}

		items = append(items, domain.CandidateItem{
			Title:       title,
			PublishDate: ParseDate(dateText, now),
			SourceURL:   href,
			Summary:     summary,
			Category:    inferCategory(container),
		})
	})

	return items
}

func inferCategory(container *goquery.Selection) string {
	text := strings.ToLower(container.Text())
	for _, kc := range categoryKeywords {
		if strings.Contains(text, kc.keyword) {
			return kc.category
		}
	}
	return "other"
}

func resolveURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	hu, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(hu).String()
}
