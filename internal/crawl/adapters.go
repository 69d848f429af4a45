package crawl

import (
	"net/url"
	"strings"
)

// maxSearchURLs bounds how many variants we try per site; a site that needs
// more than this is better served by its own adapter entry.
const maxSearchURLs = 3

// adapter maps a hostname family to its search-URL template. Match is a
// substring test against the normalized base URL; entries are tried in
// order, most specific first, so adding a family is a table edit, not an
// orchestration change.
type adapter struct {
	match    string
	template func(base, query string) string
}

var adapters = []adapter{
	{"ccgp.gov.cn", func(base, q string) string { return base + "/search?keyword=" + q }},
	{"ccgp-", func(base, q string) string { return base + "/search?keyword=" + q }},
	{"chinabidding.cn", func(base, q string) string { return base + "/search?keyword=" + q }},
	{"cpir.cn", func(base, q string) string { return base + "?keywords=" + q }},
	{"gov.cn", func(base, q string) string { return base + "/search?q=" + q }},
}

// BuildSearchURLs resolves the query-parameter dialect for a site and
// returns the candidate search URLs to try, in order. Unknown hosts fall
// back to the bare base URL.
func BuildSearchURLs(baseURL, query string) []string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil
	}
	baseURL = NormalizeBaseURL(baseURL)

	q := url.QueryEscape(query)

	var urls []string
	for _, a := range adapters {
		if strings.Contains(baseURL, a.match) {
			urls = append(urls, a.template(baseURL, q))
			break
		}
	}
	// The bare base page is the last resort for every site: listing pages
	// often carry recent announcements even when the search form does not.
	if len(urls) == 0 || urls[len(urls)-1] != baseURL {
		urls = append(urls, baseURL)
	}

	if len(urls) > maxSearchURLs {
		urls = urls[:maxSearchURLs]
	}
	return urls
}

// NormalizeBaseURL prepends https:// when the registry entry has no scheme.
func NormalizeBaseURL(base string) string {
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return "https://" + base
	}
	return base
}
