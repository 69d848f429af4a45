package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSearchURLsDialects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base  string
		first string
	}{
		{"www.ccgp.gov.cn", "https://www.ccgp.gov.cn/search?keyword=%E9%81%93%E8%B7%AF"},
		{"www.chinabidding.cn", "https://www.chinabidding.cn/search?keyword=%E9%81%93%E8%B7%AF"},
		{"www.cpir.cn", "https://www.cpir.cn?keywords=%E9%81%93%E8%B7%AF"},
		{"www.example.gov.cn", "https://www.example.gov.cn/search?q=%E9%81%93%E8%B7%AF"},
	}
	for _, tt := range tests {
		urls := BuildSearchURLs(tt.base, "道路")
		assert.NotEmpty(t, urls, "base %s", tt.base)
		assert.Equal(t, tt.first, urls[0], "base %s", tt.base)
	}
}

func TestBuildSearchURLsFallsBackToBase(t *testing.T) {
	t.Parallel()

	urls := BuildSearchURLs("bids.example.com", "道路")
	assert.Equal(t, []string{"https://bids.example.com"}, urls)
}

func TestBuildSearchURLsIncludesBarePageAfterDialect(t *testing.T) {
	t.Parallel()

	urls := BuildSearchURLs("www.ccgp.gov.cn", "query")
	assert.Len(t, urls, 2)
	assert.Equal(t, "https://www.ccgp.gov.cn", urls[1])
}

func TestBuildSearchURLsBounded(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"www.ccgp.gov.cn", "www.cpir.cn", "plain.example.com", ""} {
		urls := BuildSearchURLs(base, "q")
		assert.LessOrEqual(t, len(urls), maxSearchURLs, "base %s", base)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://www.ccgp.gov.cn", NormalizeBaseURL("www.ccgp.gov.cn"))
	assert.Equal(t, "http://a.cn", NormalizeBaseURL("http://a.cn"))
	assert.Equal(t, "https://a.cn", NormalizeBaseURL("https://a.cn"))
}
