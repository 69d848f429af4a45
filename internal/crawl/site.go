package crawl

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"tenderwatch-engine/internal/domain"
)

// Fetcher crawls one site at a time under a wall-clock budget. It never
// returns an error: per-site failure is total isolation, the batch moves on.
type Fetcher struct {
	hc         *http.Client
	limiter    *HostLimiter
	log        *zap.SugaredLogger
	userAgent  string
	siteBudget time.Duration
}

type FetcherConfig struct {
	UserAgent      string
	SiteBudget     time.Duration
	RequestTimeout time.Duration
	Limiter        *HostLimiter
}

func NewFetcher(cfg FetcherConfig, log *zap.SugaredLogger) *Fetcher {
	return &Fetcher{
		hc:         &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    cfg.Limiter,
		log:        log,
		userAgent:  cfg.UserAgent,
		siteBudget: cfg.SiteBudget,
	}
}

// FetchSite tries the site's candidate search URLs in order. The first URL
// that yields items wins; transient errors fall through to the next URL;
// the per-site budget is checked before each attempt. Items are filtered by
// a case-insensitive title match on query and an exact category match when
// a filter is supplied, then tagged with the source website. The error is
// non-nil only when every attempted URL failed outright; an empty result
// from a reachable site is not an error.
func (f *Fetcher) FetchSite(ctx context.Context, site domain.Website, query, category string) ([]domain.CandidateItem, error) {
	start := time.Now()
	baseURL := NormalizeBaseURL(site.BaseURL)

	var (
		results   []domain.CandidateItem
		lastErr   error
		succeeded bool
	)

	for _, searchURL := range BuildSearchURLs(site.BaseURL, query) {
		if time.Since(start) > f.siteBudget {
			f.log.Debugf("[fetch] budget exceeded site=%s elapsed=%s", site.Name, time.Since(start).Round(time.Millisecond))
			break
		}
		if ctx.Err() != nil {
			break
		}

		items, err := f.fetchURL(ctx, searchURL, baseURL)
		if err != nil {
			// timeouts, resets and TLS failures are routine here
			f.log.Debugf("[fetch] url failed site=%s url=%s err=%v", site.Name, searchURL, err)
			lastErr = err
			continue
		}
		succeeded = true

		for _, item := range items {
			if query != "" && !strings.Contains(strings.ToLower(item.Title), strings.ToLower(query)) {
				continue
			}
			if category != "" && item.Category != category {
				continue
			}
			item.SourceWebsite = site.Name
			item.WebsiteURL = site.BaseURL
			results = append(results, item)
		}

		if len(results) > 0 {
			break
		}
	}

	if !succeeded && lastErr != nil {
		return nil, lastErr
	}
	return results, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, searchURL, baseURL string) ([]domain.CandidateItem, error) {
	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, searchURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, nil
	}

	return ExtractItems(res.Body, baseURL)
}
