package domain

import "time"

// CandidateItem is one listing extracted from a search results page. It is
// never persisted directly; SaveTenders fingerprints it first.
type CandidateItem struct {
	Title         string    `json:"title"`
	PublishDate   time.Time `json:"publish_date"`
	Organization  string    `json:"organization,omitempty"`
	Location      string    `json:"location,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	SourceURL     string    `json:"source_url"`
	SourceWebsite string    `json:"source_website"`
	WebsiteURL    string    `json:"website_url,omitempty"`
	Category      string    `json:"category"`
}

// Tender is a persisted announcement, created exactly once per unique
// fingerprint.
type Tender struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	PublishDate   time.Time `json:"publish_date"`
	Organization  string    `json:"organization,omitempty"`
	Location      string    `json:"location,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	SourceURL     string    `json:"source_url,omitempty"`
	SourceWebsite string    `json:"source_website,omitempty"`
	Category      string    `json:"category"`
	Status        string    `json:"status"`
	ViewCount     int       `json:"view_count"`
	CreatedAt     time.Time `json:"created_at"`
}
