// Package fingerprint derives the stable content hash used to recognize
// logically-duplicate tender announcements across crawls.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Compute hashes the canonical string title+organization+date. Missing
// fields coerce to the empty string so two logically-identical items always
// hash the same, regardless of which optional fields were extracted.
func Compute(title, organization string, publishDate time.Time) string {
	date := ""
	if !publishDate.IsZero() {
		date = publishDate.Format("2006-01-02")
	}
	sum := md5.Sum([]byte(title + organization + date))
	return hex.EncodeToString(sum[:])
}
