package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Two cache tiers live under distinct prefixes. Entries for ranges touching
// "today" register under the current day bucket so the ingestor can flush
// exactly the bucket a new event lands in; fully-past ranges are immutable and
// live under a never-flushed prefix at a long TTL.
const (
	prefixClosed = "analytics:closed"
	adPrefixFmt  = "analytics:ad:%s"
	dayPrefixFmt = "analytics:day:%s"
)

func DayBucket(t time.Time) string { return t.UTC().Format("2006-01-02") }

// OpenPrefix is the prefix for range queries that include the current day.
func OpenPrefix(now time.Time) string { return fmt.Sprintf(dayPrefixFmt, DayBucket(now)) }

// AdPrefix groups per-ad rollup entries so one ad's events invalidate only
// that ad's cached summaries.
func AdPrefix(adID string) string { return fmt.Sprintf(adPrefixFmt, adID) }

func rangeKey(query string, from, to time.Time) string {
	raw := fmt.Sprintf("%s|from=%s|to=%s", query, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}
