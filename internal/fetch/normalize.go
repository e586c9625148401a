package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
)

// trackingParams lists query parameters stripped during link normalization.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "ref": true, "fbclid": true,
	"gclid": true,
}

// NormalizeLink strips tracking parameters and lowercases scheme+host per
// the fetcher normalization policy, preserving the path/query otherwise.
func NormalizeLink(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	q := u.Query()
	for k := range q {
		if trackingParams[strings.ToLower(k)] {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// NormalizeTitle trims whitespace from a title per the fetcher
// normalization policy.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

// HashCanonicalID derives a stable canonical ID from title+ts_published
// when a source provides no GUID, per §4.E's PR-wire fallback policy.
func HashCanonicalID(title string, tsPublishedUnix int64) string {
	h := sha256.New()
	h.Write([]byte(NormalizeTitle(title)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(tsPublishedUnix, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
