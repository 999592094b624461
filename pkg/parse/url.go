package parse

import (
	"net/url"
	"sort"
	"strings"
)

// Resolve joins a possibly-relative reference against a base URL, dropping
// any fragment first. An empty input yields an empty output; an unparseable
// input is returned stripped of its fragment so the candidate filter can
// reject it on well-formedness.
func Resolve(raw, base string) string {
	if raw == "" {
		return ""
	}
	// Fragments never reach the network; strip before joining
	if idx := strings.Index(raw, "#"); idx >= 0 {
		raw = raw[:idx]
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return baseURL.ResolveReference(ref).String()
}

// CanonicalQuery rewrites the query string keeping only the last value for
// each repeated key, re-encoded in first-occurrence key order. The result is
// a stable deduplication key; fetching still uses the resolved URL as-is.
func CanonicalQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}

	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return raw
	}

	// Record the order in which keys first appear in the raw query
	firstSeen := make(map[string]int, len(values))
	order := 0
	for _, pair := range strings.Split(u.RawQuery, "&") {
		key := pair
		if idx := strings.Index(pair, "="); idx >= 0 {
			key = pair[:idx]
		}
		if decoded, derr := url.QueryUnescape(key); derr == nil {
			key = decoded
		}
		if _, seen := firstSeen[key]; !seen {
			firstSeen[key] = order
			order++
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return firstSeen[keys[i]] < firstSeen[keys[j]] })

	var b strings.Builder
	for _, k := range keys {
		vals := values[k]
		if len(vals) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(vals[len(vals)-1])) // Last value wins for repeated keys
	}

	u.RawQuery = b.String()
	return u.String()
}

// imageProxyPaths are URL path shapes of known image optimization proxies
// that wrap the real asset location in a "url" query parameter.
var imageProxyPaths = []string{"/_next/image"}

// DeproxyImage reverses an image-optimization-proxy URL back to the original
// asset location: when the path matches a known proxy shape and carries a
// "url" parameter, that parameter is decoded and re-resolved against base.
// Non-matching URLs pass through unchanged. Runs before any candidate is
// persisted so stored filenames reflect the original asset.
func DeproxyImage(raw, base string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	matched := false
	for _, prefix := range imageProxyPaths {
		if strings.HasPrefix(u.Path, prefix) {
			matched = true
			break
		}
	}
	if !matched {
		return raw
	}

	target := u.Query().Get("url")
	if target == "" {
		return raw
	}
	return Resolve(target, base)
}
