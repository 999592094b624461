package media

import (
	"net/url"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/adithyagurusai/media-extractor/pkg/parse"
)

// DefaultIgnorePatterns reject tracking pixels, site chrome (icons, logos,
// avatars), and small thumbnail variants. Matching is case-insensitive.
var DefaultIgnorePatterns = []string{
	`thumb`, `thumbnail`, `small`, `tiny`,
	`\d{1,3}x\d{1,3}`, // 100x100, 300x300 dimension tokens
	`(icon|logo|avatar)`,
	`-sm\b`, `-xs\b`, `-mini\b`,
	`(facebook\.com/tr|google-analytics|doubleclick|pixel\.gif)`,
	`(tracking|beacon|analytics)`,
}

// Scope is an independent deduplication and admission unit: one parent page
// or one of its popups. Scopes never share their seen-set — the same URL
// appearing in a parent and in a popup is stored in both locations.
//
// Not safe for concurrent use; discovery within one scope is sequential so
// candidate ids stay stable and monotonic.
type Scope struct {
	Name    string
	seen    map[string]struct{} // Keys are canonical-query forms
	ignores []*regexp.Regexp
	log     *logrus.Entry
}

// NewScope creates a scope with an empty seen-set and the given compiled
// ignore patterns.
func NewScope(name string, ignores []*regexp.Regexp, log *logrus.Entry) *Scope {
	return &Scope{
		Name:    name,
		seen:    make(map[string]struct{}),
		ignores: ignores,
		log:     log.WithField("scope", name),
	}
}

// ShouldInclude is the single admission gate shared by the image and video
// discoverers. Given a resolved absolute URL it rejects duplicates (exact
// match on the canonical-query form), ignore-pattern matches, and URLs that
// lack a scheme or host; on acceptance the URL enters the seen-set, so a
// second call with the same URL always rejects.
func (s *Scope) ShouldInclude(absURL string) bool {
	if absURL == "" {
		return false
	}

	key := parse.CanonicalQuery(absURL)
	if _, dup := s.seen[key]; dup {
		return false
	}

	for _, re := range s.ignores {
		if re.MatchString(absURL) {
			s.log.Debugf("Ignoring URL (matches pattern '%s'): %s", re.String(), absURL)
			return false
		}
	}

	parsed, err := url.Parse(absURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		s.log.Debugf("Ignoring invalid URL: %s", absURL)
		return false
	}

	s.seen[key] = struct{}{}
	return true
}

// AddExplicit admits an operator-declared asset URL: explicit entries bypass
// the ignore patterns (the operator asked for them by name) but still dedup
// against the scope's seen-set.
func (s *Scope) AddExplicit(absURL string) bool {
	if absURL == "" {
		return false
	}

	key := parse.CanonicalQuery(absURL)
	if _, dup := s.seen[key]; dup {
		return false
	}

	parsed, err := url.Parse(absURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		s.log.Debugf("Ignoring invalid explicit asset URL: %s", absURL)
		return false
	}

	s.seen[key] = struct{}{}
	return true
}

// Seen reports whether a URL is already in the scope's dedup set without
// modifying it.
func (s *Scope) Seen(absURL string) bool {
	_, ok := s.seen[parse.CanonicalQuery(absURL)]
	return ok
}
