package assemble

import (
	"net/url"
	"regexp"

	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

// categoryRe matches the gallery convention of grouping card art under
// /images/cards/<category>/ path segments.
var categoryRe = regexp.MustCompile(`/images/cards/([^/]+)/`)

// CategoryFromURL derives the artifact's subdirectory from its URL path.
// Percent-encoded segments are decoded before sanitizing so "rare%20foil"
// and "rare foil" land in the same directory. URLs outside the recognized
// grouping convention collect under "misc" so every artifact has exactly one
// category directory.
func CategoryFromURL(rawURL string) string {
	if m := categoryRe.FindStringSubmatch(rawURL); m != nil {
		segment := m[1]
		if decoded, err := url.PathUnescape(segment); err == nil {
			segment = decoded
		}
		return utils.SanitizeFilename(segment)
	}
	return "misc"
}
