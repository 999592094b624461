package media

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/adithyagurusai/media-extractor/pkg/models"
)

// UnknownExt is the sentinel extension for byte streams that could not be
// identified from either the Content-Type header or the URL suffix. The
// downloader discards artifacts classified this way: the original-quality
// guarantee cannot be asserted for an unidentified stream.
const UnknownExt = ".bin"

// mimeToExt maps Content-Type values to canonical extensions. Header
// classification always wins over the URL suffix.
var mimeToExt = []struct {
	mime string
	ext  string
}{
	{"image/jpeg", ".jpg"},
	{"image/jpg", ".jpg"},
	{"image/png", ".png"},
	{"image/gif", ".gif"},
	{"image/webp", ".webp"},
	{"image/avif", ".avif"},
	{"image/svg+xml", ".svg"},
	{"video/mp4", ".mp4"},
	{"video/webm", ".webm"},
	{"video/quicktime", ".mov"},
	{"video/x-msvideo", ".avi"},
	{"application/json", ".json"},
}

// knownExts is the ordered URL-suffix fallback list.
var knownExts = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".svg",
	".mp4", ".webm", ".mov",
}

// ClassifyExtension determines the artifact's file extension with the fixed
// precedence: Content-Type header, then URL path suffix, then UnknownExt.
func ClassifyExtension(contentType, rawURL string) string {
	ct := strings.ToLower(contentType)
	if ct != "" {
		for _, m := range mimeToExt {
			if strings.Contains(ct, m.mime) {
				return m.ext
			}
		}
	}

	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	lower := strings.ToLower(path)
	for _, ext := range knownExts {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}

	return UnknownExt
}

// KnownExtension reports whether ext is one of the recognized media
// extensions (i.e. not the unknown sentinel).
func KnownExtension(ext string) bool {
	lower := strings.ToLower(ext)
	for _, known := range knownExts {
		if lower == known {
			return true
		}
	}
	return false
}

// --- Video kind classification ---

// Platform URL shapes, checked in fixed precedence order so that two
// simultaneously-matching patterns resolve deterministically:
// youtube > vimeo > cloudflare_stream > direct file suffix.
var (
	youtubeRe    = regexp.MustCompile(`(?:youtube\.com|youtu\.be)`)
	vimeoRe      = regexp.MustCompile(`(?:player\.)?vimeo\.com/(?:video/)?\d+`)
	cloudflareRe = regexp.MustCompile(`(?:cloudflarestream\.com|cdn-cgi/video)`)
	directFileRe = regexp.MustCompile(`(?i)\.(mp4|webm|m3u8|mpd)(?:\?|$)`)
	resolutionRe = regexp.MustCompile(`(?i)(\d{3,4}p|\dk)`)
)

// ClassifyVideoKind determines a video candidate's container format from its
// declared MIME type first, then its URL suffix.
func ClassifyVideoKind(rawURL, mimeType string) models.MediaKind {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "mp4"):
		return models.KindMP4
	case strings.Contains(mt, "webm"):
		return models.KindWebM
	case strings.Contains(mt, "ogg"), strings.Contains(mt, "ogv"):
		return models.KindOGV
	}

	lower := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil {
		lower = strings.ToLower(u.Path)
	}
	switch {
	case strings.HasSuffix(lower, ".mp4"):
		return models.KindMP4
	case strings.HasSuffix(lower, ".webm"):
		return models.KindWebM
	case strings.HasSuffix(lower, ".ogv"), strings.HasSuffix(lower, ".ogg"):
		return models.KindOGV
	case strings.HasSuffix(lower, ".m3u8"):
		return models.KindHLS
	case strings.HasSuffix(lower, ".mpd"):
		return models.KindDASH
	}

	return models.KindUnknown
}

// ClassifyEmbedKind classifies an embedding frame's source URL against known
// first-party platform shapes, then a generic direct-file suffix match.
// Returns KindUnknown for frames that are not videos at all; the video
// discoverer drops those.
func ClassifyEmbedKind(rawURL string) models.MediaKind {
	switch {
	case youtubeRe.MatchString(rawURL):
		return models.KindYouTube
	case vimeoRe.MatchString(rawURL):
		return models.KindVimeo
	case cloudflareRe.MatchString(rawURL):
		return models.KindCloudflareStream
	case directFileRe.MatchString(rawURL):
		return models.KindHTML5CDN
	}
	return models.KindUnknown
}

// ResolutionHint surfaces a short resolution token from the URL ("1080p",
// "4k") uppercased, or "" when absent. Advisory only; never used for
// selection.
func ResolutionHint(rawURL string) string {
	if m := resolutionRe.FindString(rawURL); m != "" {
		return strings.ToUpper(m)
	}
	return ""
}

// VideoSourcePriority ranks a native player source for best-source
// selection: a direct mp4 outranks webm, which outranks anything generic or
// unknown.
func VideoSourcePriority(rawURL, mimeType string) int {
	switch ClassifyVideoKind(rawURL, mimeType) {
	case models.KindMP4:
		return 10
	case models.KindWebM:
		return 5
	default:
		return 1
	}
}
