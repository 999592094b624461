package discover

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/adithyagurusai/media-extractor/pkg/media"
	"github.com/adithyagurusai/media-extractor/pkg/models"
	"github.com/adithyagurusai/media-extractor/pkg/parse"
)

// VideoDiscoverer walks a parsed document and produces video candidates
// from native player elements and embedding frames. It shares the parent
// scope's admission gate with the image discoverer, so an asset referenced
// both ways is recorded once.
type VideoDiscoverer struct {
	base    string
	scope   *media.Scope
	log     *logrus.Entry
	videos  []models.VideoCandidate
	counter int
}

// NewVideoDiscoverer creates a single-use discoverer bound to one scope.
func NewVideoDiscoverer(base string, scope *media.Scope, log *logrus.Entry) *VideoDiscoverer {
	return &VideoDiscoverer{base: base, scope: scope, log: log.WithField("discoverer", "videos")}
}

// Discover runs both extraction surfaces and returns the ordered candidate
// list.
func (d *VideoDiscoverer) Discover(doc *goquery.Document) []models.VideoCandidate {
	d.fromVideoTags(doc)
	d.fromIframes(doc)

	d.log.Infof("Discovered %d video candidates", len(d.videos))
	return d.videos
}

func (d *VideoDiscoverer) add(rawURL, source string, kind models.MediaKind) bool {
	resolved := parse.Resolve(rawURL, d.base)
	if !d.scope.ShouldInclude(resolved) {
		return false
	}

	d.counter++
	d.videos = append(d.videos, models.VideoCandidate{
		ID:          fmt.Sprintf("vid_%03d", d.counter),
		OriginalURL: resolved,
		Kind:        kind,
		Resolution:  media.ResolutionHint(resolved),
		Source:      source,
	})
	d.log.Debugf("[%s] %s (%s)", source, resolved, kind)
	return true
}

// fromVideoTags extracts native players. When a player declares multiple
// source children, exactly one is kept: the highest-priority source by
// container format, ties broken by document order. A player without source
// children falls back to its own src attribute.
func (d *VideoDiscoverer) fromVideoTags(doc *goquery.Document) {
	doc.Find("video").Each(func(_ int, video *goquery.Selection) {
		bestPriority := 0
		var bestURL, bestMime string

		video.Find("source").Each(func(_ int, source *goquery.Selection) {
			src, ok := source.Attr("src")
			if !ok || src == "" {
				return
			}
			mime, _ := source.Attr("type")
			if p := media.VideoSourcePriority(src, mime); p > bestPriority {
				bestPriority = p
				bestURL = src
				bestMime = mime
			}
		})

		if bestURL != "" {
			d.add(bestURL, "video_tag/source", media.ClassifyVideoKind(bestURL, bestMime))
			return
		}

		if src, ok := video.Attr("src"); ok && src != "" {
			d.add(src, "video_tag/src", media.ClassifyVideoKind(src, ""))
		}
	})
}

// fromIframes extracts embedding frames, classified against known platform
// URL shapes. Frames that match nothing are not videos and are dropped
// without entering the dedup set.
func (d *VideoDiscoverer) fromIframes(doc *goquery.Document) {
	doc.Find("iframe").Each(func(_ int, frame *goquery.Selection) {
		src, ok := frame.Attr("src")
		if !ok || src == "" {
			return
		}

		resolved := parse.Resolve(src, d.base)
		kind := media.ClassifyEmbedKind(resolved)
		if kind == models.KindUnknown {
			d.log.Debugf("Skipping non-video iframe: %s", resolved)
			return
		}
		d.add(resolved, "iframe", kind)
	})
}
