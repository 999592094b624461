package discover

import (
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/adithyagurusai/media-extractor/pkg/media"
	"github.com/adithyagurusai/media-extractor/pkg/models"
	"github.com/adithyagurusai/media-extractor/pkg/parse"
)

// lazyAttrs are deferred-load attribute names checked in fixed priority
// order; the first present attribute wins per element.
var lazyAttrs = []string{"data-srcset", "data-src", "data-original", "data-image", "data-lazy"}

// cssURLRe extracts url(...) references from style text.
var cssURLRe = regexp.MustCompile(`url\(["']?([^"'()]+)["']?\)`)

// ImageDiscoverer walks a parsed document and produces ranked image
// candidates from four extraction surfaces: direct img tags, responsive
// picture containers, deferred-load attributes, and style-embedded URLs.
// Candidate ordering reflects discovery order; quality ranking already
// happened at the per-element variant selection step.
type ImageDiscoverer struct {
	base    string // Post-redirect page URL; all relative references resolve against it
	scope   *media.Scope
	log     *logrus.Entry
	images  []models.ImageCandidate
	counter int
}

// NewImageDiscoverer creates a discoverer bound to one scope. The discoverer
// is single-use: one document walk per instance.
func NewImageDiscoverer(base string, scope *media.Scope, log *logrus.Entry) *ImageDiscoverer {
	return &ImageDiscoverer{base: base, scope: scope, log: log.WithField("discoverer", "images")}
}

// Discover runs all four extraction surfaces against the document and
// returns the ordered candidate list.
func (d *ImageDiscoverer) Discover(doc *goquery.Document) []models.ImageCandidate {
	d.fromImgTags(doc)
	d.fromPictures(doc)
	d.fromLazy(doc)
	d.fromStyles(doc)

	d.log.Infof("Discovered %d image candidates", len(d.images))
	return d.images
}

// add resolves the URL, runs it through the scope's admission gate, and
// appends a candidate on acceptance. Returns true when the candidate was
// admitted.
func (d *ImageDiscoverer) add(rawURL, source, descriptor string, quality models.Quality) bool {
	resolved := parse.Resolve(rawURL, d.base)
	if !d.scope.ShouldInclude(resolved) {
		return false
	}

	d.counter++
	cand := models.ImageCandidate{
		ID:          fmt.Sprintf("img_%03d", d.counter),
		OriginalURL: resolved,
		Source:      source,
		Descriptor:  descriptor,
	}
	switch quality.Kind {
	case models.QualityWidth:
		cand.Width = quality.Width
	case models.QualityDensity:
		cand.PixelDensity = quality.Density
	}
	d.images = append(d.images, cand)
	d.log.Debugf("[%s] %s (%s)", source, resolved, descriptor)
	return true
}

// fromImgTags extracts the direct surface: srcset selected through the
// variant selector, falling back to the plain src attribute. Imgs nested in a
// picture container belong to the picture surface and are skipped here.
func (d *ImageDiscoverer) fromImgTags(doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if img.Closest("picture").Length() > 0 {
			return
		}
		if srcset, ok := img.Attr("srcset"); ok && srcset != "" {
			if best, ok := media.SelectBest(media.ParseSrcset(srcset, d.log)); ok {
				if d.add(best.URL, "img/srcset", best.Quality.Label(), best.Quality) {
					return
				}
			}
		}
		if src, ok := img.Attr("src"); ok && src != "" {
			d.add(src, "img/src", "fallback_src", models.Quality{})
		}
	})
}

// fromPictures extracts the responsive-container surface: every nested
// source's srcset goes through the variant selector (tagged with the
// source's declared type when present), then any nested plain img falls
// back.
func (d *ImageDiscoverer) fromPictures(doc *goquery.Document) {
	doc.Find("picture").Each(func(_ int, picture *goquery.Selection) {
		picture.Find("source").Each(func(_ int, source *goquery.Selection) {
			srcset, ok := source.Attr("srcset")
			if !ok || srcset == "" {
				return
			}
			best, ok := media.SelectBest(media.ParseSrcset(srcset, d.log))
			if !ok {
				return
			}
			tag := "picture"
			if mediaType, ok := source.Attr("type"); ok && mediaType != "" {
				tag = "picture/" + mediaType
			}
			d.add(best.URL, tag, best.Quality.Label(), best.Quality)
		})

		picture.Find("img").Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok && src != "" {
				d.add(src, "picture/img", "picture_fallback", models.Quality{})
			}
		})
	})
}

// fromLazy extracts the deferred-load surface across every element: lazy
// loaders hang their attributes on anchors, figures, and list items as often
// as on imgs. A srcset-shaped attribute value goes through the variant
// selector; anything else is treated as a direct URL. Only the first matching
// attribute per element is used.
func (d *ImageDiscoverer) fromLazy(doc *goquery.Document) {
	doc.Find("*").Each(func(_ int, el *goquery.Selection) {
		for _, attr := range lazyAttrs {
			value, ok := el.Attr(attr)
			if !ok || value == "" {
				continue
			}

			if attr == "data-srcset" {
				if best, ok := media.SelectBest(media.ParseSrcset(value, d.log)); ok {
					d.add(best.URL, "lazy/"+attr, best.Quality.Label(), best.Quality)
				}
			} else {
				d.add(value, "lazy/"+attr, "lazy_attribute", models.Quality{})
			}
			break // First matching attribute wins per element
		}
	})
}

// fromStyles extracts the style-embedded surface: url(...) references in
// per-element inline styles and same-document style blocks.
func (d *ImageDiscoverer) fromStyles(doc *goquery.Document) {
	doc.Find("[style]").Each(func(_ int, el *goquery.Selection) {
		style, _ := el.Attr("style")
		for _, m := range cssURLRe.FindAllStringSubmatch(style, -1) {
			d.add(m[1], "css/inline", "css_inline", models.Quality{})
		}
	})

	doc.Find("style").Each(func(_ int, styleTag *goquery.Selection) {
		for _, m := range cssURLRe.FindAllStringSubmatch(styleTag.Text(), -1) {
			d.add(m[1], "css/style", "css_style_tag", models.Quality{})
		}
	})
}
