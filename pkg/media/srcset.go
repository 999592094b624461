package media

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/adithyagurusai/media-extractor/pkg/models"
)

// ParseSrcset parses a comma-separated responsive-source descriptor string
// ("url1 1024w, url2 2x, url3") into typed quality candidates. A malformed
// width/density token is logged and the candidate is kept without a quality
// descriptor; it can still win selection as a last-resort fallback.
func ParseSrcset(srcset string, log *logrus.Entry) []models.QualityCandidate {
	var candidates []models.QualityCandidate

	for _, entry := range strings.Split(srcset, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		fields := strings.Fields(entry)
		cand := models.QualityCandidate{URL: fields[0]}

		if len(fields) > 1 {
			spec := fields[1]
			switch {
			case strings.HasSuffix(spec, "w"):
				w, err := strconv.Atoi(strings.TrimSuffix(spec, "w"))
				if err != nil {
					log.Warnf("Invalid width descriptor %q in srcset entry %q", spec, entry)
				} else {
					cand.Quality = models.Quality{Kind: models.QualityWidth, Width: w}
				}
			case strings.HasSuffix(spec, "x"):
				d, err := strconv.ParseFloat(strings.TrimSuffix(spec, "x"), 64)
				if err != nil {
					log.Warnf("Invalid density descriptor %q in srcset entry %q", spec, entry)
				} else {
					cand.Quality = models.Quality{Kind: models.QualityDensity, Density: d}
				}
			default:
				log.Warnf("Unrecognized descriptor %q in srcset entry %q", spec, entry)
			}
		}

		candidates = append(candidates, cand)
	}

	return candidates
}

// SelectBest picks the single highest-quality candidate.
//
// Selection order:
//  1. If any candidate carries a width, the maximum width wins (ties broken
//     by first occurrence).
//  2. Otherwise, if any carries a density, the maximum density wins.
//  3. Otherwise the first candidate is returned verbatim.
//
// Width always outranks density, even when a later entry has a numerically
// larger density: width is a dimension-true proxy for resolution, device
// pixel ratio is not.
func SelectBest(candidates []models.QualityCandidate) (models.QualityCandidate, bool) {
	if len(candidates) == 0 {
		return models.QualityCandidate{}, false
	}

	var bestWidth *models.QualityCandidate
	var bestDensity *models.QualityCandidate

	for i := range candidates {
		c := &candidates[i]
		switch c.Quality.Kind {
		case models.QualityWidth:
			if bestWidth == nil || c.Quality.Width > bestWidth.Quality.Width {
				bestWidth = c
			}
		case models.QualityDensity:
			if bestDensity == nil || c.Quality.Density > bestDensity.Quality.Density {
				bestDensity = c
			}
		}
	}

	if bestWidth != nil {
		return *bestWidth, true
	}
	if bestDensity != nil {
		return *bestDensity, true
	}
	return candidates[0], true
}
