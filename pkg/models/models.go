package models

import (
	"fmt"
	"time"
)

// QualityKind discriminates the closed set of srcset quality descriptors.
type QualityKind int

const (
	QualityNone    QualityKind = iota // No usable descriptor on the srcset entry
	QualityWidth                      // "<n>w" intrinsic width descriptor
	QualityDensity                    // "<f>x" pixel density descriptor
)

// Quality is a tagged variant holding at most one of width or density.
// Width descriptors always outrank density descriptors during selection.
type Quality struct {
	Kind    QualityKind
	Width   int     // Valid only when Kind == QualityWidth
	Density float64 // Valid only when Kind == QualityDensity
}

// Label renders the human-readable provenance descriptor ("2560w", "2x").
// Returns "" for QualityNone.
func (q Quality) Label() string {
	switch q.Kind {
	case QualityWidth:
		return fmt.Sprintf("%dw", q.Width)
	case QualityDensity:
		return fmt.Sprintf("%gx", q.Density)
	default:
		return ""
	}
}

// QualityCandidate is one parsed entry of a srcset-like descriptor string.
// Ephemeral: it exists only while the variant selector evaluates one
// attribute and is never persisted.
type QualityCandidate struct {
	URL     string
	Quality Quality
}

// ImageCandidate is a discovered image reference with provenance metadata.
// LocalPath and FileSize are populated by the downloader after discovery;
// everything else is immutable once the discoverer assigns the ID.
type ImageCandidate struct {
	ID           string  `json:"image_id"`
	OriginalURL  string  `json:"original_url"`
	Source       string  `json:"source"`               // "img/srcset", "picture/...", "lazy/...", "css/...", "explicit_asset", "manual_click", "browser_click"
	Descriptor   string  `json:"descriptor,omitempty"` // "2560w", "2x", "fallback_src", ...
	Width        int     `json:"width,omitempty"`
	PixelDensity float64 `json:"pixel_density,omitempty"`
	LocalPath    string  `json:"local_path,omitempty"`
	FileSize     int64   `json:"file_size,omitempty"`
}

// VideoCandidate is a discovered video reference. Manifest-kind candidates
// (streaming playlists, third-party platforms) are stored as references and
// never streamed to disk, so LocalPathOrReference may hold either a relative
// file path or the original URL.
type VideoCandidate struct {
	ID                   string    `json:"video_id"`
	OriginalURL          string    `json:"original_url"`
	Kind                 MediaKind `json:"type"`
	Resolution           string    `json:"resolution,omitempty"` // Advisory hint parsed from the URL ("1080P", "4K")
	Source               string    `json:"source"`               // "video_tag/source", "video_tag/src", "iframe"
	LocalPathOrReference string    `json:"local_path_or_reference,omitempty"`
	FileSize             int64     `json:"file_size,omitempty"`
}

// PopupRecord holds the finalized candidates of one popup scope. Popups are
// recorded inline under their parent's PageRecord; they never get a sibling
// metadata document of their own.
type PopupRecord struct {
	Name      string           `json:"name"`
	SourceURL string           `json:"source_url"`
	Images    []ImageCandidate `json:"images"`
	Videos    []VideoCandidate `json:"videos"`
}

// PageRecord is the per-page metadata document, written once after all
// scopes under the parent have been resolved and downloaded.
type PageRecord struct {
	PageID           string           `json:"page_id"`
	SourceURL        string           `json:"source_url"` // Post-redirect URL
	Timestamp        string           `json:"timestamp"`
	ExtractorVersion string           `json:"extractor_version,omitempty"`
	Images           []ImageCandidate `json:"images"`
	Videos           []VideoCandidate `json:"videos"`
	Popups           []PopupRecord    `json:"popups,omitempty"`
}

// --- Artifact ledger entries ---

// ArtifactStatus is the persisted outcome of one download attempt.
type ArtifactStatus = string

const (
	ArtifactStatusSuccess ArtifactStatus = "success"
	ArtifactStatusFailure ArtifactStatus = "failure"
)

// ArtifactEntry stores the result of downloading one candidate URL in the
// ledger. Successful entries let re-runs skip the transfer and reproduce
// byte-identical metadata for the artifact.
type ArtifactEntry struct {
	Status      ArtifactStatus `json:"status"`
	LocalPath   string         `json:"local_path,omitempty"` // Relative to the output root (on success)
	FileSize    int64          `json:"file_size,omitempty"`
	ErrorType   string         `json:"error_type,omitempty"` // Error category (on failure)
	LastAttempt time.Time      `json:"last_attempt"`
}
