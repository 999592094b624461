package models

// MediaKind classifies a video candidate's underlying format or platform.
type MediaKind string

const (
	KindMP4              MediaKind = "mp4"
	KindWebM             MediaKind = "webm"
	KindOGV              MediaKind = "ogv"
	KindHLS              MediaKind = "hls"  // .m3u8 streaming manifest
	KindDASH             MediaKind = "dash" // .mpd streaming manifest
	KindYouTube          MediaKind = "youtube"
	KindVimeo            MediaKind = "vimeo"
	KindCloudflareStream MediaKind = "cloudflare_stream"
	KindHTML5CDN         MediaKind = "html5_cdn" // Direct file behind an embedding frame
	KindUnknown          MediaKind = "unknown"
)

// IsReference reports whether the kind is a manifest reference: a streaming
// playlist or third-party platform URL that is recorded verbatim instead of
// being streamed to disk.
func (k MediaKind) IsReference() bool {
	switch k {
	case KindHLS, KindDASH, KindYouTube, KindVimeo, KindCloudflareStream:
		return true
	}
	return false
}
