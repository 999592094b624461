package media

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adithyagurusai/media-extractor/pkg/models"
)

func TestClassifyExtension(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		url         string
		want        string
	}{
		{"header wins over suffix", "image/webp", "https://cdn.example.com/a.jpg", ".webp"},
		{"header with charset", "image/png; charset=binary", "https://cdn.example.com/a", ".png"},
		{"suffix fallback", "", "https://cdn.example.com/a.jpeg", ".jpeg"},
		{"suffix ignores query", "", "https://cdn.example.com/a.png?w=100", ".png"},
		{"unknown header unknown suffix", "application/octet-stream", "https://cdn.example.com/a", ".bin"},
		{"video header", "video/mp4", "https://cdn.example.com/clip", ".mp4"},
		{"uppercase suffix", "", "https://cdn.example.com/A.JPG", ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyExtension(tt.contentType, tt.url))
		})
	}
}

func TestKnownExtension(t *testing.T) {
	assert.True(t, KnownExtension(".jpg"))
	assert.True(t, KnownExtension(".MP4"))
	assert.False(t, KnownExtension(".bin"))
	assert.False(t, KnownExtension(""))
}

func TestClassifyVideoKind(t *testing.T) {
	tests := []struct {
		name string
		url  string
		mime string
		want models.MediaKind
	}{
		{"mime wins", "https://cdn.example.com/clip.webm", "video/mp4", models.KindMP4},
		{"mp4 suffix", "https://cdn.example.com/clip.mp4", "", models.KindMP4},
		{"webm suffix", "https://cdn.example.com/clip.webm", "", models.KindWebM},
		{"hls manifest", "https://cdn.example.com/stream.m3u8", "", models.KindHLS},
		{"dash manifest", "https://cdn.example.com/stream.mpd", "", models.KindDASH},
		{"suffix with query", "https://cdn.example.com/clip.mp4?token=x", "", models.KindMP4},
		{"nothing recognizable", "https://cdn.example.com/clip", "", models.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyVideoKind(tt.url, tt.mime))
		})
	}
}

func TestClassifyEmbedKind(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want models.MediaKind
	}{
		{"youtube embed", "https://www.youtube.com/embed/abc123", models.KindYouTube},
		{"youtu.be short", "https://youtu.be/abc123", models.KindYouTube},
		{"vimeo player", "https://player.vimeo.com/video/987654", models.KindVimeo},
		{"vimeo page", "https://vimeo.com/987654", models.KindVimeo},
		{"cloudflare stream", "https://customer.cloudflarestream.com/xyz/iframe", models.KindCloudflareStream},
		{"direct mp4 frame", "https://cdn.example.com/clip.mp4", models.KindHTML5CDN},
		{"maps frame dropped", "https://maps.example.com/embed", models.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEmbedKind(tt.url))
		})
	}
}

func TestResolutionHint(t *testing.T) {
	assert.Equal(t, "1080P", ResolutionHint("https://cdn.example.com/clip_1080p.mp4"))
	assert.Equal(t, "4K", ResolutionHint("https://cdn.example.com/clip-4k.mp4"))
	assert.Equal(t, "", ResolutionHint("https://cdn.example.com/clip.mp4"))
}

func TestVideoSourcePriority(t *testing.T) {
	assert.Equal(t, 10, VideoSourcePriority("clip.mp4", ""))
	assert.Equal(t, 5, VideoSourcePriority("clip.webm", ""))
	assert.Equal(t, 1, VideoSourcePriority("clip.mov", ""))
	assert.Greater(t,
		VideoSourcePriority("b.mp4", "video/mp4"),
		VideoSourcePriority("a.webm", "video/webm"))
}
