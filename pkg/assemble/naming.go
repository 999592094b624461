package assemble

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

// Glob metacharacters are flattened out of stems because existing-artifact
// detection matches baseName as a glob pattern.
var globMetaReplacer = strings.NewReplacer("[", "_", "]", "_")

// artifactBaseName derives a filename stem from the artifact URL's path
// basename with the extension stripped; classification picks the real
// extension from the response. URLs whose path carries no usable basename
// fall back to the candidate ID.
func artifactBaseName(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}

	base := path.Base(u.Path)
	if decoded, derr := url.PathUnescape(base); derr == nil {
		base = decoded
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return fallback
	}
	return utils.SanitizeFilename(globMetaReplacer.Replace(base))
}

// claimBaseName reserves a per-directory unique stem, appending _1, _2, ...
// in candidate order. Stems are claimed sequentially before any download
// starts, so the candidate-to-filename mapping is deterministic regardless
// of download ordering.
func claimBaseName(used map[string]struct{}, destDir, base string) string {
	name := base
	for n := 1; ; n++ {
		key := destDir + "|" + name
		if _, taken := used[key]; !taken {
			used[key] = struct{}{}
			return name
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}
}
