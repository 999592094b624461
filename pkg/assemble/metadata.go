package assemble

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adithyagurusai/media-extractor/pkg/models"
	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

// WriteMetadata persists the page record as pretty-printed JSON in pageDir.
// The document is written even for pages with no admitted candidates: an
// empty record distinguishes "nothing found" from "never processed".
func WriteMetadata(pageDir string, record *models.PageRecord) error {
	if err := os.MkdirAll(pageDir, 0o755); err != nil {
		return utils.WrapErrorf(utils.ErrFilesystem, "creating page directory %s: %v", pageDir, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return utils.WrapErrorf(utils.ErrParsing, "marshaling metadata for %s: %v", record.PageID, err)
	}

	path := filepath.Join(pageDir, MetadataFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return utils.WrapErrorf(utils.ErrFilesystem, "writing %s: %v", path, err)
	}
	return nil
}

// ReadMetadata loads a previously written page record, used by the validate
// flow and tests to inspect completed pages.
func ReadMetadata(pageDir string) (*models.PageRecord, error) {
	path := filepath.Join(pageDir, MetadataFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrFilesystem, "reading %s: %v", path, err)
	}

	var record models.PageRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, utils.WrapErrorf(utils.ErrParsing, "parsing %s: %v", path, err)
	}
	return &record, nil
}
