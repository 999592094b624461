package input

import (
	"bufio"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

// Popup is a named child page whose media is stored under its parent.
type Popup struct {
	URL  string
	Name string
}

// PageEntry is one parent page with its attached popups and explicit assets.
type PageEntry struct {
	URL    string
	Name   string
	Popups []Popup  // Child pages, each with its own dedup scope
	Assets []string // Operator-declared direct asset URLs, merged into the parent scope
}

// ParsePagesFile reads the hierarchical page list. The format is line
// oriented:
//
//	URL|Name          parent page
//	> URL|Name        popup belonging to the preceding parent
//	> URL             explicit asset belonging to the preceding parent
//	# ...             comment
//
// Blank lines are skipped. A child line before any parent and a parent line
// without a name are format errors; the whole run aborts rather than
// guessing at the operator's intent.
func ParsePagesFile(path string, log *logrus.Entry) ([]PageEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrFilesystem, "opening pages file %s: %v", path, err)
	}
	defer file.Close()

	var entries []PageEntry
	var current *PageEntry

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, ">") {
			if current == nil {
				return nil, utils.WrapErrorf(utils.ErrInputFormat,
					"%s line %d: child entry before any parent page", path, lineNo)
			}
			child := strings.TrimSpace(strings.TrimPrefix(line, ">"))
			if child == "" {
				return nil, utils.WrapErrorf(utils.ErrInputFormat,
					"%s line %d: empty child entry", path, lineNo)
			}

			if url, name, ok := splitURLName(child); ok {
				current.Popups = append(current.Popups, Popup{URL: url, Name: name})
				log.Debugf("Line %d: popup %q under %q", lineNo, name, current.Name)
			} else {
				current.Assets = append(current.Assets, child)
				log.Debugf("Line %d: explicit asset under %q", lineNo, current.Name)
			}
			continue
		}

		url, name, ok := splitURLName(line)
		if !ok {
			return nil, utils.WrapErrorf(utils.ErrInputFormat,
				"%s line %d: parent page needs 'URL|Name'", path, lineNo)
		}
		entries = append(entries, PageEntry{URL: url, Name: name})
		current = &entries[len(entries)-1]
		log.Debugf("Line %d: page %q", lineNo, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, utils.WrapErrorf(utils.ErrFilesystem, "reading pages file %s: %v", path, err)
	}

	log.Infof("Parsed %d page entries from %s", len(entries), path)
	return entries, nil
}

// splitURLName splits "URL|Name" on the first pipe. Both halves must be
// non-empty after trimming.
func splitURLName(line string) (url, name string, ok bool) {
	idx := strings.Index(line, "|")
	if idx < 0 {
		return "", "", false
	}
	url = strings.TrimSpace(line[:idx])
	name = strings.TrimSpace(line[idx+1:])
	if url == "" || name == "" {
		return "", "", false
	}
	return url, name, true
}

// ParseManualCaptures reads the externally captured URL list: one URL per
// line, comments and blanks skipped. A missing file is not an error; manual
// captures are an optional supplement.
func ParseManualCaptures(path string, log *logrus.Entry) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("No manual captures file at %s", path)
			return nil, nil
		}
		return nil, utils.WrapErrorf(utils.ErrFilesystem, "opening manual captures file %s: %v", path, err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, utils.WrapErrorf(utils.ErrFilesystem, "reading manual captures file %s: %v", path, err)
	}

	if len(urls) > 0 {
		log.Infof("Parsed %d manually captured URLs from %s", len(urls), path)
	}
	return urls, nil
}
