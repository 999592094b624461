package assemble

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/adithyagurusai/media-extractor/pkg/browser"
	"github.com/adithyagurusai/media-extractor/pkg/config"
	"github.com/adithyagurusai/media-extractor/pkg/discover"
	"github.com/adithyagurusai/media-extractor/pkg/fetch"
	"github.com/adithyagurusai/media-extractor/pkg/input"
	"github.com/adithyagurusai/media-extractor/pkg/media"
	"github.com/adithyagurusai/media-extractor/pkg/models"
	"github.com/adithyagurusai/media-extractor/pkg/parse"
	"github.com/adithyagurusai/media-extractor/pkg/storage"
	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

// MetadataFilename is the per-page metadata document written next to the
// downloaded artifacts.
const MetadataFilename = "metadata.json"

// Assembler drives the full lifecycle of one page entry: fetch, discover,
// merge explicit and click-revealed assets, process popups, download every
// admitted candidate, and write the metadata document. All candidate IDs are
// assigned during the discovery phase, before any download starts, so the
// metadata is deterministic regardless of download ordering.
type Assembler struct {
	fetcher    *fetch.Fetcher
	downloader *fetch.Downloader
	robots     *fetch.RobotsHandler
	ledger     storage.ArtifactLedger
	capturer   browser.Capturer // nil when click-reveal capture is disabled
	cfg        *config.AppConfig
	ignores    []*regexp.Regexp
	version    string
	log        *logrus.Logger
}

// NewAssembler wires an assembler from the run's shared components. The
// capturer may be nil; the capture pass is skipped then.
func NewAssembler(
	fetcher *fetch.Fetcher,
	downloader *fetch.Downloader,
	robots *fetch.RobotsHandler,
	ledger storage.ArtifactLedger,
	capturer browser.Capturer,
	cfg *config.AppConfig,
	ignores []*regexp.Regexp,
	version string,
	log *logrus.Logger,
) *Assembler {
	return &Assembler{
		fetcher:    fetcher,
		downloader: downloader,
		robots:     robots,
		ledger:     ledger,
		capturer:   capturer,
		cfg:        cfg,
		ignores:    ignores,
		version:    version,
		log:        log,
	}
}

// PageOutcome summarizes one processed page entry for the run report.
type PageOutcome struct {
	Record           *models.PageRecord
	ImagesDownloaded int
	VideosDownloaded int
	VideoReferences  int
	Failures         int
	Skipped          bool // Robots disallowed; nothing was fetched or written
}

// scopeAssembly is the in-memory result of discovering one scope (a parent
// page or a single popup) before any downloads happen.
type scopeAssembly struct {
	sourceURL string // Post-redirect page URL, the base for deproxying
	images    []models.ImageCandidate
	videos    []models.VideoCandidate
}

// ProcessPage runs one parent entry end to end and writes its metadata
// document into pageDir. Manually captured URLs join the parent's candidate
// set after discovery. Popup failures degrade to a missing popup section;
// only parent-level failures abort the page.
func (a *Assembler) ProcessPage(ctx context.Context, entry input.PageEntry, manualURLs []string, pageDir string) (*PageOutcome, error) {
	pageLog := a.log.WithField("page", entry.Name)

	if a.cfg.PerPageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.PerPageTimeout)
		defer cancel()
	}

	if a.robots != nil && !a.robots.Allowed(ctx, entry.URL) {
		pageLog.Warnf("Robots.txt disallows %s, skipping page", entry.URL)
		return &PageOutcome{Skipped: true}, nil
	}

	parent, err := a.assembleScope(ctx, entry.URL, entry.Name, entry.Assets, manualURLs, true)
	if err != nil {
		return nil, err
	}

	record := &models.PageRecord{
		PageID:           utils.SanitizeFilename(entry.Name),
		SourceURL:        parent.sourceURL,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		ExtractorVersion: a.version,
		Images:           parent.images,
		Videos:           parent.videos,
		Popups:           a.assemblePopups(ctx, entry, pageLog),
	}

	tasks := a.collectTasks(record, pageDir)
	outcome := &PageOutcome{Record: record}
	a.downloadAll(ctx, tasks, pageDir, outcome, pageLog)

	if err := WriteMetadata(pageDir, record); err != nil {
		return nil, err
	}

	pageLog.WithFields(logrus.Fields{
		"images":     outcome.ImagesDownloaded,
		"videos":     outcome.VideosDownloaded,
		"references": outcome.VideoReferences,
		"failures":   outcome.Failures,
		"popups":     len(record.Popups),
	}).Info("Page completed")
	return outcome, nil
}

// assembleScope fetches one page and produces its candidate lists. Explicit
// assets, the click-reveal pass, and manually captured URLs extend the
// discoverers' numbering so IDs stay unique and ordered within the scope.
func (a *Assembler) assembleScope(ctx context.Context, pageURL, scopeName string, assets, manual []string, capture bool) (*scopeAssembly, error) {
	scopeLog := a.log.WithField("scope", scopeName)

	page, err := a.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrParsing, "parsing document %s: %v", pageURL, err)
	}

	scope := media.NewScope(scopeName, a.ignores, scopeLog)
	images := discover.NewImageDiscoverer(page.FinalURL, scope, scopeLog).Discover(doc)
	videos := discover.NewVideoDiscoverer(page.FinalURL, scope, scopeLog).Discover(doc)

	for _, asset := range assets {
		resolved := parse.Resolve(asset, page.FinalURL)
		if !scope.AddExplicit(resolved) {
			continue
		}
		if kind := media.ClassifyVideoKind(resolved, ""); kind != models.KindUnknown {
			videos = append(videos, models.VideoCandidate{
				ID:          fmt.Sprintf("vid_%03d", len(videos)+1),
				OriginalURL: resolved,
				Kind:        kind,
				Resolution:  media.ResolutionHint(resolved),
				Source:      "explicit_asset",
			})
		} else {
			images = append(images, models.ImageCandidate{
				ID:          fmt.Sprintf("img_%03d", len(images)+1),
				OriginalURL: resolved,
				Source:      "explicit_asset",
				Descriptor:  "explicit",
			})
		}
	}

	if capture && a.capturer != nil {
		revealed, capErr := a.capturer.CaptureClickRevealed(ctx, pageURL)
		if capErr != nil {
			scopeLog.Warnf("Click-reveal capture failed, continuing with static results: %v", capErr)
		}
		for _, u := range revealed {
			if !scope.ShouldInclude(u) {
				continue
			}
			images = append(images, models.ImageCandidate{
				ID:          fmt.Sprintf("img_%03d", len(images)+1),
				OriginalURL: u,
				Source:      "browser_click",
				Descriptor:  "browser_revealed",
			})
		}
	}

	// Externally harvested URLs join every parent's set; the per-scope seen
	// set drops the ones the page already yielded
	for _, raw := range manual {
		resolved := parse.Resolve(raw, page.FinalURL)
		if !scope.AddExplicit(resolved) {
			continue
		}
		images = append(images, models.ImageCandidate{
			ID:          fmt.Sprintf("img_%03d", len(images)+1),
			OriginalURL: resolved,
			Source:      "manual_click",
			Descriptor:  "manual",
		})
	}

	scopeLog.Infof("Scope assembled: %d images, %d videos", len(images), len(videos))
	return &scopeAssembly{sourceURL: page.FinalURL, images: images, videos: videos}, nil
}

// assemblePopups fetches and discovers every popup of the entry, bounded by
// the page worker count. Each popup gets a fresh scope: popup media is stored
// under the parent even when the parent already holds the same URL. Record
// order follows the input file regardless of completion order.
func (a *Assembler) assemblePopups(ctx context.Context, entry input.PageEntry, pageLog *logrus.Entry) []models.PopupRecord {
	if len(entry.Popups) == 0 {
		return nil
	}

	slots := make([]*models.PopupRecord, len(entry.Popups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.NumPageWorkers)

	for i, popup := range entry.Popups {
		g.Go(func() error {
			asm, err := a.assembleScope(gctx, popup.URL, entry.Name+"/"+popup.Name, nil, nil, false)
			if err != nil {
				pageLog.Errorf("Popup %q failed, omitting from record: %v", popup.Name, err)
				return nil
			}
			slots[i] = &models.PopupRecord{
				Name:      popup.Name,
				SourceURL: asm.sourceURL,
				Images:    asm.images,
				Videos:    asm.videos,
			}
			return nil
		})
	}
	g.Wait()

	records := make([]models.PopupRecord, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// downloadTask points at one candidate inside the record so the download
// worker can fill LocalPath/FileSize in place. Exactly one of img/vid is set.
// The destination is fixed before the workers start; reference-kind videos
// carry no destination because they are never streamed.
type downloadTask struct {
	img       *models.ImageCandidate
	vid       *models.VideoCandidate
	dlURL     string // Deproxied URL actually fetched
	destDir   string // Directory the artifact lands in
	baseName  string // Filename stem, unique within destDir
	scopePath string // Ledger scope key, relative to the output root
}

// collectTasks flattens the record into download tasks, assigning every
// artifact's destination up front. Images land under images/<category>/ of
// their scope, streamed videos under videos/, and each popup gets its own
// subtree under popups/<name>/. Filename stems come from the fetched URL's
// basename; collisions within a directory get _1, _2 suffixes in candidate
// order.
func (a *Assembler) collectTasks(record *models.PageRecord, pageDir string) []downloadTask {
	used := make(map[string]struct{})
	tasks := a.scopeTasks(record.Images, record.Videos, record.SourceURL, pageDir, used)

	for p := range record.Popups {
		popup := &record.Popups[p]
		popupDir := filepath.Join(pageDir, "popups", utils.SanitizeFilename(popup.Name))
		tasks = append(tasks, a.scopeTasks(popup.Images, popup.Videos, popup.SourceURL, popupDir, used)...)
	}
	return tasks
}

// scopeTasks builds the tasks of one scope (parent page or popup) rooted at
// scopeRoot. The used set spans all scopes of the page, keyed per directory.
func (a *Assembler) scopeTasks(images []models.ImageCandidate, videos []models.VideoCandidate, base, scopeRoot string, used map[string]struct{}) []downloadTask {
	scopePath := a.relToOutputRoot(scopeRoot)

	var tasks []downloadTask
	for i := range images {
		cand := &images[i]
		dlURL := parse.DeproxyImage(cand.OriginalURL, base)
		destDir := filepath.Join(scopeRoot, "images", CategoryFromURL(dlURL))
		tasks = append(tasks, downloadTask{
			img:       cand,
			dlURL:     dlURL,
			destDir:   destDir,
			baseName:  claimBaseName(used, destDir, artifactBaseName(dlURL, cand.ID)),
			scopePath: scopePath,
		})
	}
	for i := range videos {
		cand := &videos[i]
		task := downloadTask{vid: cand, dlURL: cand.OriginalURL, scopePath: scopePath}
		if !cand.Kind.IsReference() {
			task.destDir = filepath.Join(scopeRoot, "videos")
			task.baseName = claimBaseName(used, task.destDir, artifactBaseName(cand.OriginalURL, cand.ID))
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// downloadAll drains the task list through a bounded worker pool and folds
// the per-task results into the outcome. Local paths recorded in the metadata
// are relative to pageDir, slash-separated.
func (a *Assembler) downloadAll(ctx context.Context, tasks []downloadTask, pageDir string, outcome *PageOutcome, pageLog *logrus.Entry) {
	var imagesOK, videosOK, references, failures atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.NumDownloadWorkers)

	for _, task := range tasks {
		g.Go(func() error {
			switch {
			case task.img != nil:
				if a.downloadImage(gctx, task, pageDir, pageLog) {
					imagesOK.Add(1)
				} else {
					failures.Add(1)
				}
			case task.vid != nil:
				if task.vid.Kind.IsReference() {
					// Manifests and platform embeds are recorded, never streamed
					task.vid.LocalPathOrReference = task.vid.OriginalURL
					references.Add(1)
					return nil
				}
				if a.downloadVideo(gctx, task, pageDir, pageLog) {
					videosOK.Add(1)
				} else {
					failures.Add(1)
				}
			}
			return nil
		})
	}
	g.Wait()

	outcome.ImagesDownloaded = int(imagesOK.Load())
	outcome.VideosDownloaded = int(videosOK.Load())
	outcome.VideoReferences = int(references.Load())
	outcome.Failures = int(failures.Load())
}

func (a *Assembler) downloadImage(ctx context.Context, task downloadTask, pageDir string, pageLog *logrus.Entry) bool {
	path, size, ok := a.fetchArtifact(ctx, task, pageLog)
	if !ok {
		return false
	}
	task.img.LocalPath = relSlash(pageDir, path)
	task.img.FileSize = size
	return true
}

func (a *Assembler) downloadVideo(ctx context.Context, task downloadTask, pageDir string, pageLog *logrus.Entry) bool {
	path, size, ok := a.fetchArtifact(ctx, task, pageLog)
	if !ok {
		return false
	}
	task.vid.LocalPathOrReference = relSlash(pageDir, path)
	task.vid.FileSize = size
	return true
}

// fetchArtifact is the ledger-gated download of one candidate URL. A prior
// success whose file is still valid on disk is reused without network
// traffic; every fresh attempt's outcome is recorded for the next run.
func (a *Assembler) fetchArtifact(ctx context.Context, task downloadTask, pageLog *logrus.Entry) (string, int64, bool) {
	dlURL := task.dlURL
	canonical := parse.CanonicalQuery(dlURL)

	if prev, err := a.ledger.Lookup(task.scopePath, canonical); err == nil && prev != nil && prev.Status == models.ArtifactStatusSuccess {
		abs := filepath.Join(a.cfg.OutputBaseDir, filepath.FromSlash(prev.LocalPath))
		if info, statErr := os.Stat(abs); statErr == nil && info.Size() > 0 {
			pageLog.Debugf("Ledger hit for %s, reusing %s", dlURL, prev.LocalPath)
			return abs, info.Size(), true
		}
		pageLog.Warnf("Ledger entry for %s points at missing/empty file %s, re-downloading", dlURL, prev.LocalPath)
	}

	res, err := a.downloader.Download(ctx, dlURL, task.destDir, task.baseName)
	now := time.Now().UTC()
	if err != nil {
		category := utils.CategorizeError(err)
		pageLog.WithField("error_type", category).Warnf("Download failed for %s: %v", dlURL, err)
		if recErr := a.ledger.Record(task.scopePath, canonical, &models.ArtifactEntry{
			Status:      models.ArtifactStatusFailure,
			ErrorType:   category,
			LastAttempt: now,
		}); recErr != nil {
			pageLog.Errorf("Recording failure outcome for %s: %v", dlURL, recErr)
		}
		return "", 0, false
	}

	if recErr := a.ledger.Record(task.scopePath, canonical, &models.ArtifactEntry{
		Status:      models.ArtifactStatusSuccess,
		LocalPath:   relSlash(a.cfg.OutputBaseDir, res.LocalPath),
		FileSize:    res.FileSize,
		LastAttempt: now,
	}); recErr != nil {
		pageLog.Errorf("Recording success outcome for %s: %v", dlURL, recErr)
	}
	return res.LocalPath, res.FileSize, true
}

// relToOutputRoot converts an absolute scope directory to the ledger's scope
// key form. Scope keys must be stable across runs even when the output root
// moves, so they are always relative.
func (a *Assembler) relToOutputRoot(dir string) string {
	return relSlash(a.cfg.OutputBaseDir, dir)
}

// relSlash renders path relative to base with forward slashes, falling back
// to the input path when no relative form exists.
func relSlash(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
