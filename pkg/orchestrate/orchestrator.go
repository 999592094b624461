package orchestrate

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/adithyagurusai/media-extractor/pkg/assemble"
	"github.com/adithyagurusai/media-extractor/pkg/browser"
	"github.com/adithyagurusai/media-extractor/pkg/config"
	"github.com/adithyagurusai/media-extractor/pkg/fetch"
	"github.com/adithyagurusai/media-extractor/pkg/input"
	"github.com/adithyagurusai/media-extractor/pkg/media"
	"github.com/adithyagurusai/media-extractor/pkg/storage"
	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

// EntryResult contains the outcome of processing one top-level page entry.
type EntryResult struct {
	Name            string
	Success         bool
	Skipped         bool // Robots disallowed
	Error           error
	Images          int
	Videos          int
	VideoReferences int
	Failures        int
	Duration        time.Duration
}

// Orchestrator runs every page entry through the assembler with a bounded
// worker pool, sharing one HTTP client, rate limiter, host semaphore pool,
// and artifact ledger across the whole run.
type Orchestrator struct {
	cfg       *config.AppConfig
	log       *logrus.Logger
	assembler *assemble.Assembler
	hostSem   *fetch.HostSemaphorePool
	ledger    *storage.BadgerLedger
	version   string
}

// NewOrchestrator wires the shared components for a run. With resume set the
// artifact ledger from the previous run is kept, so completed artifacts are
// skipped; otherwise the ledger state is wiped and everything re-attempts.
func NewOrchestrator(cfg *config.AppConfig, resume bool, version string, log *logrus.Logger) (*Orchestrator, error) {
	entry := logrus.NewEntry(log)

	ignores, err := utils.CompileIgnorePatterns(append(append([]string{}, media.DefaultIgnorePatterns...), cfg.IgnoreURLPatterns...))
	if err != nil {
		return nil, err
	}

	client := fetch.NewClient(cfg.HTTPClientSettings, log)
	fetcher := fetch.NewFetcher(client, cfg, log)
	limiter := fetch.NewRateLimiter(cfg.DefaultDelayPerHost, log)
	hostSem := fetch.NewHostSemaphorePool(cfg.MaxRequestsPerHost, entry)
	downloader := fetch.NewDownloader(fetcher, hostSem, limiter, cfg, log)

	var robots *fetch.RobotsHandler
	if cfg.RespectRobots {
		robots = fetch.NewRobotsHandler(fetcher, limiter, cfg, entry)
	}

	var capturer browser.Capturer
	if cfg.Browser.Enabled {
		capturer = browser.NewChromeCapturer(cfg.Browser, cfg.UserAgent, entry)
	}

	ledger, err := storage.NewBadgerLedger(cfg.StateDir, !resume, entry)
	if err != nil {
		return nil, err
	}

	assembler := assemble.NewAssembler(fetcher, downloader, robots, ledger, capturer, cfg, ignores, version, log)

	return &Orchestrator{
		cfg:       cfg,
		log:       log,
		assembler: assembler,
		hostSem:   hostSem,
		ledger:    ledger,
		version:   version,
	}, nil
}

// Run processes all entries and returns per-entry results in input order.
// Manually captured URLs merge into every entry's candidate set. Individual
// entry failures never abort the run; the caller decides what a partial run
// means.
func (o *Orchestrator) Run(ctx context.Context, entries []input.PageEntry, manualURLs []string) []EntryResult {
	start := time.Now()

	if o.cfg.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.GlobalTimeout)
		defer cancel()
	}

	// Background maintenance for the life of the run
	maintCtx, maintCancel := context.WithCancel(ctx)
	defer maintCancel()
	go o.hostSem.RunEviction(maintCtx, 5*time.Minute)
	go o.ledger.RunGC(maintCtx, 10*time.Minute)

	root := o.outputRoot()
	dirs := assignPageDirs(root, entries)

	o.log.Infof("Starting extraction of %d page entries (workers: %d)", len(entries), o.cfg.NumPageWorkers)

	results := make([]EntryResult, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.NumPageWorkers)

	for i, entry := range entries {
		g.Go(func() error {
			results[i] = o.processEntry(gctx, entry, manualURLs, dirs[i])
			return nil
		})
	}
	g.Wait()

	o.logSummary(results, time.Since(start))
	return results
}

// Close releases the run's persistent resources.
func (o *Orchestrator) Close() error {
	return o.ledger.Close()
}

func (o *Orchestrator) processEntry(ctx context.Context, entry input.PageEntry, manualURLs []string, pageDir string) EntryResult {
	start := time.Now()
	result := EntryResult{Name: entry.Name}

	outcome, err := o.assembler.ProcessPage(ctx, entry, manualURLs, pageDir)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		o.log.Errorf("Page %q failed: %v", entry.Name, err)
		return result
	}

	result.Success = true
	result.Skipped = outcome.Skipped
	result.Images = outcome.ImagesDownloaded
	result.Videos = outcome.VideosDownloaded
	result.VideoReferences = outcome.VideoReferences
	result.Failures = outcome.Failures
	return result
}

// outputRoot is the directory page directories are created under, with the
// optional category grouping applied.
func (o *Orchestrator) outputRoot() string {
	if o.cfg.Category != "" {
		return filepath.Join(o.cfg.OutputBaseDir, utils.SanitizeFilename(o.cfg.Category))
	}
	return o.cfg.OutputBaseDir
}

// logSummary logs the run report block.
func (o *Orchestrator) logSummary(results []EntryResult, totalDuration time.Duration) {
	o.log.Info("============================================")
	o.log.Infof("Extraction completed in %v", totalDuration)
	o.log.Info("Page Results:")

	var images, videos, references, failures int
	successCount, skipCount, failCount := 0, 0, 0

	for _, r := range results {
		status := "SUCCESS"
		switch {
		case !r.Success:
			status = "FAILED"
			failCount++
		case r.Skipped:
			status = "SKIPPED"
			skipCount++
		default:
			successCount++
		}
		images += r.Images
		videos += r.Videos
		references += r.VideoReferences
		failures += r.Failures

		o.log.Infof("  %s: %s - %d images, %d videos, %d failures in %v",
			r.Name, status, r.Images, r.Videos, r.Failures, r.Duration)
		if r.Error != nil {
			o.log.Infof("    Error: %v", r.Error)
		}
	}

	o.log.Info("--------------------------------------------")
	o.log.Infof("Total: %d entries (%d success, %d skipped, %d failed), %d images, %d videos, %d references, %d download failures",
		len(results), successCount, skipCount, failCount, images, videos, references, failures)
	o.log.Info("============================================")
}

// ValidateEntries checks that every page, popup, and asset URL in the list is
// an absolute http(s) URL. Used by the validate flow so operators catch list
// mistakes before a run touches the network.
func ValidateEntries(entries []input.PageEntry) error {
	checkURL := func(raw, where string) error {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return utils.WrapErrorf(utils.ErrInputFormat, "%s: not an absolute http(s) URL: %q", where, raw)
		}
		return nil
	}

	for _, entry := range entries {
		if err := checkURL(entry.URL, fmt.Sprintf("page %q", entry.Name)); err != nil {
			return err
		}
		for _, popup := range entry.Popups {
			if err := checkURL(popup.URL, fmt.Sprintf("popup %q of page %q", popup.Name, entry.Name)); err != nil {
				return err
			}
		}
		// Explicit assets may be relative; they resolve against the parent page
	}
	return nil
}

// assignPageDirs maps each entry to a unique directory under root. Two pages
// whose names sanitize to the same string get numeric suffixes in input order
// so neither overwrites the other's artifacts.
func assignPageDirs(root string, entries []input.PageEntry) []string {
	used := make(map[string]struct{}, len(entries))
	dirs := make([]string, len(entries))
	for i, entry := range entries {
		dirs[i] = uniquePath(filepath.Join(root, utils.SanitizeFilename(entry.Name)), used)
	}
	return dirs
}

// uniquePath returns path or the first path_N not yet in used, and claims it.
func uniquePath(path string, used map[string]struct{}) string {
	candidate := path
	for n := 1; ; n++ {
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", path, n)
	}
}
