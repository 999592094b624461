package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/adithyagurusai/media-extractor/pkg/config"
	"github.com/adithyagurusai/media-extractor/pkg/media"
	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

// Downloader streams media artifacts to disk through the shared retry layer,
// enforcing per-host concurrency and politeness delays. Completed artifacts
// are classified, validated, and moved into place atomically; rejected
// artifacts never survive at the destination path.
type Downloader struct {
	fetcher *Fetcher
	hostSem *HostSemaphorePool
	limiter *RateLimiter
	cfg     *config.AppConfig
	log     *logrus.Logger
}

// NewDownloader creates a Downloader sharing the run's fetcher, host
// semaphore pool, and rate limiter.
func NewDownloader(fetcher *Fetcher, hostSem *HostSemaphorePool, limiter *RateLimiter, cfg *config.AppConfig, log *logrus.Logger) *Downloader {
	return &Downloader{
		fetcher: fetcher,
		hostSem: hostSem,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
	}
}

// DownloadResult describes a persisted artifact.
type DownloadResult struct {
	LocalPath string
	FileSize  int64
	Skipped   bool // An identical valid artifact already existed
}

// Download fetches rawURL and persists it under destDir as baseName plus the
// classified extension. The final filename is not known until response
// headers arrive: the Content-Type header outranks the URL suffix.
//
// Rejection rules: a zero-byte body and an unclassifiable stream both fail,
// and nothing is left on disk for them. A valid artifact already present at
// the destination short-circuits without any network traffic; a pre-existing
// zero-byte or unclassified leftover is removed and re-fetched.
func (d *Downloader) Download(ctx context.Context, rawURL, destDir, baseName string) (*DownloadResult, error) {
	dlLog := d.log.WithFields(logrus.Fields{"url": rawURL, "base_name": baseName})

	if existing, size, ok := d.findExisting(destDir, baseName, dlLog); ok {
		dlLog.Debugf("Artifact already present, skipping download: %s", existing)
		return &DownloadResult{LocalPath: existing, FileSize: size, Skipped: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrRequestCreation, "creating download request for %s: %v", rawURL, err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set("Accept", "image/*,video/*,*/*;q=0.8")

	host := req.URL.Hostname()
	if err := d.hostSem.Acquire(ctx, host); err != nil {
		return nil, fmt.Errorf("acquiring host slot for %s: %w", host, err)
	}
	defer d.hostSem.Release(host)

	// FetchWithRetry only covers failures before the body starts flowing. A
	// connection cut mid-stream surfaces as a copy error, so the whole
	// transfer gets its own bounded retry loop under the same backoff policy.
	var lastErr error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBackoff(d.cfg.InitialRetryDelay, d.cfg.MaxRetryDelay, attempt)
			dlLog.WithFields(logrus.Fields{"attempt": attempt, "max_retries": d.cfg.MaxRetries, "delay": delay}).Warn("Retrying interrupted transfer...")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled (%v) during transfer retry delay: %w", ctx.Err(), lastErr)
			}
		}

		result, err := d.fetchAndStream(ctx, req, rawURL, destDir, baseName, host, dlLog)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, utils.ErrResponseBodyRead) {
			return nil, err
		}
		lastErr = err
	}

	dlLog.Errorf("Transfer failed after %d attempts. Last error: %v", d.cfg.MaxRetries+1, lastErr)
	return nil, fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
}

// fetchAndStream performs one complete transfer attempt: request through the
// retry layer, header/suffix classification, then streaming to disk.
func (d *Downloader) fetchAndStream(ctx context.Context, req *http.Request, rawURL, destDir, baseName, host string, dlLog *logrus.Entry) (*DownloadResult, error) {
	d.limiter.ApplyDelay(ctx, host, d.cfg.DefaultDelayPerHost)
	resp, err := d.fetcher.FetchWithRetry(req, ctx)
	d.limiter.UpdateLastRequestTime(host)
	if err != nil {
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return nil, err
	}
	defer resp.Body.Close()

	ext := media.ClassifyExtension(resp.Header.Get("Content-Type"), rawURL)
	if ext == media.UnknownExt {
		io.Copy(io.Discard, resp.Body)
		return nil, utils.WrapErrorf(utils.ErrUnclassifiedArtifact,
			"no usable Content-Type (%q) or URL suffix for %s", resp.Header.Get("Content-Type"), rawURL)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, utils.WrapErrorf(utils.ErrFilesystem, "creating directory %s: %v", destDir, err)
	}

	finalPath := filepath.Join(destDir, baseName+ext)
	size, err := d.streamToFile(resp, finalPath, baseName)
	if err != nil {
		return nil, err
	}

	dlLog.WithFields(logrus.Fields{"path": finalPath, "size": size}).Debug("Artifact downloaded")
	return &DownloadResult{LocalPath: finalPath, FileSize: size}, nil
}

// streamToFile copies the response body to a uniquely-suffixed temp file in
// the destination directory, validates it, and renames it into place. The
// rename is atomic on the same filesystem, so a crashed run never leaves a
// half-written artifact at the final path.
func (d *Downloader) streamToFile(resp *http.Response, finalPath, baseName string) (int64, error) {
	tmpPath := finalPath + ".part-" + uuid.NewString()[:8]
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return 0, utils.WrapErrorf(utils.ErrFilesystem, "creating temp file %s: %v", tmpPath, err)
	}

	var dest io.Writer = tmpFile
	var bar *progressbar.ProgressBar
	if !d.cfg.DisableProgressBar && resp.ContentLength > 0 {
		bar = progressbar.DefaultBytes(resp.ContentLength, baseName)
		dest = io.MultiWriter(tmpFile, bar)
	}

	size, copyErr := io.Copy(dest, resp.Body)
	closeErr := tmpFile.Close()
	if bar != nil {
		bar.Finish()
	}

	if copyErr != nil {
		os.Remove(tmpPath)
		return 0, utils.WrapErrorf(utils.ErrResponseBodyRead, "streaming body to %s: %v", tmpPath, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return 0, utils.WrapErrorf(utils.ErrFilesystem, "closing temp file %s: %v", tmpPath, closeErr)
	}

	if size == 0 {
		os.Remove(tmpPath)
		return 0, utils.WrapErrorf(utils.ErrEmptyArtifact, "zero-byte body for %s", baseName)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return 0, utils.WrapErrorf(utils.ErrFilesystem, "moving %s into place: %v", tmpPath, err)
	}
	return size, nil
}

// findExisting looks for a previously downloaded artifact named baseName with
// any recognized extension. Valid hits short-circuit the download; zero-byte
// or unknown-extension leftovers are removed so the fresh attempt starts
// clean.
func (d *Downloader) findExisting(destDir, baseName string, dlLog *logrus.Entry) (string, int64, bool) {
	matches, err := filepath.Glob(filepath.Join(destDir, baseName+".*"))
	if err != nil || len(matches) == 0 {
		return "", 0, false
	}

	for _, match := range matches {
		ext := filepath.Ext(match)
		if strings.Contains(filepath.Base(match), ".part-") {
			// Orphaned temp file from an interrupted run
			os.Remove(match)
			continue
		}

		info, statErr := os.Stat(match)
		if statErr != nil {
			continue
		}

		if !media.KnownExtension(ext) || info.Size() == 0 {
			dlLog.Warnf("Removing invalid pre-existing artifact: %s (size %d)", match, info.Size())
			os.Remove(match)
			continue
		}

		return match, info.Size(), true
	}
	return "", 0, false
}
