package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/adithyagurusai/media-extractor/pkg/config"
)

// RobotsHandler manages fetching, parsing, caching, and checking robots.txt
// data. The gate is optional: when respect_robots is off the handler is never
// consulted, and a host whose robots.txt cannot be fetched or parsed is
// treated as allowing everything.
type RobotsHandler struct {
	fetcher       *Fetcher
	rateLimiter   *RateLimiter
	robotsCache   map[string]*robotstxt.RobotsData // hostname -> parsed data (or nil on failure)
	robotsCacheMu sync.Mutex
	cfg           *config.AppConfig
	log           *logrus.Entry
}

// NewRobotsHandler creates a RobotsHandler
func NewRobotsHandler(fetcher *Fetcher, rateLimiter *RateLimiter, cfg *config.AppConfig, log *logrus.Entry) *RobotsHandler {
	return &RobotsHandler{
		fetcher:     fetcher,
		rateLimiter: rateLimiter,
		robotsCache: make(map[string]*robotstxt.RobotsData),
		cfg:         cfg,
		log:         log,
	}
}

// getRobotsData retrieves robots.txt data for the targetURL's host, using the
// cache or fetching on a miss. Returns nil on any fetch or parse failure;
// the failure itself is cached so each host is tried once per run.
func (rh *RobotsHandler) getRobotsData(ctx context.Context, targetURL *url.URL) *robotstxt.RobotsData {
	host := targetURL.Hostname()
	hostLog := rh.log.WithField("host", host)

	rh.robotsCacheMu.Lock()
	robotsData, found := rh.robotsCache[host]
	rh.robotsCacheMu.Unlock()
	if found {
		return robotsData
	}

	robotsURL := &url.URL{Scheme: targetURL.Scheme, Host: targetURL.Host, Path: "/robots.txt"}
	if targetURL.Scheme != "http" && targetURL.Scheme != "https" {
		hostLog.Warnf("Invalid scheme '%s', defaulting to https for robots.txt", targetURL.Scheme)
		robotsURL.Scheme = "https"
	}
	robotsURLStr := robotsURL.String()
	robotsLog := hostLog.WithField("robots_url", robotsURLStr)
	robotsLog.Info("Fetching robots.txt...")

	cacheFailure := func() {
		rh.robotsCacheMu.Lock()
		rh.robotsCache[host] = nil
		rh.robotsCacheMu.Unlock()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURLStr, nil)
	if err != nil {
		robotsLog.Errorf("Error creating request: %v", err)
		cacheFailure()
		return nil
	}
	req.Header.Set("User-Agent", rh.cfg.UserAgent)

	rh.rateLimiter.ApplyDelay(ctx, host, rh.cfg.DefaultDelayPerHost)
	resp, fetchErr := rh.fetcher.FetchWithRetry(req, ctx)
	rh.rateLimiter.UpdateLastRequestTime(host)

	if fetchErr != nil {
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		robotsLog.Warnf("Fetching robots.txt failed: %v", fetchErr)
		cacheFailure()
		return nil
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		robotsLog.Errorf("Error reading body: %v", err)
		cacheFailure()
		return nil
	}

	data, err := robotstxt.FromBytes(bodyBytes)
	if err != nil {
		robotsLog.Errorf("Error parsing content: %v", err)
		cacheFailure()
		return nil
	}

	robotsLog.Info("Successfully fetched and parsed robots.txt")
	rh.robotsCacheMu.Lock()
	rh.robotsCache[host] = data
	rh.robotsCacheMu.Unlock()
	return data
}

// Allowed reports whether the configured user agent may fetch targetURL.
// Returns true when the robots gate is disabled or robots data could not be
// obtained.
func (rh *RobotsHandler) Allowed(ctx context.Context, rawURL string) bool {
	if !rh.cfg.RespectRobots {
		return true
	}

	targetURL, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	robotsData := rh.getRobotsData(ctx, targetURL)
	if robotsData == nil {
		return true
	}
	return robotsData.TestAgent(targetURL.RequestURI(), rh.cfg.UserAgent)
}
