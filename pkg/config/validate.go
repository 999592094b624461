package config

import (
	"fmt"
	"time"

	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

// DefaultUserAgent identifies the extractor politely. Overridable per config.
const DefaultUserAgent = "media-extractor/1.1 (+https://github.com/adithyagurusai/media-extractor)"

// DefaultPopupSelectors match the common overlay container shapes checked
// after each card click during browser capture.
var DefaultPopupSelectors = []string{"[role='dialog']", ".modal", ".popup", ".overlay", ".drawer"}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// UserAgent
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	// NumPageWorkers
	if c.NumPageWorkers <= 0 {
		warnings = append(warnings, "num_page_workers should be > 0, defaulting to 3")
		c.NumPageWorkers = 3
	}

	// NumDownloadWorkers
	if c.NumDownloadWorkers <= 0 {
		warnings = append(warnings, fmt.Sprintf(
			"num_download_workers not specified or invalid, defaulting to %d", 4))
		c.NumDownloadWorkers = 4
	}

	// MaxRequestsPerHost
	if c.MaxRequestsPerHost <= 0 {
		warnings = append(warnings, "max_requests_per_host should be > 0, defaulting to 2")
		c.MaxRequestsPerHost = 2
	}

	// OutputBaseDir
	if c.OutputBaseDir == "" {
		warnings = append(warnings, "output_base_dir is empty, defaulting to './images/cards'")
		c.OutputBaseDir = "./images/cards"
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './extractor_state'")
		c.StateDir = "./extractor_state"
	}

	// PagesFile
	if c.PagesFile == "" {
		c.PagesFile = "pages.txt"
	}

	// MaxRetries
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 3
	}

	// Retry delays (only if retries enabled)
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}

	// InitialRetryDelay > MaxRetryDelay check
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	// PerPageTimeout
	if c.PerPageTimeout < 0 {
		warnings = append(warnings, "per_page_timeout cannot be negative, disabling timeout")
		c.PerPageTimeout = 0
	}

	// GlobalTimeout
	if c.GlobalTimeout < 0 {
		warnings = append(warnings, "global_timeout cannot be negative, disabling timeout")
		c.GlobalTimeout = 0
	}

	// Extra ignore patterns must compile; a bad regex is fatal
	if _, cerr := utils.CompileIgnorePatterns(c.IgnoreURLPatterns); cerr != nil {
		return warnings, cerr
	}

	c.validateHTTPClientSettings()
	c.validateBrowserSettings(&warnings)

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

// validateBrowserSettings applies defaults to the capture pass. Capture stays
// disabled unless both enabled and given card selectors: without selectors
// there is nothing to click.
func (c *AppConfig) validateBrowserSettings(warnings *[]string) {
	b := &c.Browser
	if b.Enabled && len(b.CardSelectors) == 0 {
		*warnings = append(*warnings,
			"browser.enabled is true but no card_selectors given, disabling browser capture")
		b.Enabled = false
	}
	if len(b.PopupSelectors) == 0 {
		b.PopupSelectors = DefaultPopupSelectors
	}
	if b.MaxClicks <= 0 {
		b.MaxClicks = 50
	}
	if b.ClickTimeout <= 0 {
		b.ClickTimeout = 10 * time.Second
	}
	if b.SettleDelay <= 0 {
		b.SettleDelay = 1500 * time.Millisecond
	}
}
