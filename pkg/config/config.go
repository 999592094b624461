package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

// BrowserConfig holds settings for the click-reveal capture pass. Capture is
// disabled unless Enabled is set: it requires a local browser and is far
// slower than static extraction.
type BrowserConfig struct {
	Enabled        bool          `yaml:"enabled,omitempty"`
	Headless       *bool         `yaml:"headless,omitempty"` // nil = headless
	CardSelectors  []string      `yaml:"card_selectors,omitempty"`
	PopupSelectors []string      `yaml:"popup_selectors,omitempty"`
	MaxClicks      int           `yaml:"max_clicks,omitempty"`
	ClickTimeout   time.Duration `yaml:"click_timeout,omitempty"`
	SettleDelay    time.Duration `yaml:"settle_delay,omitempty"` // Wait after each click before reading the DOM
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// AppConfig holds the global application configuration
type AppConfig struct {
	UserAgent           string        `yaml:"user_agent,omitempty"`
	DefaultDelayPerHost time.Duration `yaml:"default_delay_per_host,omitempty"`
	NumPageWorkers      int           `yaml:"num_page_workers,omitempty"`     // Concurrent page assemblies
	NumDownloadWorkers  int           `yaml:"num_download_workers,omitempty"` // Concurrent downloads within one page
	MaxRequestsPerHost  int           `yaml:"max_requests_per_host,omitempty"`

	OutputBaseDir string `yaml:"output_base_dir,omitempty"` // Root for downloaded media and metadata
	StateDir      string `yaml:"state_dir,omitempty"`       // Artifact ledger location
	Category      string `yaml:"category,omitempty"`        // Optional subdirectory grouping under the output root

	PagesFile          string `yaml:"pages_file,omitempty"`           // Hierarchical page/popup/asset list
	ManualCapturesFile string `yaml:"manual_captures_file,omitempty"` // Optional externally captured URL list

	MaxRetries        int           `yaml:"max_retries,omitempty"`
	InitialRetryDelay time.Duration `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay,omitempty"`
	PerPageTimeout    time.Duration `yaml:"per_page_timeout,omitempty"` // 0 = no timeout
	GlobalTimeout     time.Duration `yaml:"global_timeout,omitempty"`   // 0 = no timeout

	RespectRobots      bool     `yaml:"respect_robots,omitempty"`
	IgnoreURLPatterns  []string `yaml:"ignore_url_patterns,omitempty"`  // Extends the built-in ignore set
	DisableProgressBar bool     `yaml:"disable_progress_bar,omitempty"` // Suppress per-download progress rendering

	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
	Browser            BrowserConfig    `yaml:"browser,omitempty"`
}

// LoadAppConfig reads and parses the YAML config file at path. Validation and
// defaulting happen separately via Validate.
func LoadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrFilesystem, "reading config file %s: %v", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, utils.WrapErrorf(utils.ErrConfigValidation, "parsing config file %s: %v", path, err)
	}
	return &cfg, nil
}
