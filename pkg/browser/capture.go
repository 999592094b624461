package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/sirupsen/logrus"

	"github.com/adithyagurusai/media-extractor/pkg/config"
	"github.com/adithyagurusai/media-extractor/pkg/utils"
)

// Capturer reveals media that only appears after user interaction: cards that
// open an overlay with the full-size asset on click. Static extraction never
// sees those URLs.
type Capturer interface {
	// CaptureClickRevealed loads the page, clicks each configured card
	// element, and returns the image URLs found inside overlay containers
	// after each click.
	CaptureClickRevealed(ctx context.Context, pageURL string) ([]string, error)
}

// ChromeCapturer implements Capturer with a headless Chrome session.
type ChromeCapturer struct {
	cfg       config.BrowserConfig
	userAgent string
	log       *logrus.Entry
}

// NewChromeCapturer creates a capturer from the browser config. The caller is
// expected to have checked cfg.Enabled; an instance is only constructed when
// capture is on.
func NewChromeCapturer(cfg config.BrowserConfig, userAgent string, log *logrus.Entry) *ChromeCapturer {
	return &ChromeCapturer{cfg: cfg, userAgent: userAgent, log: log.WithField("component", "browser")}
}

// CaptureClickRevealed implements the Capturer interface. Each card is
// clicked at most once; the overlay is dismissed with Escape between clicks
// so the next card is reachable. Per-card failures are logged and skipped,
// only session-level failures abort the capture.
func (c *ChromeCapturer) CaptureClickRevealed(ctx context.Context, pageURL string) ([]string, error) {
	pageLog := c.log.WithField("url", pageURL)

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.headless()),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if c.userAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(c.userAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	defer allocCancel()
	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	pageLog.Info("Starting click-reveal capture session")

	if err := chromedp.Run(chromeCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.cfg.SettleDelay),
	); err != nil {
		return nil, utils.WrapErrorf(utils.ErrBrowserCapture, "loading %s: %v", pageURL, err)
	}

	seen := make(map[string]struct{})
	var urls []string
	clicks := 0

	for _, cardSel := range c.cfg.CardSelectors {
		var cards []*cdp.Node
		if err := chromedp.Run(chromeCtx,
			chromedp.Nodes(cardSel, &cards, chromedp.ByQueryAll, chromedp.AtLeast(0)),
		); err != nil {
			pageLog.Warnf("Querying cards %q failed: %v", cardSel, err)
			continue
		}
		pageLog.Debugf("Selector %q matched %d cards", cardSel, len(cards))

		for i, card := range cards {
			if clicks >= c.cfg.MaxClicks {
				pageLog.Warnf("Reached max_clicks (%d), stopping capture", c.cfg.MaxClicks)
				return urls, nil
			}
			clicks++

			clickCtx, clickCancel := context.WithTimeout(chromeCtx, c.cfg.ClickTimeout)
			revealed, err := c.clickAndCollect(clickCtx, card)
			clickCancel()
			if err != nil {
				pageLog.Warnf("Card %d under %q: %v", i, cardSel, err)
				continue
			}

			for _, u := range revealed {
				if _, dup := seen[u]; dup {
					continue
				}
				seen[u] = struct{}{}
				urls = append(urls, u)
			}
		}
	}

	pageLog.Infof("Capture session finished: %d clicks, %d revealed URLs", clicks, len(urls))
	return urls, nil
}

// clickAndCollect clicks one card, waits for the overlay to settle, reads the
// image URLs inside overlay containers, and dismisses the overlay.
func (c *ChromeCapturer) clickAndCollect(ctx context.Context, card *cdp.Node) ([]string, error) {
	var revealed []string
	err := chromedp.Run(ctx,
		chromedp.MouseClickNode(card),
		chromedp.Sleep(c.cfg.SettleDelay),
		chromedp.Evaluate(c.collectScript(), &revealed),
		chromedp.KeyEvent(kb.Escape),
		chromedp.Sleep(300*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("click-and-collect: %w", err)
	}
	return revealed, nil
}

// collectScript builds the in-page JS that gathers image URLs from every
// overlay container currently in the DOM. currentSrc reflects the variant the
// browser actually chose from a srcset.
func (c *ChromeCapturer) collectScript() string {
	selector := strings.Join(c.cfg.PopupSelectors, ", ")
	return fmt.Sprintf(`(() => {
		const urls = new Set();
		document.querySelectorAll(%q).forEach((overlay) => {
			overlay.querySelectorAll('img').forEach((img) => {
				const u = img.currentSrc || img.src;
				if (u) urls.add(u);
			});
		});
		return Array.from(urls);
	})()`, selector)
}

func (c *ChromeCapturer) headless() bool {
	if c.cfg.Headless != nil {
		return *c.cfg.Headless
	}
	return true
}
