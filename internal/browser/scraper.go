// File: internal/browser/scraper.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quixlabs/loginforge/internal/config"
)

// viewport is one device profile captured during a scrape.
type viewport struct {
	name   string
	width  int64
	height int64
	mobile bool
}

var scrapeViewports = []viewport{
	{name: "mobile", width: 375, height: 812, mobile: true},
	{name: "tablet", width: 768, height: 1024, mobile: false},
	{name: "desktop", width: 1920, height: 1080, mobile: false},
}

// Capture is the raw result of a multi-viewport page scrape. DOM, styles and
// title come from the desktop viewport; screenshots from all of them.
type Capture struct {
	URL         string
	Title       string
	DOM         string
	CSS         string
	Screenshots map[string]string
}

// Scraper captures a page across several device viewports, each in its own
// tab so the captures cannot disturb each other's layout.
type Scraper struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func NewScraper(cfg config.BrowserConfig, logger *zap.Logger) *Scraper {
	return &Scraper{cfg: cfg, logger: logger.Named("scraper")}
}

// Scrape renders targetURL in every viewport concurrently and writes one
// full-page screenshot per viewport under screenshotDir.
func (s *Scraper) Scrape(ctx context.Context, targetURL, screenshotDir string) (Capture, error) {
	if err := os.MkdirAll(screenshotDir, 0o755); err != nil {
		return Capture{}, fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if s.cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	capture := Capture{
		URL:         targetURL,
		Screenshots: make(map[string]string, len(scrapeViewports)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(allocCtx)
	for _, vp := range scrapeViewports {
		g.Go(func() error {
			shot, snap, err := s.captureViewport(gctx, vp, targetURL, screenshotDir)
			if err != nil {
				return fmt.Errorf("viewport %s: %w", vp.name, err)
			}
			mu.Lock()
			defer mu.Unlock()
			capture.Screenshots[vp.name] = shot
			if vp.name == "desktop" {
				capture.DOM = snap.Markup
				capture.CSS = snap.Styles
				capture.Title = snap.Title
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Capture{}, err
	}

	s.logger.Info("Scrape complete.",
		zap.String("url", targetURL),
		zap.Int("viewports", len(capture.Screenshots)),
		zap.Int("dom_bytes", len(capture.DOM)),
	)
	return capture, nil
}

// captureViewport renders the page in one tab and returns the screenshot path
// plus, for the desktop profile, the page snapshot.
func (s *Scraper) captureViewport(ctx context.Context, vp viewport, targetURL, screenshotDir string) (string, PageSnapshot, error) {
	tabCtx, tabCancel := chromedp.NewContext(ctx)
	defer tabCancel()
	runCtx, cancel := context.WithTimeout(tabCtx, s.cfg.NavigationTimeout)
	defer cancel()

	var buf []byte
	var snap PageSnapshot
	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(vp.width, vp.height, 1.0, vp.mobile),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.SettleWait),
		chromedp.FullScreenshot(&buf, 90),
	}
	if vp.name == "desktop" {
		actions = append(actions,
			chromedp.OuterHTML("html", &snap.Markup, chromedp.ByQuery),
			chromedp.Evaluate(extractCSSScript, &snap.Styles),
			chromedp.Title(&snap.Title),
		)
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return "", PageSnapshot{}, err
	}

	name := fmt.Sprintf("%s_%s_%d.png", vp.name, time.Now().Format("20060102_150405"), vp.width)
	path := filepath.Join(screenshotDir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", PageSnapshot{}, fmt.Errorf("failed to write screenshot: %w", err)
	}

	s.logger.Debug("Viewport captured.",
		zap.String("viewport", vp.name),
		zap.String("path", path),
	)
	return path, snap, nil
}
