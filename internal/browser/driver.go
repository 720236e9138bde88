// File: internal/browser/driver.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/quixlabs/loginforge/internal/config"
)

// PageSnapshot is the freshly observed page state handed to the advisor.
type PageSnapshot struct {
	Markup string
	Styles string
	URL    string
	Title  string
}

// Driver owns a single Chromium session and exposes primitive actions keyed by
// CSS selector. It is not safe for concurrent use; one session, one caller.
type Driver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	mu       sync.Mutex
	released bool
}

// NewDriver launches a Chromium instance and opens the session tab.
func NewDriver(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Driver, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	for _, arg := range cfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	d := &Driver{
		cfg:           cfg,
		logger:        logger.Named("browser_driver"),
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}

	// Starting the first Run launches the browser process; doing it here keeps
	// launch failures out of the first navigation.
	launchCtx, cancel := context.WithTimeout(browserCtx, cfg.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(launchCtx); err != nil {
		d.Release(context.Background())
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	d.logger.Info("Browser session started.",
		zap.Bool("headless", cfg.Headless),
		zap.Int("width", cfg.WindowWidth),
		zap.Int("height", cfg.WindowHeight),
	)
	return d, nil
}

// run executes actions against the session tab, bounded by the given timeout
// and cancellable through the caller's context.
func (d *Driver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return fmt.Errorf("browser session already released")
	}
	d.mu.Unlock()

	runCtx, cancel := context.WithTimeout(d.browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate loads the given URL and waits for the document to become ready.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.logger.Info("Navigating.", zap.String("url", url))
	return d.run(ctx, d.cfg.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Snapshot captures the full page markup, aggregated stylesheet text, current
// URL and title in a single round trip.
func (d *Driver) Snapshot(ctx context.Context) (PageSnapshot, error) {
	var snap PageSnapshot
	err := d.run(ctx, d.cfg.ActionTimeout,
		chromedp.OuterHTML("html", &snap.Markup, chromedp.ByQuery),
		chromedp.Evaluate(extractCSSScript, &snap.Styles),
		chromedp.Location(&snap.URL),
		chromedp.Title(&snap.Title),
	)
	if err != nil {
		return PageSnapshot{}, fmt.Errorf("failed to capture page snapshot: %w", err)
	}
	return snap, nil
}

// Fill clears the matched input and types the value into it.
func (d *Driver) Fill(ctx context.Context, selector, value string) error {
	err := d.run(ctx, d.cfg.ActionTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

// Click clicks the first element matching the selector.
func (d *Driver) Click(ctx context.Context, selector string) error {
	err := d.run(ctx, d.cfg.ActionTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// Type focuses the matched element and synthesizes raw keystrokes. It is the
// fallback path for inputs that reject programmatic value changes.
func (d *Driver) Type(ctx context.Context, selector, value string) error {
	err := d.run(ctx, d.cfg.ActionTimeout,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.ActionFunc(func(c context.Context) error {
			return input.InsertText(value).Do(c)
		}),
	)
	if err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	return nil
}

// HasElement reports whether any element matches the selector, in or out of
// view. Used for the password-field short-circuit, which needs no advisor
// round trip.
func (d *Driver) HasElement(ctx context.Context, selector string) (bool, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	var found bool
	script := fmt.Sprintf("document.querySelector(%s) !== null", quoted)
	if err := d.run(ctx, d.cfg.ActionTimeout, chromedp.Evaluate(script, &found)); err != nil {
		return false, fmt.Errorf("probe %q: %w", selector, err)
	}
	return found, nil
}

// Screenshot captures a full-page screenshot and writes it under dir.
func (d *Driver) Screenshot(ctx context.Context, dir, name string) (string, error) {
	var buf []byte
	if err := d.run(ctx, d.cfg.NavigationTimeout, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	d.logger.Debug("Screenshot saved.", zap.String("path", path))
	return path, nil
}

// Settle pauses to let the page react to the last action before it is re-read.
func (d *Driver) Settle(ctx context.Context, wait time.Duration) error {
	return d.run(ctx, wait+time.Second, chromedp.Sleep(wait))
}

// Release closes the tab and the browser process. It is idempotent and safe to
// call from any step and on every exit path.
func (d *Driver) Release(ctx context.Context) error {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return nil
	}
	d.released = true
	d.mu.Unlock()

	d.logger.Info("Releasing browser session.")

	// Ask the browser to shut down cleanly before tearing down the allocator.
	if err := chromedp.Cancel(d.browserCtx); err != nil && ctx.Err() == nil {
		d.logger.Warn("Graceful browser shutdown failed.", zap.Error(err))
	}
	d.browserCancel()
	d.allocCancel()
	return nil
}
