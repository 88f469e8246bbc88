// Package capture snapshots the live banner page with headless Chromium.
package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	"holidayd/internal/banner"
	appLog "holidayd/internal/log"
)

const (
	DefaultWidth   = 1280
	DefaultHeight  = 800
	DefaultTimeout = 30 * time.Second
)

// Options defines parameters for a banner screenshot.
type Options struct {
	// URL of the banner page, e.g. "http://127.0.0.1:8787/banner".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport in pixels; zero means the defaults.
	Width  int
	Height int

	// Element, if true, captures only the banner element instead of the
	// full page.
	Element bool

	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// CaptureBannerPNG navigates to the banner page, waits for the banner
// element to be visible and writes a PNG screenshot.
//
// The page only carries the element while a banner is showing or fading,
// so capturing with nothing on screen runs into the timeout.
func CaptureBannerPNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	sel := "#" + banner.ElementID
	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(sel, chromedp.ByQuery),
	}
	if opts.Element {
		tasks = append(tasks, chromedp.Screenshot(sel, &png, chromedp.ByQuery))
	} else {
		tasks = append(tasks, chromedp.FullScreenshot(&png, 100))
	}

	started := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	appLog.Info("banner captured", "path", opts.OutputPath, "bytes", len(png), "elapsed", time.Since(started))
	return nil
}
