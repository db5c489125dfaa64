package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/healthdash/backend/pkg/logger"
)

const browserTimeout = 90 * time.Second

// BrowserRenderer loads the page in a local headless Chrome, lets its
// scripts run for the render wait and returns the resulting DOM. Each call
// starts and tears down its own browser process.
type BrowserRenderer struct {
	execPath string
	wait     time.Duration
	timeout  time.Duration
	logger   *logger.Logger
}

// NewBrowserRenderer creates a BrowserRenderer. An empty execPath lets
// chromedp search for Chrome or Chromium.
func NewBrowserRenderer(execPath string, wait time.Duration, log *logger.Logger) *BrowserRenderer {
	if log == nil {
		log = logger.Nop()
	}
	return &BrowserRenderer{
		execPath: execPath,
		wait:     wait,
		timeout:  browserTimeout,
		logger:   log.Component("render"),
	}
}

func (r *BrowserRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.DisableGPU,
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1280, 1024),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	return opts
}

// Render returns the outer HTML of the document after the render wait
func (r *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout+r.wait)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(r.wait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("headless render of %s: %w", url, err)
	}

	r.logger.WithFields(map[string]interface{}{
		"url":      url,
		"bytes":    len(html),
		"duration": time.Since(start).String(),
	}).Debug("Page rendered in browser")

	return html, nil
}
