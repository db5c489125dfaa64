package render

import (
	"context"
	"fmt"
	"time"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/config"
	"github.com/healthdash/backend/pkg/httputil"
	"github.com/healthdash/backend/pkg/logger"
)

// New picks the renderer for cfg.RenderMode. Without an explicit mode the
// content service is used when RENDER_URL is set and a local headless
// browser otherwise.
// ⭐ SSOT: PageRenderer selection
func New(cfg config.SourcesConfig, client *httputil.Client, log *logger.Logger) contracts.PageRenderer {
	if log == nil {
		log = logger.Nop()
	}

	mode := cfg.RenderMode
	if mode == "" {
		mode = config.RenderBrowser
		if cfg.RenderURL != "" {
			mode = config.RenderService
		}
	}

	switch mode {
	case config.RenderService:
		return NewServiceRenderer(client, cfg.RenderURL, cfg.RenderWait, log)
	case config.RenderDirect:
		return NewDirectRenderer(client, cfg.RenderWait, log)
	default:
		return NewBrowserRenderer(cfg.BrowserPath, cfg.RenderWait, log)
	}
}

// DirectRenderer fetches the page as served. Tables filled in by scripts
// will be missing; the extractors treat that as an empty result.
type DirectRenderer struct {
	client *httputil.Client
	wait   time.Duration
	logger *logger.Logger
}

// NewDirectRenderer creates a new DirectRenderer
func NewDirectRenderer(client *httputil.Client, wait time.Duration, log *logger.Logger) *DirectRenderer {
	return &DirectRenderer{client: client, wait: wait, logger: log.Component("render")}
}

// Render fetches url and honours the fixed render delay before returning
func (r *DirectRenderer) Render(ctx context.Context, url string) (string, error) {
	resp, err := r.client.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return "", err
	}

	if err := sleep(ctx, r.wait); err != nil {
		return "", err
	}

	r.logger.WithFields(map[string]interface{}{
		"url":   url,
		"bytes": len(body),
	}).Debug("Page fetched")

	return string(body), nil
}

// ServiceRenderer asks a headless-browser content endpoint (browserless
// style POST /content) to load the page, run its scripts and return the
// resulting DOM.
type ServiceRenderer struct {
	client   *httputil.Client
	endpoint string
	wait     time.Duration
	logger   *logger.Logger
}

// NewServiceRenderer creates a new ServiceRenderer
func NewServiceRenderer(client *httputil.Client, endpoint string, wait time.Duration, log *logger.Logger) *ServiceRenderer {
	return &ServiceRenderer{client: client, endpoint: endpoint, wait: wait, logger: log.Component("render")}
}

type contentRequest struct {
	URL            string `json:"url"`
	WaitForTimeout int64  `json:"waitForTimeout,omitempty"`
}

// Render returns the rendered HTML of url
func (r *ServiceRenderer) Render(ctx context.Context, url string) (string, error) {
	resp, err := r.client.PostJSON(ctx, r.endpoint, contentRequest{
		URL:            url,
		WaitForTimeout: r.wait.Milliseconds(),
	})
	if err != nil {
		return "", fmt.Errorf("render service request failed: %w", err)
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return "", fmt.Errorf("render service: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"url":   url,
		"bytes": len(body),
	}).Debug("Page rendered")

	return string(body), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
