package cdc

import (
	"errors"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/config"
	"github.com/healthdash/backend/pkg/httputil"
	"github.com/healthdash/backend/pkg/logger"
)

var (
	// ErrTableNotFound is returned when the rendered tracker page has no table
	ErrTableNotFound = errors.New("no table found in rendered page")
	// ErrColumnMissing is returned when the RSV export lacks a required column
	ErrColumnMissing = errors.New("required column missing")
)

// Client extracts COVID positivity and RSV rates from CDC
// ⭐ SSOT: CDC requests are made through this client only
type Client struct {
	httpClient *httputil.Client
	renderer   contracts.PageRenderer
	logger     *logger.Logger
	covidURL   string
	rsvURL     string
}

// NewClient creates a new CDC client
func NewClient(httpClient *httputil.Client, renderer contracts.PageRenderer, cfg config.SourcesConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		httpClient: httpClient,
		renderer:   renderer,
		logger:     log.Component("cdc"),
		covidURL:   cfg.CDCCovidURL,
		rsvURL:     cfg.CDCRSVURL,
	}
}

// CovidURL returns the tracker page URL
func (c *Client) CovidURL() string { return c.covidURL }

// RSVURL returns the RSV CSV export URL
func (c *Client) RSVURL() string { return c.rsvURL }

var (
	_ contracts.CovidExtractor = (*Client)(nil)
	_ contracts.RSVExtractor   = (*Client)(nil)
)
